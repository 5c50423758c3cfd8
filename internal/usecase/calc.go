package usecase

import (
	"context"
	"errors"
	"math"
	"net/http"
	"sort"
	"strings"

	"tax-interview-agent/internal/domain"
)

// RecordLister reads back an identity's persisted answer records, keyed by
// logical purpose.
type RecordLister interface {
	ListAnswerRecords(ctx context.Context, identity string) (map[string]domain.AnswerSet, error)
}

// TaxEngine is the external computation collaborator. Its internals
// (evaluation order, memoization, formulas) are opaque here.
type TaxEngine interface {
	Compute(ctx context.Context, facts domain.AnswerSet) (domain.Computation, error)
}

// CalcService merges an identity's persisted answer records into one fact
// set and asks the external tax engine for the derived figures.
type CalcService struct {
	records RecordLister
	engine  TaxEngine
}

type CalcOutput struct {
	Refund    float64
	TaxOwed   float64
	Carryover float64
}

func NewCalcService(records RecordLister, engine TaxEngine) (*CalcService, error) {
	if records == nil {
		return nil, errors.New("usecase: record lister must not be nil")
	}
	if engine == nil {
		return nil, errors.New("usecase: tax engine must not be nil")
	}
	return &CalcService{records: records, engine: engine}, nil
}

func (s *CalcService) Calculate(ctx context.Context, identity string) (CalcOutput, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return CalcOutput{}, newError(ErrorInvalidInput, "missing_identity", nil)
	}

	records, err := s.records.ListAnswerRecords(ctx, identity)
	if err != nil {
		return CalcOutput{}, newError(ErrorInternal, "record_load_error", err)
	}
	if len(records) == 0 {
		return CalcOutput{}, newError(ErrorInvalidInput, "no_answer_records", nil)
	}

	// Merge in deterministic purpose order; field ids are disjoint across
	// catalogs so order only matters for reproducibility.
	purposes := make([]string, 0, len(records))
	for p := range records {
		purposes = append(purposes, p)
	}
	sort.Strings(purposes)
	facts := domain.AnswerSet{}
	for _, p := range purposes {
		for id, v := range records[p] {
			facts[id] = v
		}
	}

	result, err := s.engine.Compute(ctx, facts)
	if err != nil {
		if status, ok := upstreamStatusCode(err); ok && status == http.StatusTooManyRequests {
			return CalcOutput{}, newError(ErrorRateLimited, "engine_rate_limited", err)
		}
		return CalcOutput{}, newError(ErrorUpstream, "engine_error", err)
	}

	return CalcOutput{
		Refund:    round2(result.Refund),
		TaxOwed:   round2(result.TaxOwed),
		Carryover: round2(result.Carryover),
	}, nil
}

func upstreamStatusCode(err error) (int, bool) {
	var coder httpStatusCoder
	if errors.As(err, &coder) {
		return coder.HTTPStatusCode(), true
	}
	return 0, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
