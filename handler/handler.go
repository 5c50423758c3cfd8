package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"tax-interview-agent/internal/usecase"
)

// TurnUseCase drives one questionnaire and reports its collected state.
type TurnUseCase interface {
	Turn(ctx context.Context, in usecase.TurnInput) (usecase.TurnOutput, error)
	Snapshot(identity string) (usecase.SnapshotOutput, error)
}

// CalcUseCase invokes the external tax computation for an identity.
type CalcUseCase interface {
	Calculate(ctx context.Context, identity string) (usecase.CalcOutput, error)
}

// Handler routes API Gateway proxy events to the questionnaire services.
// Identity resolution happens upstream in the authorizer; requests without
// a resolved identity are rejected before any use case runs.
type Handler struct {
	interview TurnUseCase
	form      TurnUseCase
	calc      CalcUseCase
}

func NewHandler(interview, form TurnUseCase, calc CalcUseCase) (*Handler, error) {
	if interview == nil {
		return nil, errors.New("handler: interview use case must not be nil")
	}
	if form == nil {
		return nil, errors.New("handler: form use case must not be nil")
	}
	if calc == nil {
		return nil, errors.New("handler: calc use case must not be nil")
	}
	return &Handler{interview: interview, form: form, calc: calc}, nil
}

type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// turnRequest is the sole inbound body shape for questionnaire turns. A
// null or absent reply restarts the conversation.
type turnRequest struct {
	Reply *string `json:"reply"`
}

type turnResponse struct {
	Prompt           string         `json:"prompt"`
	Section          string         `json:"section"`
	TransitionNotice string         `json:"transitionNotice,omitempty"`
	Collected        map[string]any `json:"collected"`
	Retry            bool           `json:"retry"`
	Error            string         `json:"error,omitempty"`
	Final            bool           `json:"final"`
	FinalData        map[string]any `json:"finalData,omitempty"`
	Warning          string         `json:"warning,omitempty"`
}

type snapshotResponse struct {
	Collected map[string]any `json:"collected"`
	Complete  bool           `json:"complete"`
}

type calcResponse struct {
	Message   string  `json:"message"`
	Refund    float64 `json:"refund"`
	TaxOwed   float64 `json:"tax_owed"`
	Carryover float64 `json:"carryover_to_next_year"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (Response, error) {
	corrID := correlationID(event.Headers)

	identity := identityFromRequest(event)
	if identity == "" {
		return jsonResponse(http.StatusUnauthorized, errorResponse{Error: "IDENTITY_UNRESOLVED"}, corrID), nil
	}

	svc, ok := h.turnService(event.Path)
	switch {
	case ok && event.HTTPMethod == http.MethodGet:
		out, err := svc.Snapshot(identity)
		if err != nil {
			return h.errorResponse(err, corrID), nil
		}
		return jsonResponse(http.StatusOK, snapshotResponse{Collected: out.Collected, Complete: out.Complete}, corrID), nil

	case ok && event.HTTPMethod == http.MethodPost:
		in := usecase.TurnInput{Identity: identity}
		if strings.TrimSpace(event.Body) != "" {
			var req turnRequest
			if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
				return jsonResponse(http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput)}, corrID), nil
			}
			if req.Reply != nil {
				in.Reply, in.HasReply = *req.Reply, true
			}
		}
		out, err := svc.Turn(ctx, in)
		if err != nil {
			return h.errorResponse(err, corrID), nil
		}
		return jsonResponse(http.StatusOK, turnResponse{
			Prompt:           out.Prompt,
			Section:          out.Section,
			TransitionNotice: out.TransitionNotice,
			Collected:        out.Collected,
			Retry:            out.Retry,
			Error:            out.ErrorMessage,
			Final:            out.Final,
			FinalData:        out.FinalData,
			Warning:          out.Warning,
		}, corrID), nil

	case event.Path == "/calculate" && event.HTTPMethod == http.MethodPost:
		out, err := h.calc.Calculate(ctx, identity)
		if err != nil {
			return h.errorResponse(err, corrID), nil
		}
		return jsonResponse(http.StatusOK, calcResponse{
			Message:   "Tax calculation completed successfully",
			Refund:    out.Refund,
			TaxOwed:   out.TaxOwed,
			Carryover: out.Carryover,
		}, corrID), nil
	}

	return jsonResponse(http.StatusNotFound, errorResponse{Error: "NOT_FOUND"}, corrID), nil
}

func (h *Handler) turnService(path string) (TurnUseCase, bool) {
	switch path {
	case "/interview":
		return h.interview, true
	case "/form":
		return h.form, true
	}
	return nil, false
}

func (h *Handler) errorResponse(err error, corrID string) Response {
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		slog.Error("use case error", "code", ucErr.Code, "reason", ucErr.Reason, "correlationId", corrID, "err", err)
		return jsonResponse(statusForCode(ucErr.Code), errorResponse{Error: string(ucErr.Code)}, corrID)
	}
	slog.Error("unexpected error", "correlationId", corrID, "err", err)
	return jsonResponse(http.StatusInternalServerError, errorResponse{Error: string(usecase.ErrorInternal)}, corrID)
}

func statusForCode(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput, usecase.ErrorValidation, usecase.ErrorOutOfOrder:
		return http.StatusBadRequest
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// identityFromRequest extracts the upstream-resolved identity from the
// authorizer context. Fails closed: no identity, no questionnaire.
func identityFromRequest(event events.APIGatewayProxyRequest) string {
	auth := event.RequestContext.Authorizer
	if auth == nil {
		return ""
	}
	if v, ok := auth["principalId"].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if claims, ok := auth["claims"].(map[string]any); ok {
		if v, ok := claims["sub"].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func correlationID(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "x-correlation-id") && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return uuid.NewString()
}

func jsonResponse(status int, body any, corrID string) Response {
	payload, err := json.Marshal(body)
	if err != nil {
		status = http.StatusInternalServerError
		payload = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return Response{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":     "application/json",
			"X-Correlation-Id": corrID,
		},
		Body: string(payload),
	}
}
