package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"tax-interview-agent/internal/domain"
)

// AnswerStore persists completed answer sets as JSON parameters under a
// prefix, one parameter per (identity, purpose). It is the parameter-store
// implementation of the persistence boundary for deployments without a
// DynamoDB table.
type AnswerStore struct {
	setter Setter
	prefix string
}

// NewAnswerStore creates an AnswerStore writing under the given prefix.
func NewAnswerStore(setter Setter, prefix string) (*AnswerStore, error) {
	if setter == nil {
		return nil, errors.New("paramstore: setter must not be nil")
	}
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return nil, errors.New("paramstore: prefix must not be empty")
	}
	return &AnswerStore{setter: setter, prefix: prefix}, nil
}

// Save serializes the full answer set and writes it as one parameter.
func (s *AnswerStore) Save(ctx context.Context, purpose, identity string, answers domain.AnswerSet) error {
	if strings.TrimSpace(purpose) == "" || strings.TrimSpace(identity) == "" {
		return errors.New("paramstore: Save: purpose and identity are required")
	}
	if len(answers) == 0 {
		return errors.New("paramstore: Save: answers must not be empty")
	}
	payload, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("paramstore: Save marshal answers: %w", err)
	}
	name := fmt.Sprintf("%s/answers/%s/%s", s.prefix, identity, purpose)
	if err := s.setter.PutParameter(ctx, name, string(payload)); err != nil {
		return fmt.Errorf("paramstore: Save: %w", err)
	}
	return nil
}
