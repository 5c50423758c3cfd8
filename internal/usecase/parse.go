package usecase

import (
	"strconv"
	"strings"

	"tax-interview-agent/internal/domain"
)

// Validation reasons surfaced on retryable turns.
const (
	reasonInvalidBoolean     = "invalid_boolean"
	reasonInvalidNumber      = "invalid_number"
	reasonNegativeNotAllowed = "negative_not_allowed"
	reasonAlreadyAnswered    = "already_answered"
)

// parseReply coerces a raw textual reply into the typed value expected by
// the field. It is a pure function; a returned *Error is always
// ErrorValidation and never aborts the session.
func parseReply(raw string, f domain.Field) (any, *Error) {
	reply := strings.TrimSpace(raw)
	switch f.Type {
	case domain.TypeBoolean:
		switch strings.ToLower(reply) {
		case "yes", "y", "true":
			return true, nil
		case "no", "n", "false":
			return false, nil
		}
		return nil, newError(ErrorValidation, reasonInvalidBoolean, nil)
	case domain.TypeInteger:
		n, err := strconv.Atoi(reply)
		if err != nil {
			return nil, newError(ErrorValidation, reasonInvalidNumber, err)
		}
		if n < 0 {
			return nil, newError(ErrorValidation, reasonNegativeNotAllowed, nil)
		}
		return n, nil
	case domain.TypeNumber:
		v, err := strconv.ParseFloat(reply, 64)
		if err != nil {
			return nil, newError(ErrorValidation, reasonInvalidNumber, err)
		}
		if v < 0 {
			return nil, newError(ErrorValidation, reasonNegativeNotAllowed, nil)
		}
		return v, nil
	case domain.TypeEnum:
		lower := strings.ToLower(reply)
		// Tokens use underscores; tolerate spaced phrasings like
		// "head of household".
		norm := strings.ReplaceAll(lower, " ", "_")
		for _, tok := range f.Allowed {
			if strings.Contains(norm, strings.ToLower(tok)) {
				return tok, nil
			}
		}
		// Unrecognized phrasing falls through as free text so an odd
		// wording never blocks progress.
		return lower, nil
	default:
		return reply, nil
	}
}

// retryMessage renders user-facing guidance for a validation reason.
func retryMessage(reason string) string {
	switch reason {
	case reasonInvalidBoolean:
		return "Please answer yes or no."
	case reasonInvalidNumber:
		return "Please enter a number."
	case reasonNegativeNotAllowed:
		return "Amounts and counts can't be negative."
	case reasonAlreadyAnswered:
		return "This question already has an answer on file; the questionnaire has moved on."
	}
	return "That reply couldn't be understood; please try again."
}
