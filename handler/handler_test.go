package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/require"

	"tax-interview-agent/internal/domain"
	"tax-interview-agent/internal/usecase"
)

type stubTurnUseCase struct {
	turnOut usecase.TurnOutput
	turnErr error
	turnIn  usecase.TurnInput
	turns   int

	snapOut usecase.SnapshotOutput
	snapErr error
	snapID  string
}

func (s *stubTurnUseCase) Turn(_ context.Context, in usecase.TurnInput) (usecase.TurnOutput, error) {
	s.turnIn = in
	s.turns++
	return s.turnOut, s.turnErr
}

func (s *stubTurnUseCase) Snapshot(identity string) (usecase.SnapshotOutput, error) {
	s.snapID = identity
	return s.snapOut, s.snapErr
}

type stubCalcUseCase struct {
	out usecase.CalcOutput
	err error
	id  string
}

func (s *stubCalcUseCase) Calculate(_ context.Context, identity string) (usecase.CalcOutput, error) {
	s.id = identity
	return s.out, s.err
}

func newTestHandler(t *testing.T) (*Handler, *stubTurnUseCase, *stubTurnUseCase, *stubCalcUseCase) {
	t.Helper()
	interview := &stubTurnUseCase{}
	form := &stubTurnUseCase{}
	calc := &stubCalcUseCase{}
	h, err := NewHandler(interview, form, calc)
	require.NoError(t, err)
	return h, interview, form, calc
}

func makeEvent(method, path, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
		RequestContext: events.APIGatewayProxyRequestContext{
			Authorizer: map[string]any{"principalId": "user-1"},
		},
	}
}

func parseBody[T any](t *testing.T, body string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	return v
}

func TestNewHandler_ValidatesDependencies(t *testing.T) {
	interview := &stubTurnUseCase{}
	form := &stubTurnUseCase{}
	calc := &stubCalcUseCase{}

	_, err := NewHandler(nil, form, calc)
	require.Error(t, err)
	_, err = NewHandler(interview, nil, calc)
	require.Error(t, err)
	_, err = NewHandler(interview, form, nil)
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// identity resolution
// ---------------------------------------------------------------------------

func TestHandle_NoAuthorizer_Unauthorized(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	event := makeEvent(http.MethodPost, "/interview", "")
	event.RequestContext.Authorizer = nil

	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	out := parseBody[errorResponse](t, resp.Body)
	require.Equal(t, "IDENTITY_UNRESOLVED", out.Error)
}

func TestHandle_IdentityFromClaimsSub(t *testing.T) {
	h, interview, _, _ := newTestHandler(t)

	event := makeEvent(http.MethodPost, "/interview", "")
	event.RequestContext.Authorizer = map[string]any{
		"claims": map[string]any{"sub": "cognito-sub-9"},
	}

	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "cognito-sub-9", interview.turnIn.Identity)
}

func TestHandle_BlankPrincipalID_Unauthorized(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	event := makeEvent(http.MethodPost, "/interview", "")
	event.RequestContext.Authorizer = map[string]any{"principalId": "   "}

	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ---------------------------------------------------------------------------
// questionnaire turns
// ---------------------------------------------------------------------------

func TestHandle_InterviewTurn_HappyPath(t *testing.T) {
	h, interview, form, _ := newTestHandler(t)
	interview.turnOut = usecase.TurnOutput{
		Prompt:    "Are you filing single, married, or head of household?",
		Section:   "Filing Information",
		Collected: domain.AnswerSet{},
	}

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/interview", `{"reply":"hello"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, usecase.TurnInput{Identity: "user-1", Reply: "hello", HasReply: true}, interview.turnIn)
	require.Zero(t, form.turns, "interview path must not reach the form service")

	out := parseBody[turnResponse](t, resp.Body)
	require.Equal(t, "Filing Information", out.Section)
	require.Contains(t, out.Prompt, "single")
	require.False(t, out.Retry)
	require.False(t, out.Final)
}

func TestHandle_FormTurn_RoutesToFormService(t *testing.T) {
	h, interview, form, _ := newTestHandler(t)
	form.turnOut = usecase.TurnOutput{Prompt: "Wages from W-2?", Section: "Form 1040"}

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/form", `{"reply":"52000"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "52000", form.turnIn.Reply)
	require.Zero(t, interview.turns)
}

func TestHandle_EmptyBody_RestartsConversation(t *testing.T) {
	h, interview, _, _ := newTestHandler(t)
	interview.turnOut = usecase.TurnOutput{Prompt: "first question"}

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/interview", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, interview.turnIn.HasReply)
}

func TestHandle_NullReply_RestartsConversation(t *testing.T) {
	h, interview, _, _ := newTestHandler(t)
	interview.turnOut = usecase.TurnOutput{Prompt: "first question"}

	_, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/interview", `{"reply":null}`))
	require.NoError(t, err)
	require.False(t, interview.turnIn.HasReply)
}

func TestHandle_MalformedBody_BadRequest(t *testing.T) {
	h, interview, _, _ := newTestHandler(t)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/interview", `{"reply":`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Zero(t, interview.turns)
	out := parseBody[errorResponse](t, resp.Body)
	require.Equal(t, string(usecase.ErrorInvalidInput), out.Error)
}

func TestHandle_FinalTurn_CarriesFinalData(t *testing.T) {
	h, interview, _, _ := newTestHandler(t)
	interview.turnOut = usecase.TurnOutput{
		Prompt:    "That's everything we need for this questionnaire.",
		Section:   "Complete",
		Final:     true,
		FinalData: domain.AnswerSet{"status": "single", "kids": 0},
	}

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/interview", `{"reply":"no"}`))
	require.NoError(t, err)

	out := parseBody[turnResponse](t, resp.Body)
	require.True(t, out.Final)
	require.Equal(t, "single", out.FinalData["status"])
}

// ---------------------------------------------------------------------------
// snapshots
// ---------------------------------------------------------------------------

func TestHandle_Snapshot(t *testing.T) {
	h, _, form, _ := newTestHandler(t)
	form.snapOut = usecase.SnapshotOutput{
		Collected: domain.AnswerSet{"f1040_wages": 52000.0},
		Complete:  false,
	}

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodGet, "/form", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "user-1", form.snapID)

	out := parseBody[snapshotResponse](t, resp.Body)
	require.Equal(t, 52000.0, out.Collected["f1040_wages"])
	require.False(t, out.Complete)
}

// ---------------------------------------------------------------------------
// calculate
// ---------------------------------------------------------------------------

func TestHandle_Calculate_HappyPath(t *testing.T) {
	h, _, _, calc := newTestHandler(t)
	calc.out = usecase.CalcOutput{Refund: 812.34, TaxOwed: 0, Carryover: 150}

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/calculate", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "user-1", calc.id)

	out := parseBody[calcResponse](t, resp.Body)
	require.Equal(t, "Tax calculation completed successfully", out.Message)
	require.Equal(t, 812.34, out.Refund)
	require.Equal(t, 150.0, out.Carryover)
}

// ---------------------------------------------------------------------------
// error mapping
// ---------------------------------------------------------------------------

func TestHandle_ErrorCodeStatusMapping(t *testing.T) {
	cases := []struct {
		code usecase.ErrorCode
		want int
	}{
		{usecase.ErrorInvalidInput, http.StatusBadRequest},
		{usecase.ErrorValidation, http.StatusBadRequest},
		{usecase.ErrorOutOfOrder, http.StatusBadRequest},
		{usecase.ErrorRateLimited, http.StatusTooManyRequests},
		{usecase.ErrorUpstream, http.StatusBadGateway},
		{usecase.ErrorInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			h, _, _, calc := newTestHandler(t)
			calc.err = &usecase.Error{Code: tc.code, Reason: "test_reason"}

			resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/calculate", ""))
			require.NoError(t, err)
			require.Equal(t, tc.want, resp.StatusCode)

			out := parseBody[errorResponse](t, resp.Body)
			require.Equal(t, string(tc.code), out.Error)
		})
	}
}

func TestHandle_UnexpectedError_Internal(t *testing.T) {
	h, interview, _, _ := newTestHandler(t)
	interview.turnErr = errors.New("boom")

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/interview", `{"reply":"x"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	out := parseBody[errorResponse](t, resp.Body)
	require.Equal(t, string(usecase.ErrorInternal), out.Error)
}

// ---------------------------------------------------------------------------
// routing and headers
// ---------------------------------------------------------------------------

func TestHandle_UnknownPath_NotFound(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/unknown", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandle_MethodNotRouted_NotFound(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodDelete, "/interview", ""))
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandle_CorrelationIDPassthrough(t *testing.T) {
	h, interview, _, _ := newTestHandler(t)
	interview.turnOut = usecase.TurnOutput{Prompt: "q"}

	event := makeEvent(http.MethodPost, "/interview", "")
	event.Headers["X-CORRELATION-ID"] = "corr-abc"

	resp, err := h.Handle(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "corr-abc", resp.Headers["X-Correlation-Id"])
	require.Equal(t, "application/json", resp.Headers["Content-Type"])
}

func TestHandle_CorrelationIDGenerated(t *testing.T) {
	h, interview, _, _ := newTestHandler(t)
	interview.turnOut = usecase.TurnOutput{Prompt: "q"}

	resp, err := h.Handle(context.Background(), makeEvent(http.MethodPost, "/interview", ""))
	require.NoError(t, err)
	require.NotEmpty(t, resp.Headers["X-Correlation-Id"])
}
