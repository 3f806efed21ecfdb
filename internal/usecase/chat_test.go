package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"financial-planner/internal/domain"
	"financial-planner/internal/integrations/openai"
)

type mockParams struct {
	vals  map[string]string
	err   error
	calls int
}

func (m *mockParams) GetParameters(_ context.Context, names ...string) (map[string]string, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]string, len(names))
	for _, n := range names {
		v, ok := m.vals[n]
		if !ok {
			return nil, fmt.Errorf("param not found: %s", n)
		}
		out[n] = v
	}
	return out, nil
}

type mockLLM struct {
	answer    string
	chatErr   error
	flagged   bool
	modErr    error
	model     string
	opts      openai.ChatOptions
	messages  []domain.ChatMessage
	chatCalls int
}

func (m *mockLLM) Chat(_ context.Context, model string, msgs []domain.ChatMessage, opts openai.ChatOptions) (string, error) {
	m.chatCalls++
	m.model = model
	m.opts = opts
	m.messages = msgs
	return m.answer, m.chatErr
}

func (m *mockLLM) Moderate(_ context.Context, _ string) (bool, error) {
	return m.flagged, m.modErr
}

type mockState struct {
	turns        []domain.Turn
	historyErr   error
	saveErr      error
	historyLimit int
	historyID    string
	saved        []domain.Turn
}

func (m *mockState) GetHistory(_ context.Context, sessionID string, limit int) ([]domain.Turn, error) {
	m.historyID = sessionID
	m.historyLimit = limit
	return m.turns, m.historyErr
}

func (m *mockState) SaveTurn(_ context.Context, sessionID, message, reply string) error {
	m.saved = append(m.saved, domain.Turn{SessionID: sessionID, Message: message, Reply: reply})
	return m.saveErr
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func scenarioSnapshot() *domain.FormSnapshot {
	return &domain.FormSnapshot{
		Age:            intPtr(40),
		CurrentSavings: floatPtr(10000),
		AnnualIncome:   floatPtr(80000),
		RetirementAge:  intPtr(65),
		Children:       []domain.ChildEntry{{Age: intPtr(10), EducationGoal: "college"}},
	}
}

func newService(t *testing.T, llm *mockLLM, state *mockState, opts ...Option) *ChatService {
	t.Helper()
	svc, err := NewChatService(llm, state, opts...)
	require.NoError(t, err)
	return svc
}

func requireUsecaseError(t *testing.T, err error, code ErrorCode, reason string) {
	t.Helper()
	var ucErr *Error
	require.True(t, errors.As(err, &ucErr), "expected *usecase.Error, got %T", err)
	require.Equal(t, code, ucErr.Code)
	require.Equal(t, reason, ucErr.Reason)
}

func TestNewChatService_Validation(t *testing.T) {
	_, err := NewChatService(nil, &mockState{})
	require.Error(t, err)
	_, err = NewChatService(&mockLLM{}, nil)
	require.Error(t, err)
	_, err = NewChatService(&mockLLM{}, &mockState{}, WithParamStore(&mockParams{}, " "))
	require.ErrorContains(t, err, "prefix")
}

func TestChat_HappyPath(t *testing.T) {
	llm := &mockLLM{answer: "  Increase your savings rate.  "}
	state := &mockState{}
	svc := newService(t, llm, state)

	out, err := svc.Chat(context.Background(), ChatInput{
		SessionID:     "sess-1",
		Message:       "  Will I run out of money?  ",
		FinancialData: scenarioSnapshot(),
	})
	require.NoError(t, err)
	require.Equal(t, ChatOutput{Response: "Increase your savings rate.", SessionID: "sess-1"}, out)

	require.Equal(t, defaultModel, llm.model)
	require.Equal(t, defaultMaxTokens, llm.opts.MaxTokens)
	require.NotNil(t, llm.opts.Temperature)
	require.InDelta(t, 0.7, *llm.opts.Temperature, 1e-9)

	require.Len(t, llm.messages, 2)
	require.Equal(t, domain.RoleSystem, llm.messages[0].Role)
	require.Contains(t, llm.messages[0].Content, "- Current Age: 40")
	require.Equal(t, domain.ChatMessage{Role: domain.RoleUser, Content: "Will I run out of money?"}, llm.messages[1])

	require.Equal(t, "sess-1", state.historyID)
	require.Equal(t, 3, state.historyLimit)
	require.Equal(t, []domain.Turn{{SessionID: "sess-1", Message: "Will I run out of money?", Reply: "Increase your savings rate."}}, state.saved)
}

func TestChat_GeneratesSessionID(t *testing.T) {
	orig := newUUID
	newUUID = func() string { return "generated" }
	t.Cleanup(func() { newUUID = orig })

	svc := newService(t, &mockLLM{answer: "ok"}, &mockState{})
	out, err := svc.Chat(context.Background(), ChatInput{Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, "generated", out.SessionID)
}

func TestChat_ReplaysRecentHistory(t *testing.T) {
	llm := &mockLLM{answer: "ok"}
	state := &mockState{turns: []domain.Turn{
		{Message: "q1", Reply: "a1"},
		{Message: "q2", Reply: ""},
		{Message: "q3", Reply: "a3"},
		{Message: "q4", Reply: "a4"},
	}}
	svc := newService(t, llm, state)

	_, err := svc.Chat(context.Background(), ChatInput{SessionID: "s", Message: "q5"})
	require.NoError(t, err)

	// system + last five history messages + current message
	require.Len(t, llm.messages, 7)
	require.Equal(t, []domain.ChatMessage{
		{Role: domain.RoleAssistant, Content: "a1"},
		{Role: domain.RoleUser, Content: "q3"},
		{Role: domain.RoleAssistant, Content: "a3"},
		{Role: domain.RoleUser, Content: "q4"},
		{Role: domain.RoleAssistant, Content: "a4"},
	}, llm.messages[1:6])
}

func TestChat_HistoryDisabled(t *testing.T) {
	llm := &mockLLM{answer: "ok"}
	state := &mockState{turns: []domain.Turn{{Message: "q1", Reply: "a1"}}}
	svc := newService(t, llm, state, WithHistoryLimit(0))

	_, err := svc.Chat(context.Background(), ChatInput{SessionID: "s", Message: "q2"})
	require.NoError(t, err)
	require.Len(t, llm.messages, 2)
}

func TestChat_InputValidation(t *testing.T) {
	svc := newService(t, &mockLLM{answer: "ok"}, &mockState{}, WithMaxMessageLength(5))

	_, err := svc.Chat(context.Background(), ChatInput{Message: "   "})
	requireUsecaseError(t, err, ErrorInvalidInput, "empty_message")

	_, err = svc.Chat(context.Background(), ChatInput{Message: "too long"})
	requireUsecaseError(t, err, ErrorInvalidInput, "message_too_long")

	_, err = svc.Chat(context.Background(), ChatInput{Message: "héllo"})
	require.NoError(t, err)
}

func TestChat_FinancialData(t *testing.T) {
	llm := &mockLLM{answer: "ok"}
	_, err := newService(t, llm, &mockState{}).Chat(context.Background(), ChatInput{
		Message:       "hi",
		FinancialData: &domain.FormSnapshot{Children: []domain.ChildEntry{}},
	})
	require.NoError(t, err)
	require.NotContains(t, llm.messages[0].Content, unformattableContext)
	require.NotContains(t, llm.messages[0].Content, "Financial Context:")

	s := scenarioSnapshot()
	s.AnnualIncome = floatPtr(0)
	llm = &mockLLM{answer: "ok"}
	state := &mockState{}
	_, err = newService(t, llm, state).Chat(context.Background(), ChatInput{Message: "hi", FinancialData: s})
	requireUsecaseError(t, err, ErrorInvalidInput, "invalid_financial_data")
	require.Zero(t, llm.chatCalls)
	require.Empty(t, state.saved)
}

func TestChat_Moderation(t *testing.T) {
	llm := &mockLLM{flagged: true}
	_, err := newService(t, llm, &mockState{}).Chat(context.Background(), ChatInput{Message: "bad"})
	requireUsecaseError(t, err, ErrorInvalidMessage, "moderation_flagged")
	require.Zero(t, llm.chatCalls)

	llm = &mockLLM{modErr: &openai.HTTPStatusError{StatusCode: http.StatusTooManyRequests}}
	_, err = newService(t, llm, &mockState{}).Chat(context.Background(), ChatInput{Message: "hi"})
	requireUsecaseError(t, err, ErrorRateLimited, "moderation_rate_limited")

	llm = &mockLLM{modErr: errors.New("dial tcp: refused")}
	_, err = newService(t, llm, &mockState{}).Chat(context.Background(), ChatInput{Message: "hi"})
	requireUsecaseError(t, err, ErrorUpstream, "moderation_error")
}

func TestChat_UpstreamFailures(t *testing.T) {
	cases := []struct {
		name   string
		llm    *mockLLM
		code   ErrorCode
		reason string
	}{
		{name: "rate limited", llm: &mockLLM{chatErr: fmt.Errorf("wrapped: %w", &openai.HTTPStatusError{StatusCode: 429})}, code: ErrorRateLimited, reason: "openai_rate_limited"},
		{name: "server error", llm: &mockLLM{chatErr: &openai.HTTPStatusError{StatusCode: 500}}, code: ErrorUpstream, reason: "openai_error"},
		{name: "empty answer", llm: &mockLLM{answer: "  "}, code: ErrorUpstream, reason: "empty_answer"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			state := &mockState{}
			_, err := newService(t, tc.llm, state).Chat(context.Background(), ChatInput{Message: "hi"})
			requireUsecaseError(t, err, tc.code, tc.reason)
			require.Empty(t, state.saved)
		})
	}
}

func TestChat_StateFailures(t *testing.T) {
	_, err := newService(t, &mockLLM{answer: "ok"}, &mockState{historyErr: errors.New("throttled")}).
		Chat(context.Background(), ChatInput{Message: "hi"})
	requireUsecaseError(t, err, ErrorInternal, "history_read_error")

	_, err = newService(t, &mockLLM{answer: "ok"}, &mockState{saveErr: errors.New("conditional check failed")}).
		Chat(context.Background(), ChatInput{Message: "hi"})
	requireUsecaseError(t, err, ErrorInternal, "history_write_error")
	require.ErrorContains(t, err, "conditional check failed")
}

func TestChat_SettingsFromParamStore(t *testing.T) {
	params := &mockParams{vals: map[string]string{
		"/planner/config/openai_model": "gpt-4o-mini",
		"/planner/config/max_tokens":   "512",
	}}
	llm := &mockLLM{answer: "ok"}
	svc := newService(t, llm, &mockState{}, WithParamStore(params, "/planner/"), WithModel("ignored"))

	for i := 0; i < 3; i++ {
		_, err := svc.Chat(context.Background(), ChatInput{Message: "hi"})
		require.NoError(t, err)
	}
	require.Equal(t, "gpt-4o-mini", llm.model)
	require.Equal(t, 512, llm.opts.MaxTokens)
	require.Equal(t, 1, params.calls)
}

func TestChat_SettingsErrors(t *testing.T) {
	cases := []struct {
		name   string
		params *mockParams
	}{
		{name: "ssm error", params: &mockParams{err: errors.New("access denied")}},
		{name: "empty model", params: &mockParams{vals: map[string]string{"/p/config/openai_model": " ", "/p/config/max_tokens": "300"}}},
		{name: "bad max tokens", params: &mockParams{vals: map[string]string{"/p/config/openai_model": "gpt", "/p/config/max_tokens": "lots"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newService(t, &mockLLM{answer: "ok"}, &mockState{}, WithParamStore(tc.params, "/p"))
			_, err := svc.Chat(context.Background(), ChatInput{Message: "hi"})
			requireUsecaseError(t, err, ErrorInternal, "ssm_load_error")
		})
	}
}

func TestChat_SettingsRetryAfterTransientFailure(t *testing.T) {
	params := &mockParams{err: errors.New("temporary")}
	svc := newService(t, &mockLLM{answer: "ok"}, &mockState{}, WithParamStore(params, "/p"))

	_, err := svc.Chat(context.Background(), ChatInput{Message: "hi"})
	require.Error(t, err)

	params.err = nil
	params.vals = map[string]string{"/p/config/openai_model": "gpt", "/p/config/max_tokens": "100"}
	_, err = svc.Chat(context.Background(), ChatInput{Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, 2, params.calls)
}

func TestError_Formatting(t *testing.T) {
	err := newError(ErrorUpstream, "openai_error", errors.New("boom"))
	require.Equal(t, "usecase: UPSTREAM_ERROR (openai_error): boom", err.Error())
	require.True(t, strings.HasPrefix(newError(ErrorInvalidInput, "empty_message", nil).Error(), "usecase: INVALID_INPUT"))

	var nilErr *Error
	require.Empty(t, nilErr.Error())
	require.Nil(t, nilErr.Unwrap())
}
