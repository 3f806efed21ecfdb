package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"financial-planner/internal/domain"
	"financial-planner/internal/integrations/openai"
)

const (
	defaultModel        = "gpt-3.5-turbo"
	defaultMaxTokens    = 300
	defaultTemperature  = 0.7
	defaultHistoryLimit = 5
	defaultMaxMessage   = 2000
)

type ParamGetter interface {
	GetParameters(ctx context.Context, names ...string) (map[string]string, error)
}

type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage, opts openai.ChatOptions) (string, error)
	Moderate(ctx context.Context, input string) (bool, error)
}

type HistoryStore interface {
	GetHistory(ctx context.Context, sessionID string, limit int) ([]domain.Turn, error)
	SaveTurn(ctx context.Context, sessionID, message, reply string) error
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// ChatService answers planner questions with the session's recent history
// and the caller's form snapshot as context.
type ChatService struct {
	llm   LLMClient
	state HistoryStore

	params      ParamGetter
	paramPrefix string

	historyLimit  int
	maxMessageLen int
	temperature   float64

	cacheMu     sync.RWMutex
	cacheLoaded bool
	model       string
	maxTokens   int
}

type ChatInput struct {
	SessionID     string
	Message       string
	FinancialData *domain.FormSnapshot
}

type ChatOutput struct {
	Response  string
	SessionID string
}

type Option func(*ChatService)

// WithParamStore loads model settings from <prefix>/config/* on first use.
func WithParamStore(p ParamGetter, prefix string) Option {
	return func(s *ChatService) {
		s.params = p
		s.paramPrefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	}
}

// WithModel sets the model used when no parameter store is configured.
func WithModel(model string) Option {
	return func(s *ChatService) {
		if m := strings.TrimSpace(model); m != "" {
			s.model = m
		}
	}
}

func WithMaxTokens(n int) Option {
	return func(s *ChatService) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithHistoryLimit bounds how many prior messages are replayed to the model.
func WithHistoryLimit(n int) Option {
	return func(s *ChatService) {
		if n >= 0 {
			s.historyLimit = n
		}
	}
}

func WithMaxMessageLength(n int) Option {
	return func(s *ChatService) {
		if n > 0 {
			s.maxMessageLen = n
		}
	}
}

func NewChatService(llm LLMClient, state HistoryStore, opts ...Option) (*ChatService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if state == nil {
		return nil, errors.New("usecase: history store must not be nil")
	}
	s := &ChatService{
		llm:           llm,
		state:         state,
		historyLimit:  defaultHistoryLimit,
		maxMessageLen: defaultMaxMessage,
		temperature:   defaultTemperature,
		model:         defaultModel,
		maxTokens:     defaultMaxTokens,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.params != nil && s.paramPrefix == "" {
		return nil, errors.New("usecase: parameter prefix must not be empty")
	}
	return s, nil
}

func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if utf8.RuneCountInString(message) > s.maxMessageLen {
		return ChatOutput{}, newError(ErrorInvalidInput, "message_too_long", nil)
	}
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		sessionID = newUUID()
	}

	financial, err := financialContext(in.FinancialData)
	if err != nil {
		return ChatOutput{}, newError(ErrorInvalidInput, "invalid_financial_data", err)
	}

	model, maxTokens, err := s.settings(ctx)
	if err != nil {
		return ChatOutput{}, newError(ErrorInternal, "ssm_load_error", err)
	}

	flagged, err := s.llm.Moderate(ctx, message)
	if err != nil {
		if isRateLimited(err) {
			return ChatOutput{}, newError(ErrorRateLimited, "moderation_rate_limited", err)
		}
		return ChatOutput{}, newError(ErrorUpstream, "moderation_error", err)
	}
	if flagged {
		return ChatOutput{}, newError(ErrorInvalidMessage, "moderation_flagged", nil)
	}

	turns, err := s.state.GetHistory(ctx, sessionID, (s.historyLimit+1)/2)
	if err != nil {
		return ChatOutput{}, newError(ErrorInternal, "history_read_error", err)
	}

	temperature := s.temperature
	answer, err := s.llm.Chat(ctx, model,
		buildPromptMessages(financial, recentMessages(turns, s.historyLimit), message),
		openai.ChatOptions{Temperature: &temperature, MaxTokens: maxTokens},
	)
	if err != nil {
		if isRateLimited(err) {
			return ChatOutput{}, newError(ErrorRateLimited, "openai_rate_limited", err)
		}
		return ChatOutput{}, newError(ErrorUpstream, "openai_error", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return ChatOutput{}, newError(ErrorUpstream, "empty_answer", nil)
	}

	if err := s.state.SaveTurn(ctx, sessionID, message, answer); err != nil {
		return ChatOutput{}, newError(ErrorInternal, "history_write_error", err)
	}

	return ChatOutput{Response: answer, SessionID: sessionID}, nil
}

// settings returns the model and token budget, reading them from the
// parameter store once when one is configured.
func (s *ChatService) settings(ctx context.Context) (string, int, error) {
	if s.params == nil {
		return s.model, s.maxTokens, nil
	}

	s.cacheMu.RLock()
	if s.cacheLoaded {
		defer s.cacheMu.RUnlock()
		return s.model, s.maxTokens, nil
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if s.cacheLoaded {
		return s.model, s.maxTokens, nil
	}

	modelKey := s.paramPrefix + "/config/openai_model"
	tokensKey := s.paramPrefix + "/config/max_tokens"
	values, err := s.params.GetParameters(ctx, modelKey, tokensKey)
	if err != nil {
		return "", 0, fmt.Errorf("usecase: load settings: %w", err)
	}
	model := strings.TrimSpace(values[modelKey])
	if model == "" {
		return "", 0, errors.New("usecase: load settings: openai model is empty")
	}
	maxTokens, err := strconv.Atoi(strings.TrimSpace(values[tokensKey]))
	if err != nil || maxTokens <= 0 {
		return "", 0, fmt.Errorf("usecase: load settings: invalid max tokens %q", values[tokensKey])
	}

	s.model = model
	s.maxTokens = maxTokens
	s.cacheLoaded = true
	return s.model, s.maxTokens, nil
}

func isRateLimited(err error) bool {
	var statusErr httpStatusCoder
	return errors.As(err, &statusErr) && statusErr.HTTPStatusCode() == 429
}

var newUUID = func() string {
	return uuid.NewString()
}
