package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"financial-planner/internal/domain"
	"financial-planner/internal/metrics"
	"financial-planner/internal/planner"
	"financial-planner/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"
	sessionCookie     = "planner_session"
	sessionMaxAge     = 30 * 24 * 60 * 60
	maxBodyBytes      = 1 << 20

	failurePrefix = "I apologize, but I encountered an error: "
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type ChatUseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

// Handler serves /chat and /calculate both as a Lambda function and as
// plain HTTP routes.
type Handler struct {
	chatUseCase ChatUseCase
}

func NewHandler(chat ChatUseCase) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	return &Handler{chatUseCase: chat}, nil
}

// Handle answers one /chat or /calculate request. Chat failures are reported
// in the body with success=false; /calculate answers 400 for unusable forms.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	logger := slog.With("correlation_id", correlationID)
	headers := map[string]string{
		"Content-Type":    "application/json",
		correlationHeader: correlationID,
	}

	if req.HTTPMethod != "" && !strings.EqualFold(req.HTTPMethod, http.MethodPost) {
		headers["Allow"] = http.MethodPost
		return respond(http.StatusMethodNotAllowed, headers, domain.ChatReply{
			Success: false,
			Error:   string(usecase.ErrorInvalidInput),
		})
	}

	if isCalculate(req.Path) {
		return h.calculate(req, headers, logger)
	}
	return h.chat(ctx, req, headers, logger)
}

func (h *Handler) chat(ctx context.Context, req events.APIGatewayProxyRequest, headers map[string]string, logger *slog.Logger) (events.APIGatewayProxyResponse, error) {
	start := time.Now()

	sessionID, fresh := sessionFromHeaders(req.Headers)
	if fresh {
		headers["Set-Cookie"] = sessionCookieValue(sessionID)
	}

	outcome := "success"
	defer func() {
		metrics.ChatRequestsTotal.WithLabelValues(outcome).Inc()
		metrics.ChatLatency.Observe(time.Since(start).Seconds())
	}()

	var body domain.ChatRequest
	if err := decodeBody(req, &body); err != nil {
		outcome = string(usecase.ErrorInvalidInput)
		logger.Warn("invalid chat request body", "err", err)
		return respond(http.StatusOK, headers, failureReply(usecase.ErrorInvalidInput))
	}

	out, err := h.chatUseCase.Chat(ctx, usecase.ChatInput{
		SessionID:     sessionID,
		Message:       body.Message,
		FinancialData: body.FinancialData,
	})
	if err != nil {
		code, reason := classify(err)
		outcome = string(code)
		logger.Error("chat request failed", "code", code, "reason", reason, "err", err, "session_id", sessionID)
		return respond(http.StatusOK, headers, failureReply(code))
	}

	logger.Info("chat request answered",
		"session_id", out.SessionID,
		"has_financial_data", body.FinancialData != nil,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return respond(http.StatusOK, headers, domain.ChatReply{Success: true, Response: out.Response})
}

// calculate returns the planner report for a form snapshot, or 400 when the
// form can't be projected.
func (h *Handler) calculate(req events.APIGatewayProxyRequest, headers map[string]string, logger *slog.Logger) (events.APIGatewayProxyResponse, error) {
	var snapshot domain.FormSnapshot
	if err := decodeBody(req, &snapshot); err != nil {
		metrics.CalculateRequestsTotal.WithLabelValues(string(usecase.ErrorInvalidInput)).Inc()
		logger.Warn("invalid calculate request body", "err", err)
		return respond(http.StatusBadRequest, headers, errorResponse{
			Error:   string(usecase.ErrorInvalidInput),
			Message: "request body is not a valid form",
		})
	}

	report, err := planner.Analyze(snapshot)
	if err != nil {
		metrics.CalculateRequestsTotal.WithLabelValues(string(usecase.ErrorInvalidInput)).Inc()
		logger.Warn("form could not be analyzed", "err", err)
		return respond(http.StatusBadRequest, headers, errorResponse{
			Error:   string(usecase.ErrorInvalidInput),
			Message: err.Error(),
		})
	}

	metrics.CalculateRequestsTotal.WithLabelValues("success").Inc()
	logger.Info("financial health calculated", "level", report.Analysis.Level, "children", len(report.Education))
	return respond(http.StatusOK, headers, report)
}

// Routes exposes Handle over net/http along with health and metrics
// endpoints.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Post("/chat", h.serveEvent)
	r.Post("/calculate", h.serveEvent)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

// serveEvent adapts a net/http request to the Lambda event Handle expects.
func (h *Handler) serveEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		sep := ", "
		if strings.EqualFold(k, "Cookie") {
			sep = "; "
		}
		headers[k] = strings.Join(v, sep)
	}
	if headerValue(headers, correlationHeader) == "" {
		if id := chiMiddleware.GetReqID(r.Context()); id != "" {
			headers[correlationHeader] = id
		}
	}

	resp, err := h.Handle(r.Context(), events.APIGatewayProxyRequest{
		HTTPMethod: r.Method,
		Path:       r.URL.Path,
		Headers:    headers,
		Body:       string(body),
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = io.WriteString(w, resp.Body)
}

func isCalculate(path string) bool {
	return strings.HasSuffix(strings.TrimRight(path, "/"), "/calculate")
}

func decodeBody(req events.APIGatewayProxyRequest, v any) error {
	raw := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return err
		}
		raw = decoded
	}
	return json.Unmarshal(raw, v)
}

func classify(err error) (usecase.ErrorCode, string) {
	var ucErr *usecase.Error
	if errors.As(err, &ucErr) {
		return ucErr.Code, ucErr.Reason
	}
	return usecase.ErrorInternal, "unexpected_error"
}

func failureReply(code usecase.ErrorCode) domain.ChatReply {
	return domain.ChatReply{
		Success:  false,
		Response: failurePrefix + failureText(code),
		Error:    string(code),
	}
}

func failureText(code usecase.ErrorCode) string {
	switch code {
	case usecase.ErrorInvalidInput:
		return "the message was empty or could not be read."
	case usecase.ErrorInvalidMessage:
		return "that message can't be answered."
	case usecase.ErrorRateLimited:
		return "too many requests right now, please retry shortly."
	case usecase.ErrorUpstream:
		return "the assistant is temporarily unavailable."
	default:
		return "something went wrong on our side."
	}
}

func respond(status int, headers map[string]string, body any) (events.APIGatewayProxyResponse, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{}, err
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       string(b),
	}, nil
}

// sessionFromHeaders returns the session id carried by the request cookie,
// or a new one with fresh=true.
func sessionFromHeaders(headers map[string]string) (id string, fresh bool) {
	if raw := headerValue(headers, "Cookie"); raw != "" {
		r := &http.Request{Header: http.Header{"Cookie": {raw}}}
		if c, err := r.Cookie(sessionCookie); err == nil && strings.TrimSpace(c.Value) != "" {
			return c.Value, false
		}
	}
	return uuid.NewString(), true
}

func sessionCookieValue(id string) string {
	c := &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return c.String()
}

func headerValue(headers map[string]string, key string) string {
	if v, ok := headers[key]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
