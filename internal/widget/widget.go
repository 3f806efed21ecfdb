// Package widget implements the chat widget that sits next to the
// financial-planning form: it captures form snapshots, shows and hides the
// chat panel, and relays messages to the /chat endpoint.
package widget

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"financial-planner/internal/domain"
)

// Fallback replies shown in place of a server answer.
const (
	ApologyText      = "I apologize, but I encountered an error. Please try again."
	ConnectivityText = "Sorry, I'm having trouble connecting. Please try again later."
)

// VisibilityState is the state of the chat panel.
type VisibilityState int

const (
	Collapsed VisibilityState = iota
	Open
)

func (s VisibilityState) String() string {
	if s == Open {
		return "open"
	}
	return "collapsed"
}

// ChatClient sends one chat request. A returned error is a transport
// failure; an application failure is a reply with Success=false.
type ChatClient interface {
	Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatReply, error)
}

// Widget wires a View to a ChatClient. Every method except Wait must run on
// the dispatcher's goroutine.
type Widget struct {
	view       View
	client     ChatClient
	dispatcher Dispatcher
	ctx        context.Context
	logger     *slog.Logger

	snapshot *domain.FormSnapshot
	state    VisibilityState

	inflight sync.WaitGroup
}

type Option func(*Widget)

// WithContext sets the context requests are issued under. Requests are not
// cancelled by the widget itself.
func WithContext(ctx context.Context) Option {
	return func(w *Widget) {
		if ctx != nil {
			w.ctx = ctx
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Widget) {
		if l != nil {
			w.logger = l
		}
	}
}

// New binds the widget's handlers to view. The toggle and the panel start
// hidden; the toggle appears after the first form submission.
func New(view View, client ChatClient, dispatcher Dispatcher, opts ...Option) (*Widget, error) {
	if view == nil {
		return nil, errors.New("widget: view must not be nil")
	}
	if client == nil {
		return nil, errors.New("widget: chat client must not be nil")
	}
	if dispatcher == nil {
		return nil, errors.New("widget: dispatcher must not be nil")
	}
	w := &Widget{
		view:       view,
		client:     client,
		dispatcher: dispatcher,
		ctx:        context.Background(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	view.SetToggleVisible(false)
	view.SetPanelVisible(false)

	view.OnToggleClick(w.ToggleOpen)
	view.OnCloseClick(w.Close)
	view.OnSend(w.SendMessage)
	view.OnFormSubmit(w.CaptureForm)
	return w, nil
}

// ToggleOpen shows the panel and hides the toggle.
func (w *Widget) ToggleOpen() {
	w.state = Open
	w.view.SetPanelVisible(true)
	w.view.SetToggleVisible(false)
	w.view.ScrollToBottom()
}

// Close hides the panel and brings the toggle back.
func (w *Widget) Close() {
	w.state = Collapsed
	w.view.SetPanelVisible(false)
	w.view.SetToggleVisible(true)
}

// CaptureForm replaces the stored snapshot with the submitted form values
// and reveals the toggle, even while the panel is open.
func (w *Widget) CaptureForm(ev SubmitEvent) {
	ev.PreventDefault()
	w.snapshot = CaptureSnapshot(ev)
	w.logger.Debug("form snapshot captured", "children", len(w.snapshot.Children))
	w.view.SetToggleVisible(true)
}

// Snapshot returns a copy of the current snapshot, or nil before the first
// submission.
func (w *Widget) Snapshot() *domain.FormSnapshot {
	return w.snapshot.Clone()
}

// State reports whether the panel is open.
func (w *Widget) State() VisibilityState {
	return w.state
}

// SendMessage echoes the input to the transcript and posts it with the
// current snapshot. Blank input is ignored. Replies are appended in the
// order they arrive.
func (w *Widget) SendMessage() {
	message := strings.TrimSpace(w.view.InputValue())
	if message == "" {
		return
	}

	w.AppendMessage(domain.RoleUser, message)
	w.view.ClearInput()

	req := domain.ChatRequest{
		Message:       message,
		FinancialData: w.snapshot,
	}
	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()
		reply, err := w.client.Chat(w.ctx, req)
		if err != nil {
			w.logger.Warn("chat request failed", "err", err)
		} else if !reply.Success {
			w.logger.Warn("chat reply unsuccessful", "error", reply.Error)
		}
		msg := ReplyMessage(reply, err)
		w.dispatcher.Dispatch(func() {
			w.AppendMessage(msg.Role, msg.Content)
		})
	}()
}

// AppendMessage adds one entry to the transcript and scrolls to it.
func (w *Widget) AppendMessage(role, content string) {
	w.view.AppendMessage(domain.ChatMessage{Role: role, Content: content})
	w.view.ScrollToBottom()
}

// Wait blocks until every request issued so far has completed and handed its
// reply to the dispatcher. A request that never resolves blocks forever.
func (w *Widget) Wait() {
	w.inflight.Wait()
}

// ReplyMessage maps the outcome of a chat request to the assistant entry
// shown for it.
func ReplyMessage(reply domain.ChatReply, err error) domain.ChatMessage {
	switch {
	case err != nil:
		return domain.ChatMessage{Role: domain.RoleAssistant, Content: ConnectivityText}
	case !reply.Success:
		return domain.ChatMessage{Role: domain.RoleAssistant, Content: ApologyText}
	default:
		return domain.ChatMessage{Role: domain.RoleAssistant, Content: reply.Response}
	}
}
