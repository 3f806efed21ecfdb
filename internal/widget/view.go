package widget

import "financial-planner/internal/domain"

// View is the rendering surface the widget drives. Implementations own the
// toggle control, the chat panel with its transcript and input, and the
// companion form. Handlers registered through the On* methods must be
// invoked on the same goroutine that runs Dispatcher callbacks.
type View interface {
	OnToggleClick(fn func())
	OnCloseClick(fn func())
	// OnSend fires for the send button and for Enter in the input.
	OnSend(fn func())
	OnFormSubmit(fn func(SubmitEvent))

	SetToggleVisible(visible bool)
	SetPanelVisible(visible bool)

	InputValue() string
	ClearInput()

	// AppendMessage renders msg as plain text, styled by msg.Role.
	AppendMessage(msg domain.ChatMessage)
	ScrollToBottom()
}

// FormValues reads the companion form. Value returns a single field keyed by
// id; Values returns every element tagged with class, in document order.
type FormValues interface {
	Value(id string) string
	Values(class string) []string
}

// SubmitEvent is a form submission.
type SubmitEvent interface {
	FormValues
	PreventDefault()
}
