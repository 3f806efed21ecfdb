package domain

// Roles used in transcripts and LLM prompts.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is the provider-agnostic chat message shape used by the widget
// transcript, the handler and LLM integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body the widget posts to /chat.
type ChatRequest struct {
	Message       string        `json:"message"`
	FinancialData *FormSnapshot `json:"financialData"`
}

// ChatReply is the body /chat answers with. Success=false carries an
// application-level failure; Response may then hold a diagnostic text.
type ChatReply struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}
