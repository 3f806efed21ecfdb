package domain

// Turn is a single persisted exchange of a chat session.
type Turn struct {
	PK        string
	SK        string
	SessionID string
	Message   string
	Reply     string
	Status    string
	TTL       int64
}
