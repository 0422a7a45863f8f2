package ledger

// Persisted record shapes. JSON field names are part of the wire contract.

// SessionRecord is the full session aggregate at games/session-{id}.
type SessionRecord struct {
	Currency        string                  `json:"currency"`
	InitialBalance  int                     `json:"initialBalance"`
	CrossStartBonus int                     `json:"crossStartBonus"`
	NumberOfPlayers int                     `json:"numberOfPlayers"`
	Players         map[string]PlayerRecord `json:"players"`
	WhenCreated     int64                   `json:"whenCreated"`
	WhenExpired     int64                   `json:"whenExpired"`
}

// PlayerRecord is one participant's subrecord, keyed by access code.
// IsBank is "owner" for the participant created first, "false" otherwise.
type PlayerRecord struct {
	Name    string `json:"name"`
	IsBank  string `json:"isBank"`
	Balance int    `json:"balance"`
	Status  string `json:"status"`
}

// AccessRecord is the global access-code index entry at access/{code}.
// Notification sequence numbers start at 1.
type AccessRecord struct {
	SessionID     int                        `json:"sessionId"`
	Token         string                     `json:"token"`
	Notifications map[int]NotificationRecord `json:"notifications"`
}

// NotificationRecord is one notification entry inside an access record.
type NotificationRecord struct {
	ID            int    `json:"id"`
	Type          string `json:"type"`
	TextPrimary   string `json:"textPrimary"`
	TextSecondary string `json:"textSecondary"`
	Timestamp     int64  `json:"timestamp"`
	Read          bool   `json:"read"`
}

// idRecord claims a session id; the counter doubles as the claim marker.
type idRecord struct {
	TransactionHistory int `json:"transactionHistory"`
}
