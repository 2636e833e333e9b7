package chat

import "time"

// Role is the account type of a chat user.
type Role string

const (
	RoleGuest Role = "guest"
	RoleHost  Role = "host"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleGuest, RoleHost, RoleAdmin:
		return true
	}
	return false
}

// User is an account of the messaging backend.
type User struct {
	ID           string // ID is a uuid string
	FirstName    string
	LastName     string
	Email        string // Email is unique; login matches it case-insensitively
	PhoneNumber  string
	Role         Role
	PasswordHash string // PasswordHash is a bcrypt hash, never serialized to clients
	IsActive     bool
	CreatedAt    time.Time
}

// Conversation groups participants and the messages they exchange.
type Conversation struct {
	ID           string
	Participants []User
	Messages     []Message
	CreatedAt    time.Time
}

// HasParticipant reports whether userID takes part in the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p.ID == userID {
			return true
		}
	}
	return false
}

// Message is a single message sent inside a conversation.
type Message struct {
	ID             string
	ConversationID string
	Sender         User
	Body           string
	SentAt         time.Time
}
