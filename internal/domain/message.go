package domain

// Role identifies the author of a conversation turn. The set is closed so
// serialization and display code can handle every case exhaustively.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleHuman, RoleAI:
		return true
	}
	return false
}

// Message is a single role-tagged conversation turn. Messages form an
// append-mostly ordered sequence; ordering is significant.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
