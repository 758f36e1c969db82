package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// Subject carries the user id. The role is deliberately absent: it is looked up
// on every access check so that role changes apply immediately.
type Claims struct {
	jwt.RegisteredClaims

	BankID    string    `json:"bank_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	TokenType TokenType `json:"token_type"`
}

func (c Claims) UserID() string { return c.Subject }
