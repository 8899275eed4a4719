// Package domain defines the authentication domain models: signed token
// claims, account roles, and the error taxonomy for credential handling.
package domain

// TokenType discriminates the purpose a signed token was issued for. A token
// of one type is never accepted where another type is expected.
type TokenType string

const (
	// AccessToken is the short-lived bearer token for API access.
	AccessToken TokenType = "access"

	// RefreshToken is the longer-lived single-use token exchanged for a new
	// token pair.
	RefreshToken TokenType = "refresh"

	// CreationCodeToken is the short-lived token that binds a signup attempt
	// to its pending one-time code session.
	CreationCodeToken TokenType = "creationCode"
)

// Role is the authorization level carried inside access tokens.
type Role string

const (
	// MemberRole is the default role for new accounts.
	MemberRole Role = "member"

	// AdminRole grants access to administrative endpoints.
	AdminRole Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == MemberRole || r == AdminRole
}
