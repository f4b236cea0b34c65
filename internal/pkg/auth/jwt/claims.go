package jwt

import "github.com/golang-jwt/jwt"

// Payload defines the structure of the JSON Web Token (JWT) claims for Ripple.
// It includes the standard registered claims and custom claims necessary for
// identifying users within the chat system.
type Payload struct {
	// StandardClaims embeds the necessary JWT standard fields such as Exp (Expiration),
	// Iat (Issued At), and Iss (Issuer). These are crucial for token validity checks.
	jwt.StandardClaims `json:"standard_claims"`

	// UserID is the unique identifier of the account the token was issued for.
	// The Connection Gate resolves it against the user store at admission time.
	UserID string `json:"user_id"`

	// Username is the account's sign-in name, carried for logging context only.
	// Display data is always re-read from the store at admission, never trusted
	// from the token.
	Username string `json:"username"`

	// UserType defines the role of the account (e.g., "member", "admin").
	UserType string `json:"user_type"`
}
