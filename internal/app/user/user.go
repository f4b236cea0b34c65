/*
Package user contains core data structures related to user identity.

It defines the immutable Identity struct produced by the Connection Gate at admission
time and carried by every live connection for its whole lifetime.
*/
package user

// Identity is the validated identity of a connected user. It is resolved exactly once,
// when the connection is admitted, and never re-derived per event.
type Identity struct {

	// ID is the unique identifier of the user in the persisted store.
	ID string `json:"id"`

	// Username is the account's sign-in name.
	Username string `json:"username"`

	// DisplayName is the name shown to other participants.
	DisplayName string `json:"displayName"`

	// AvatarURL is the URL for the user's avatar, if any.
	AvatarURL string `json:"avatar,omitempty"`
}
