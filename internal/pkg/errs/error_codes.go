/*
Package errs provides custom error types and application-level error code constants.

These error codes are used to clearly identify specific business or system errors
both internally within the server and in communication with clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrInvalidPayload indicates that an inbound WebSocket event payload could not be decoded.
	ErrInvalidPayload = 1002

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1003
)

// 2xxx: Room and Message Business Logic Errors
const (
	// ErrRoomNotFound indicates that the target room does not exist.
	ErrRoomNotFound = 2101

	// ErrNotRoomMember indicates that the user is not a member of the target room.
	ErrNotRoomMember = 2102

	// ErrMessageEmpty indicates that the message content was empty after trimming.
	ErrMessageEmpty = 2201

	// ErrMessageTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageTooLong = 2202

	// ErrMessageNotFound indicates that the target message does not exist,
	// or that the caller is not its sender. The two cases are deliberately
	// indistinguishable to the client.
	ErrMessageNotFound = 2203
)

// 3xxx: Authentication and Session Errors
const (
	// ErrUnauthorized indicates that no access token was supplied with the connection attempt.
	ErrUnauthorized = 3001

	// ErrTokenInvalid indicates that the supplied access token is invalid or expired.
	ErrTokenInvalid = 3002

	// ErrUserNotFound indicates that the token resolved to a user that no longer exists.
	ErrUserNotFound = 3003
)

// 4xxx: Persistence Errors
const (
	// ErrPersistence indicates that the backing store was unreachable or rejected a write.
	ErrPersistence = 4001
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000
)
