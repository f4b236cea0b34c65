/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:     {Code: ErrInvalidParams, Message: "Invalid request parameters."},
	ErrInvalidPayload:    {Code: ErrInvalidPayload, Message: "Unsupported event format."},
	ErrRateLimitExceeded: {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Room and Message Business Logic Errors
	ErrRoomNotFound:    {Code: ErrRoomNotFound, Message: "Chat room not found."},
	ErrNotRoomMember:   {Code: ErrNotRoomMember, Message: "You are not a member of this room."},
	ErrMessageEmpty:    {Code: ErrMessageEmpty, Message: "Message cannot be empty."},
	ErrMessageTooLong:  {Code: ErrMessageTooLong, Message: "Message is too long."},
	ErrMessageNotFound: {Code: ErrMessageNotFound, Message: "Message not found."},

	// 3xxx: Authentication and Session Errors
	ErrUnauthorized: {Code: ErrUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized},
	ErrTokenInvalid: {Code: ErrTokenInvalid, Message: "Your session has expired. Please sign in again.", Status: http.StatusUnauthorized},
	ErrUserNotFound: {Code: ErrUserNotFound, Message: "Account not found.", Status: http.StatusUnauthorized},

	// 4xxx: Persistence Errors
	ErrPersistence: {Code: ErrPersistence, Message: "Could not save your changes. Please try again."},

	// 5xxx: Internal System Errors
	ErrUnknown: {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
}
