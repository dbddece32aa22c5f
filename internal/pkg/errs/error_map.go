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
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Lobby and Content Business Logic Errors
	ErrLobbyNotFound:         {Code: ErrLobbyNotFound, Message: "Lobby not found.", Status: http.StatusNotFound},
	ErrLobbyNameRequired:     {Code: ErrLobbyNameRequired, Message: "Lobby name required.", Status: http.StatusBadRequest},
	ErrMessageContentTooLong: {Code: ErrMessageContentTooLong, Message: "Message is too long.", Status: http.StatusBadRequest},
	ErrMessageContentEmpty:   {Code: ErrMessageContentEmpty, Message: "Message text required.", Status: http.StatusBadRequest},

	// 3xxx: User and Presence Errors
	ErrNameRequired: {Code: ErrNameRequired, Message: "Name required.", Status: http.StatusBadRequest},
	ErrNameTaken:    {Code: ErrNameTaken, Message: "Username taken.", Status: http.StatusConflict},
	ErrUserNotFound: {Code: ErrUserNotFound, Message: "User not found.", Status: http.StatusNotFound},

	// 5xxx: Internal System Errors
	ErrUnknown:          {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrStoreUnavailable: {Code: ErrStoreUnavailable, Message: "Storage is temporarily unavailable. Please try again later.", Status: http.StatusServiceUnavailable},
}
