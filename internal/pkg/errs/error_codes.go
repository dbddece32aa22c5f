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

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Lobby and Content Business Logic Errors
const (
	// ErrLobbyNotFound indicates that the lobby id targeted by the operation does not exist.
	ErrLobbyNotFound = 2101

	// ErrLobbyNameRequired indicates that lobby creation was attempted without a name.
	ErrLobbyNameRequired = 2102

	// ErrMessageContentTooLong indicates that the message text exceeded the maximum length limit.
	ErrMessageContentTooLong = 2201

	// ErrMessageContentEmpty indicates that a chat message was posted with no text.
	ErrMessageContentEmpty = 2202
)

// 3xxx: User and Presence Errors
const (
	// ErrNameRequired indicates that registration was attempted with an empty or whitespace-only name.
	ErrNameRequired = 3101

	// ErrNameTaken indicates that the display name is already bound to a different identity
	// in the durable store.
	ErrNameTaken = 3102

	// ErrUserNotFound indicates that the user id targeted by the operation is unknown.
	ErrUserNotFound = 3103
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrStoreUnavailable indicates that the durable store could not be reached within
	// the configured timeout, or that a durable write failed.
	ErrStoreUnavailable = 5001
)
