package app

import "errors"

var (
	// ErrInvalidCredentials is returned when the supplied credentials do not match.
	// The message is shown to end users and must not enable account enumeration.
	ErrInvalidCredentials = errors.New("Incorrect email address or password")

	ErrEmailAndPasswordRequired = errors.New("email and password required")
	ErrEmailAlreadyExists       = errors.New("email already exists")

	// ErrRoleMismatch is returned when a brand endpoint is hit by a blogger
	// account or vice versa.
	ErrRoleMismatch = errors.New("profile role does not match")

	// ErrForbidden covers access to resources the caller is not a party to,
	// such as someone else's conversation.
	ErrForbidden = errors.New("forbidden")

	ErrNotFound = errors.New("not found")

	// ErrSameRoleConversation is returned when a conversation is requested
	// between two accounts on the same side of the marketplace.
	ErrSameRoleConversation = errors.New("conversation requires one brand and one blogger")

	ErrMessageTextRequired = errors.New("message text required")
)
