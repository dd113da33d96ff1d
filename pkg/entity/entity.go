package entity

import "strings"

// DefaultUserID is the memory space used when a caller does not identify itself.
const DefaultUserID = "anon"

// Context identifies who a request acts for. The UserID selects the
// memory space every read and write is confined to.
type Context struct {
	// UserID owns the memory space touched by the request
	UserID string

	// RequestID correlates log lines for a single HTTP request (optional)
	RequestID string
}

// NewContext creates a new Context for the given user and request.
// A blank user ID resolves to DefaultUserID.
func NewContext(userID, requestID string) Context {
	return Context{
		UserID:    ResolveUserID(userID),
		RequestID: requestID,
	}
}

// ResolveUserID trims the user ID and substitutes DefaultUserID when it is blank.
func ResolveUserID(userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return DefaultUserID
	}
	return userID
}
