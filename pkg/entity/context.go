package entity

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey int

const (
	// entityContextKey is the key for storing an entity.Context in a context.Context
	entityContextKey contextKey = iota
)

// ContextWithUserID adds a user-only entity.Context to a context.Context.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, entityContextKey, NewContext(userID, ""))
}

// ContextWithEntity adds a full entity.Context to a context.Context.
func ContextWithEntity(ctx context.Context, entityCtx Context) context.Context {
	return context.WithValue(ctx, entityContextKey, entityCtx)
}

// GetEntityContext retrieves the entity.Context from a context.Context.
// If no entity.Context is found, it returns a zero-valued entity.Context and false.
func GetEntityContext(ctx context.Context) (Context, bool) {
	entityCtx, ok := ctx.Value(entityContextKey).(Context)
	return entityCtx, ok
}
