package entity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveUserID(t *testing.T) {
	assert.Equal(t, DefaultUserID, ResolveUserID(""))
	assert.Equal(t, DefaultUserID, ResolveUserID("   "))
	assert.Equal(t, "u1", ResolveUserID(" u1 "))
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := GetEntityContext(context.Background())
	assert.False(t, ok)

	ctx := ContextWithEntity(context.Background(), NewContext("u1", "req-1"))
	got, ok := GetEntityContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "req-1", got.RequestID)

	ctx = ContextWithUserID(context.Background(), "")
	got, ok = GetEntityContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, DefaultUserID, got.UserID)
}
