package middleware_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guihenriquebr/sefra/pkg/adapters/memory"
	"github.com/guihenriquebr/sefra/pkg/domain"
	"github.com/guihenriquebr/sefra/pkg/persistence/middleware"
)

func TestMask(t *testing.T) {
	patterns, err := middleware.CompilePatterns(middleware.DefaultPIIPatterns)
	require.NoError(t, err)

	fields := map[string]string{
		domain.FieldName:  "Maria",
		domain.FieldEmail: "maria@example.com",
		domain.FieldPhone: "(11) 98765-4321",
		domain.FieldCity:  "Curitiba",
	}
	got := middleware.Mask(fields, patterns)

	assert.Equal(t, map[string]string{
		domain.FieldName:  middleware.Masked,
		domain.FieldEmail: middleware.Masked,
		domain.FieldPhone: middleware.Masked,
		domain.FieldCity:  "Curitiba",
	}, got)
	assert.Equal(t, "Maria", fields[domain.FieldName], "input must not be modified")
}

func TestCompilePatterns_Invalid(t *testing.T) {
	_, err := middleware.CompilePatterns([]string{"("})
	assert.Error(t, err)
}

func TestPIIMiddleware_MasksDeliveredSessions(t *testing.T) {
	underlying := memory.NewStore()
	mw, err := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)
	require.NoError(t, err)
	store := mw(underlying)
	ctx := context.Background()

	state := domain.NewState("s1")
	state.Status = domain.StatusActive
	state.Record = state.Record.Merge(map[string]string{domain.FieldEmail: "maria@example.com", domain.FieldCity: "Curitiba"})
	require.NoError(t, store.Save(ctx, "s1", state))

	stored, err := underlying.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", stored.Record.Fields[domain.FieldEmail], "in-progress sessions keep their values")

	state.Status = domain.StatusSuccess
	require.NoError(t, store.Save(ctx, "s1", state))

	stored, err = underlying.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, middleware.Masked, stored.Record.Fields[domain.FieldEmail])
	assert.Equal(t, "Curitiba", stored.Record.Fields[domain.FieldCity])
	assert.Equal(t, "maria@example.com", state.Record.Fields[domain.FieldEmail], "caller state must not be modified")
}

func TestChain_Order(t *testing.T) {
	underlying := memory.NewStore()
	pii, err := middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns)
	require.NoError(t, err)
	enc := encrypted(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	store := middleware.Chain(underlying, pii, enc)
	ctx := context.Background()

	state := domain.NewState("s1")
	state.Status = domain.StatusSuccess
	state.Record = state.Record.Merge(map[string]string{domain.FieldName: "Maria"})
	require.NoError(t, store.Save(ctx, "s1", state))

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, middleware.Masked, loaded.Record.Fields[domain.FieldName])
}
