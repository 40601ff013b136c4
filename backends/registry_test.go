package backends

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	family   string
	closed   bool
	closeErr error
}

func (a *stubAdapter) Family() string { return a.family }

func (a *stubAdapter) Complete(context.Context, string, *CompletionRequest) (*CompletionResponse, error) {
	return &CompletionResponse{}, nil
}

func (a *stubAdapter) Close() error {
	a.closed = true
	return a.closeErr
}

func TestRegistry_Register(t *testing.T) {
	t.Run("registers and retrieves by family", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(&stubAdapter{family: "anthropic"}))

		adapter, err := reg.Get("anthropic")
		require.NoError(t, err)
		assert.Equal(t, "anthropic", adapter.Family())
		assert.Equal(t, 1, reg.Count())
	})

	t.Run("rejects duplicate family", func(t *testing.T) {
		reg := NewRegistry()
		require.NoError(t, reg.Register(&stubAdapter{family: "anthropic"}))

		err := reg.Register(&stubAdapter{family: "anthropic"})
		assert.ErrorIs(t, err, ErrFamilyAlreadyRegistered)
	})

	t.Run("rejects nil and empty family", func(t *testing.T) {
		reg := NewRegistry()
		assert.Error(t, reg.Register(nil))
		assert.Error(t, reg.Register(&stubAdapter{family: ""}))
	})
}

func TestRegistry_Get_Unknown(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get("missing")
	assert.ErrorIs(t, err, ErrFamilyNotRegistered)
}

func TestRegistry_CloseAll(t *testing.T) {
	reg := NewRegistry()
	a := &stubAdapter{family: "a", closeErr: errors.New("close failed")}
	b := &stubAdapter{family: "b"}
	require.NoError(t, reg.Register(a))
	require.NoError(t, reg.Register(b))

	err := reg.CloseAll()
	assert.Error(t, err)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestAdapterError(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewAdapterError("anthropic", "http_error", "request failed", 0, cause)

	assert.Contains(t, err.Error(), "anthropic")
	assert.Contains(t, err.Error(), "request failed")
	assert.ErrorIs(t, err, cause)
}
