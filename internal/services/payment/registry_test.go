package payment

import (
	"testing"

	"keyshop_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySelection(t *testing.T) {
	cfg := &config.Config{}
	cfg.Payments.DefaultProvider = "nicepay"

	r, err := NewRegistry(cfg)
	require.NoError(t, err)

	assert.Equal(t, "nicepay", r.Default().Name())

	p, err := r.Get("anypay")
	require.NoError(t, err)
	assert.Equal(t, "anypay", p.Name())

	_, err = r.Get("robokassa")
	assert.ErrorIs(t, err, ErrUnknownProvider)
}

func TestRegistryUnknownDefault(t *testing.T) {
	cfg := &config.Config{}
	cfg.Payments.DefaultProvider = "qiwi"

	_, err := NewRegistry(cfg)
	assert.Error(t, err)
}
