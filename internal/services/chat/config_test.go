package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidate_LeaseCoversBothGatewayCalls(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		ttl     time.Duration
		wantErr bool
	}{
		{"comfortably longer", 60 * time.Second, 3 * time.Minute, false},
		{"exactly two calls", 60 * time.Second, 2 * time.Minute, true},
		{"shorter than one call", 60 * time.Second, 30 * time.Second, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			c.GenerationTimeout = tt.timeout
			c.LeaseTTL = tt.ttl
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
