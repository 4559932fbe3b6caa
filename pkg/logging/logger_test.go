package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		enabled zapcore.Level
	}{
		{name: "production info", cfg: Config{Level: "info"}, enabled: zapcore.InfoLevel},
		{name: "development debug", cfg: Config{Level: "debug", Development: true}, enabled: zapcore.DebugLevel},
		{name: "invalid level", cfg: Config{Level: "loud"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(tt.enabled))
		})
	}
}

func TestMaskCardNumber(t *testing.T) {
	assert.Equal(t, "****1307", MaskCardNumber("4263971921001307"))
	assert.Equal(t, "****", MaskCardNumber("123"))
	assert.Equal(t, "****", MaskCardNumber(""))
}
