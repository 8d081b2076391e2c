package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevels(t *testing.T) {
	tests := []struct {
		level       string
		info, debug bool
	}{
		{"debug", true, true},
		{"info", true, false},
		{"", true, false},
		{"WARN", false, false},
		{"error", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log, err := NewWithWriter(tt.level, &buf)
			require.NoError(t, err)

			log.Info("visible", "planes", 3)
			log.V(1).Info("detail")
			assert.Equal(t, tt.info, bytes.Contains(buf.Bytes(), []byte("visible")))
			assert.Equal(t, tt.debug, bytes.Contains(buf.Bytes(), []byte("detail")))
		})
	}
}

func TestErrorsAlwaysLogged(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter("error", &buf)
	require.NoError(t, err)
	log.WithName("merge").Error(assert.AnError, "failed")
	assert.Contains(t, buf.String(), "merge")
	assert.Contains(t, buf.String(), "failed")
}

func TestUnknownLevel(t *testing.T) {
	_, err := New("chatty")
	assert.Error(t, err)
}
