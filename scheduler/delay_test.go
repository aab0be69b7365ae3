package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDelay(t *testing.T) {
	tests := []struct {
		in   string
		want Delay
	}{
		{"none", DelayNone},
		{"10m", DelayTenMinutes},
		{"30M", DelayThirtyMinutes},
		{" 1h ", DelayOneHour},
		{"1d", DelayOneDay},
		{"forever", DelayForever},
		{"0", DelayNone},
		{"-1", DelayForever},
		{"90", Delay(90)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDelay(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "soon", "-2", "1.5", "9223372037", "9223372036854775807"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			_, err := ParseDelay(bad)
			assert.ErrorIs(t, err, ErrInvalidDelay)
		})
	}
}

func TestDelayDuration(t *testing.T) {
	assert.Equal(t, 10*time.Minute, DelayTenMinutes.Duration())
	assert.Zero(t, DelayForever.Duration())
	assert.Zero(t, DelayNone.Duration())
	assert.Equal(t, "forever", DelayForever.String())
	assert.Equal(t, "1h0m0s", DelayOneHour.String())
	assert.Positive(t, MaxDelay.Duration())
}
