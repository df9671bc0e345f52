// CivicVoice | 2026
// database_test.go

package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJitteredDuration(t *testing.T) {
	t.Parallel()

	base := 7 * time.Hour
	for i := 0; i < 50; i++ {
		got := jitteredDuration(base)
		require.GreaterOrEqual(t, got, base)
		require.Less(t, got, base+time.Hour)
	}
}

func TestJitteredDurationSmallBases(t *testing.T) {
	t.Parallel()

	// Bases with no room for jitter must pass through, never panic.
	for _, base := range []time.Duration{0, 1, 6, -time.Hour} {
		assert.Equal(t, base, jitteredDuration(base))
	}
}
