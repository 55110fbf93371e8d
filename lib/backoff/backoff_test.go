package backoff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextDoublesUpToCap(t *testing.T) {
	policy := Default()

	current := policy.Base
	expected := []time.Duration{
		time.Second * 4,
		time.Second * 8,
		time.Second * 16,
		time.Second * 32,
		time.Second * 60,
		time.Second * 60,
	}
	for _, want := range expected {
		current = policy.Next(current)
		require.Equal(t, want, current)
	}
}

func TestClamp(t *testing.T) {
	policy := Default()
	require.Equal(t, time.Second*5, policy.Clamp(time.Second*5))
	require.Equal(t, time.Second*60, policy.Clamp(time.Minute*10))
}

func TestJitterBounds(t *testing.T) {
	base := time.Second * 10
	for i := 0; i < 100; i++ {
		jittered := Jitter(base)
		require.GreaterOrEqual(t, jittered, base+base/10)
		require.LessOrEqual(t, jittered, base+3*base/10)
	}
}

func TestJitterZero(t *testing.T) {
	require.Equal(t, time.Duration(0), Jitter(0))
}
