package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapSingleSource(t *testing.T) {
	assert.Equal(t, 0.5, capSingleSource(0.5))
	assert.Equal(t, SingleSourceCap, capSingleSource(SingleSourceCap))
	assert.Equal(t, SingleSourceCap, capSingleSource(0.99))
	assert.Equal(t, SingleSourceCap, capSingleSource(1.0))
	assert.Equal(t, 0.0, capSingleSource(-0.1))
}

func TestBoost(t *testing.T) {
	// No corroboration is no information, never a penalty.
	assert.Equal(t, 0.85, boost(0.85, 0))
	assert.Equal(t, 0.85, boost(0.85, -1))

	assert.InDelta(t, 0.90, boost(0.85, 1), 1e-9)
	assert.InDelta(t, 0.95, boost(0.85, 2), 1e-9)

	// Capped at certainty.
	assert.Equal(t, 1.0, boost(0.98, 2))
	assert.Equal(t, 1.0, boost(0.85, 10))
}

func TestSingleSourceNeverClearsThreshold(t *testing.T) {
	// The cap equals the threshold, so one uncorroborated signal can reach
	// but never exceed it.
	assert.LessOrEqual(t, capSingleSource(1.0), AutoResolveThreshold)
}
