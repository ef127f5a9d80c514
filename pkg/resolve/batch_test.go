package resolve

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorumhq/nameplate/pkg/verify"
)

func TestResolveAllPreservesOrder(t *testing.T) {
	e := newTestEngine(t, nil, nil)

	mentions := []string{"Sarah Chen", "Jon Smith", "Zzyzx"}
	results, err := e.ResolveAll(context.Background(), mentions, testRoster(), testProject)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "Sarah Chen", results[0].Mention)
	assert.Equal(t, "sarah.chen@corp.com", results[0].MatchedEmail)
	assert.Equal(t, "Jon Smith", results[1].Mention)
	assert.Equal(t, "john.smith@corp.com", results[1].MatchedEmail)
	assert.Equal(t, "Zzyzx", results[2].Mention)
	assert.True(t, results[2].RequiresReview)
}

func TestResolveAllEmptyBatch(t *testing.T) {
	e := newTestEngine(t, nil, nil)

	results, err := e.ResolveAll(context.Background(), nil, testRoster(), testProject)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestResolveAllBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int64

	v := verify.Func{
		SourceName: "slow",
		VerifyFn: func(context.Context, string, string) (bool, error) {
			n := inFlight.Add(1)
			defer inFlight.Add(-1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			return true, nil
		},
	}

	cfg := DefaultConfig()
	cfg.MaxConcurrent = 2
	e := NewEngine(cfg, nil, nil, []verify.Verifier{v}, nil)

	// Fuzzy-resolvable mentions so every one reaches verification.
	mentions := make([]string, 8)
	for i := range mentions {
		mentions[i] = "Jon Smith"
	}

	_, err := e.ResolveAll(context.Background(), mentions, testRoster(), testProject)
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int64(2))
}

func TestResolveAllCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestEngine(t, nil, nil)
	results, err := e.ResolveAll(ctx, []string{"Sarah Chen"}, testRoster(), testProject)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
}
