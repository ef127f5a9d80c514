package resolve

import (
	"context"
	"sync"

	"github.com/quorumhq/nameplate/pkg/roster"
)

// ResolveAll resolves many mentions from one piece of content. Mentions are
// independent, so they run concurrently with bounded fan-out; results come
// back in input order. If the context is cancelled the whole batch fails:
// partially-resolved batches are not returned.
func (e *Engine) ResolveAll(ctx context.Context, mentions []string, entries []roster.Entry, projectID string) ([]Result, error) {
	ctx, span := e.tracer.startBatch(ctx, projectID, len(mentions))
	defer span.End()

	if len(mentions) == 0 {
		return nil, nil
	}

	results := make([]Result, len(mentions))
	errs := make([]error, len(mentions))
	sem := make(chan struct{}, e.cfg.MaxConcurrent)

	var wg sync.WaitGroup
	for i, mention := range mentions {
		wg.Add(1)
		go func(i int, mention string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return
			}

			res, err := e.Resolve(ctx, mention, entries, projectID)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = *res
		}(i, mention)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
