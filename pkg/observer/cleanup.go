package observer

import (
	"context"

	"github.com/platinummonkey/cog/pkg/features"
)

// CleanupResult is the reconciliation outcome for one product root
type CleanupResult struct {
	ProductRoot string
	Result      features.Result
}

// CleanupMissingFeatures reconciles the settings of every product touched by
// the deleted or moved-away paths. Roots without a product or settings are
// skipped; the first error stops the run.
func CleanupMissingFeatures(ctx context.Context, store *features.Store, productsRoot string, deleted, movedFrom []string) ([]CleanupResult, error) {
	var results []CleanupResult
	for _, root := range AffectedProductRoots(productsRoot, deleted, movedFrom) {
		res, err := store.CleanupMissingFeatures(ctx, root)
		if err != nil {
			return results, err
		}
		if res.Changed() {
			results = append(results, CleanupResult{ProductRoot: root, Result: res})
		}
	}
	return results, nil
}
