package services

import (
	"context"

	"github.com/dmitrijs2005/mediashare/internal/common"
	"github.com/dmitrijs2005/mediashare/internal/logging"
	"github.com/dmitrijs2005/mediashare/internal/server/media"
	"github.com/dmitrijs2005/mediashare/internal/server/models"
)

const (
	noteImagesRemoved = "images were removed"
	noteCleanupFailed = "image cleanup failed"
)

// compensate deletes the given assets after a failed step and returns cause
// annotated with the outcome. The category of cause is preserved; cleanup
// failures are logged and never replace it.
func compensate(ctx context.Context, gw media.Gateway, logger logging.Logger, cause error, assets ...models.Asset) error {
	keys := make([]string, 0, len(assets))
	for _, a := range assets {
		if a.Key != "" {
			keys = append(keys, a.Key)
		}
	}
	if len(keys) == 0 {
		return cause
	}

	note := noteImagesRemoved
	if leftovers := media.DeleteBestEffort(ctx, gw, logger, keys...); len(leftovers) > 0 {
		note = noteCleanupFailed
	}
	return annotate(cause, note)
}

func annotate(err error, note string) error {
	return common.Wrap(common.KindOf(err), err, common.MessageOf(err)+"; "+note)
}
