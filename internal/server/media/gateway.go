package media

import (
	"context"

	"github.com/dmitrijs2005/mediashare/internal/server/models"
)

// Gateway stores and deletes media objects.
//
// Upload returns the public URL and the key needed to delete the object.
// Delete of a missing key is not an error.
type Gateway interface {
	Upload(ctx context.Context, src *Source) (models.Asset, error)
	Delete(ctx context.Context, key string) error
}
