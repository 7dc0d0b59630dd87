// Package media talks to the remote asset store that keeps category, product
// and option item images.
package media

import (
	"context"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Zuniga63/digital-menu-api/models"
)

// Upload presets, one per kind of owner document.
const (
	PresetCategory   = "category_preset"
	PresetProduct    = "product_preset"
	PresetOptionItem = "option_item_preset"
	PresetProfile    = "user_profile_preset"
)

type UploadOptions struct {
	Preset   string
	PublicID string
}

type Store interface {
	Upload(ctx context.Context, file io.Reader, opts UploadOptions) (*models.Image, error)
	Destroy(ctx context.Context, publicID string) error
}

// UploadError marks a failure of the remote store itself.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return "media upload failed: " + e.Err.Error() }
func (e *UploadError) Unwrap() error { return e.Err }

// PublicID builds "<slug>-<random>" for an asset named after its owner.
func PublicID(name string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	slug := models.Slugify(name)
	if slug == "" {
		return suffix
	}
	return slug + "-" + suffix
}

// destroyTimeout bounds a cleanup that no longer follows the request.
const destroyTimeout = 30 * time.Second

// Discard destroys every non-nil image concurrently and waits for all of them.
// Failures are logged: by the time assets are discarded the owning records are
// already gone. Cleanup outlives the caller's cancellation, since a client
// that hangs up mid-request is the usual reason it is needed.
func Discard(ctx context.Context, store Store, images ...*models.Image) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), destroyTimeout)
	defer cancel()

	var g errgroup.Group
	for _, img := range images {
		if img == nil || img.PublicID == "" {
			continue
		}
		g.Go(func() error {
			if err := store.Destroy(ctx, img.PublicID); err != nil {
				log.Printf("media: destroy %s: %v", img.PublicID, err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Pending is the cleanup obligation for a freshly uploaded image. Release
// destroys the asset unless Keep was called, so deferring Release right after
// the upload covers every exit path, panics included.
type Pending struct {
	store Store
	image *models.Image
	kept  bool
}

func Track(store Store, image *models.Image) *Pending {
	return &Pending{store: store, image: image}
}

// Keep releases the obligation once the owning record has been persisted.
func (p *Pending) Keep() {
	p.kept = true
}

func (p *Pending) Release(ctx context.Context) {
	if p.kept || p.image == nil {
		return
	}
	Discard(ctx, p.store, p.image)
}

func wrapUpload(err error) error {
	if err == nil {
		return nil
	}
	return &UploadError{Err: err}
}
