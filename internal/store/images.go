package store

import (
	"context"
	"fmt"

	"github.com/erazemk/inventar/internal/kv"
)

// Images returns the hosted image map of image ID to data URL.
func (r *Repository) Images(ctx context.Context) (map[string]string, error) {
	images := map[string]string{}
	if _, err := r.readJSON(ctx, KeyImages, &images); err != nil {
		return nil, fmt.Errorf("reading images: %w", err)
	}
	if images == nil {
		images = map[string]string{}
	}
	return images, nil
}

// Image returns a single hosted image data URL.
func (r *Repository) Image(ctx context.Context, id string) (string, bool, error) {
	images, err := r.Images(ctx)
	if err != nil {
		return "", false, err
	}
	v, ok := images[id]
	return v, ok, nil
}

// ImagesEntry encodes the hosted image map.
func ImagesEntry(images map[string]string) (kv.Entry, error) {
	return encode(KeyImages, images)
}
