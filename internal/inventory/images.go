package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/erazemk/inventar/internal/imaging"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

// ImageURLPrefix is the path hosted images are served under.
const ImageURLPrefix = "/api/images/"

func hostedImageID(url string) (string, bool) {
	id, ok := strings.CutPrefix(url, ImageURLPrefix)
	return id, ok && id != ""
}

func processImage(r io.Reader) (*imaging.ProcessResult, error) {
	img, err := imaging.Process(r)
	if errors.Is(err, imaging.ErrTooLarge) || errors.Is(err, imaging.ErrUnsupported) {
		return nil, model.Invalid("image", "%s", err.Error())
	}
	if err != nil {
		return nil, model.Invalid("image", "could not read image: %v", err)
	}
	return img, nil
}

// HostImage stores an uploaded image and returns the URL it is served at.
func (s *Service) HostImage(ctx context.Context, r io.Reader) (string, error) {
	img, err := processImage(r)
	if err != nil {
		return "", err
	}

	s.repo.Lock()
	defer s.repo.Unlock()

	images, err := s.repo.Images(ctx)
	if err != nil {
		return "", err
	}
	id := "img-" + uuid.NewString()
	images[id] = img.DataURL()

	entry, err := store.ImagesEntry(images)
	if err != nil {
		return "", err
	}
	if err := s.repo.Apply(ctx, entry); err != nil {
		return "", fmt.Errorf("hosting image: %w", err)
	}
	return ImageURLPrefix + id, nil
}

// SetItemImage replaces an item's image with an uploaded one. The previous
// hosted image, if any, is removed.
func (s *Service) SetItemImage(ctx context.Context, itemID string, r io.Reader) (*model.Item, error) {
	img, err := processImage(r)
	if err != nil {
		return nil, err
	}

	s.repo.Lock()
	defer s.repo.Unlock()

	items, err := s.repo.Items(ctx)
	if err != nil {
		return nil, err
	}
	i := store.FindItem(items, itemID)
	if i < 0 {
		return nil, fmt.Errorf("item %s: %w", itemID, model.ErrNotFound)
	}
	item := &items[i]

	images, err := s.repo.Images(ctx)
	if err != nil {
		return nil, err
	}
	if old, ok := hostedImageID(item.ImageURL); ok {
		delete(images, old)
	}
	id := "img-" + uuid.NewString()
	images[id] = img.DataURL()
	item.ImageURL = ImageURLPrefix + id
	item.LastUpdated = s.Now()

	imagesEntry, err := store.ImagesEntry(images)
	if err != nil {
		return nil, err
	}
	itemsEntry, err := store.ItemsEntry(items)
	if err != nil {
		return nil, err
	}

	details := fmt.Sprintf("New image for %s (%s)", item.Name, item.ID)
	if err := s.commit(ctx, "Item Image Updated", details, imagesEntry, itemsEntry); err != nil {
		return nil, fmt.Errorf("setting item image: %w", err)
	}
	updated := items[i]
	return &updated, nil
}

// Image returns the MIME type and bytes of a hosted image.
func (s *Service) Image(ctx context.Context, id string) (string, []byte, error) {
	url, ok, err := s.repo.Image(ctx, id)
	if err != nil {
		return "", nil, err
	}
	if !ok {
		return "", nil, fmt.Errorf("image %s: %w", id, model.ErrNotFound)
	}
	mime, data, err := imaging.ParseDataURL(url)
	if err != nil {
		return "", nil, fmt.Errorf("image %s: %w", id, err)
	}
	return mime, data, nil
}
