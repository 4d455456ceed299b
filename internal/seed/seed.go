// Package seed loads demo data into an empty store.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/erazemk/inventar/internal/activity"
	"github.com/erazemk/inventar/internal/auth"
	"github.com/erazemk/inventar/internal/events"
	"github.com/erazemk/inventar/internal/kv"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

//go:embed defaults.yaml
var defaults []byte

type Data struct {
	Categories []model.Category `yaml:"categories"`
	Items      []Item           `yaml:"items"`
	Users      []User           `yaml:"users"`
}

type Item struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Stock       int    `yaml:"stock"`
	Description string `yaml:"description"`
	ImageURL    string `yaml:"image_url"`
	LastUpdated string `yaml:"last_updated"`
}

type User struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Status   string `yaml:"status"`
	Phone    string `yaml:"phone"`
	RegdNum  string `yaml:"regd_num"`
}

// Default returns the embedded demo data.
func Default() (*Data, error) {
	return Load(bytes.NewReader(defaults))
}

// Load decodes seed data from YAML.
func Load(r io.Reader) (*Data, error) {
	var d Data
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decoding seed data: %w", err)
	}
	return &d, nil
}

// Options controls Apply.
type Options struct {
	// Force overwrites existing items, categories and users.
	Force    bool
	HashCost int
	Now      time.Time
}

// Apply writes d to the store in one batch. Without Force it refuses to
// touch a store that already has items or users.
func Apply(ctx context.Context, repo *store.Repository, rec *activity.Recorder, d *Data, opts Options) error {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	items, err := buildItems(d, opts.Now)
	if err != nil {
		return err
	}
	users, err := buildUsers(d.Users, opts.HashCost)
	if err != nil {
		return err
	}

	repo.Lock()
	defer repo.Unlock()

	if !opts.Force {
		existingItems, err := repo.Items(ctx)
		if err != nil {
			return err
		}
		existingUsers, err := repo.Users(ctx)
		if err != nil {
			return err
		}
		if len(existingItems) > 0 || len(existingUsers) > 0 {
			return fmt.Errorf("store is not empty: %w", model.ErrConflict)
		}
	}

	var entries []kv.Entry
	itemsEntry, err := store.ItemsEntry(items)
	if err != nil {
		return err
	}
	entries = append(entries, itemsEntry)
	if len(d.Categories) > 0 {
		e, err := store.CategoriesEntry(d.Categories)
		if err != nil {
			return err
		}
		entries = append(entries, e)
	}
	if len(users) > 0 {
		e, err := store.UsersEntry(users)
		if err != nil {
			return err
		}
		entries = append(entries, e)
	}

	logEntry, err := rec.Append(ctx, "Data Seeded",
		fmt.Sprintf("Loaded %d items, %d categories and %d users", len(items), len(d.Categories), len(users)))
	if err != nil {
		return err
	}
	if err := repo.Apply(ctx, append(entries, logEntry)...); err != nil {
		return fmt.Errorf("writing seed data: %w", err)
	}
	rec.Notify(ctx, events.InventoryUpdated, events.UsersUpdated, events.LogsUpdated)
	return nil
}

func buildItems(d *Data, now time.Time) ([]model.Item, error) {
	known := make(map[string]bool, len(d.Categories))
	for _, c := range d.Categories {
		known[c.Name] = true
	}

	items := make([]model.Item, 0, len(d.Items))
	for _, it := range d.Items {
		if it.ID == "" || it.Name == "" {
			return nil, fmt.Errorf("seed item %q: id and name are required", it.ID)
		}
		if len(known) > 0 && !known[it.Category] {
			return nil, fmt.Errorf("seed item %s: unknown category %q", it.ID, it.Category)
		}
		updated := now
		if it.LastUpdated != "" {
			t, err := time.Parse(time.DateOnly, it.LastUpdated)
			if err != nil {
				return nil, fmt.Errorf("seed item %s: %w", it.ID, err)
			}
			updated = t
		}
		items = append(items, model.Item{
			ID:          it.ID,
			Name:        it.Name,
			Category:    it.Category,
			Stock:       it.Stock,
			Description: it.Description,
			ImageURL:    it.ImageURL,
			LastUpdated: updated,
		})
	}
	return items, nil
}

func buildUsers(in []User, cost int) ([]model.User, error) {
	users := make([]model.User, 0, len(in))
	for _, u := range in {
		if !model.ValidRole(u.Role) {
			return nil, fmt.Errorf("seed user %s: unknown role %q", u.ID, u.Role)
		}
		if err := model.ValidatePassword(u.Password); err != nil {
			return nil, fmt.Errorf("seed user %s: %w", u.ID, err)
		}
		hash, err := auth.HashPassword(u.Password, cost)
		if err != nil {
			return nil, err
		}
		status := u.Status
		if status == "" {
			status = model.UserStatusActive
		}
		users = append(users, model.User{
			ID:           u.ID,
			Name:         u.Name,
			Email:        u.Email,
			PasswordHash: hash,
			Role:         u.Role,
			Status:       status,
			Phone:        u.Phone,
			RegdNum:      u.RegdNum,
		})
	}
	return users, nil
}
