package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/inventar/internal/activity"
	"github.com/erazemk/inventar/internal/auth"
	"github.com/erazemk/inventar/internal/events"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
)

func TestDefault(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)
	assert.Len(t, d.Categories, 5)
	assert.Len(t, d.Items, 5)
	assert.NotEmpty(t, d.Users)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(strings.NewReader("items:\n  - id: ITEM-1\n    colour: red\n"))
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	repo := store.NewTestRepository(t)
	rec := activity.NewRecorder(repo, events.Nop{}, nil)
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	d, err := Default()
	require.NoError(t, err)
	require.NoError(t, Apply(ctx, repo, rec, d, Options{HashCost: bcrypt.MinCost, Now: now}))

	items, err := repo.Items(ctx)
	require.NoError(t, err)
	require.Len(t, items, 5)
	for _, it := range items {
		assert.Equal(t, model.StockStatus(it.Stock), it.Status, it.ID)
	}

	users, err := repo.Users(ctx)
	require.NoError(t, err)
	require.Len(t, users, len(d.Users))
	assert.NotEqual(t, "password123", users[0].PasswordHash)
	assert.True(t, auth.CheckPassword(users[0].PasswordHash, "password123"))

	logs, err := repo.Logs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "Data Seeded", logs[0].Action)

	err = Apply(ctx, repo, rec, d, Options{HashCost: bcrypt.MinCost, Now: now})
	assert.ErrorIs(t, err, model.ErrConflict)

	require.NoError(t, Apply(ctx, repo, rec, d, Options{Force: true, HashCost: bcrypt.MinCost, Now: now}))
}

func TestApplyRejectsUnknownCategory(t *testing.T) {
	repo := store.NewTestRepository(t)
	rec := activity.NewRecorder(repo, events.Nop{}, nil)
	d := &Data{
		Categories: []model.Category{{ID: "cat-1", Name: "Gadgets"}},
		Items:      []Item{{ID: "ITEM-1", Name: "Widget", Category: "Toys"}},
	}
	err := Apply(context.Background(), repo, rec, d, Options{})
	assert.Error(t, err)
}
