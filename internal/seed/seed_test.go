package seed

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"feedsync/internal/config"
	"feedsync/internal/database"
	"feedsync/internal/emulator"
	"feedsync/internal/emulator/repository"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupEmulator(t *testing.T) (*config.Config, *gorm.DB) {
	t.Helper()
	db, err := database.Open(sqlite.Open(":memory:"), "error", true, repository.Models()...)
	require.NoError(t, err)
	srv, err := emulator.NewServer(emulator.Options{ProjectID: "seed", JWTSecret: "seed_secret", UploadDir: t.TempDir()}, db)
	require.NoError(t, err)
	ts := httptest.NewServer(adaptor.FiberApp(srv.App()))
	t.Cleanup(ts.Close)

	return &config.Config{
		Endpoint:            ts.URL + "/v1",
		ProjectID:           "seed",
		DatabaseID:          "feed",
		PostCollectionID:    "posts",
		CommentCollectionID: "comments",
		BucketID:            "post-images",
		HTTPTimeout:         5 * time.Second,
		PageSize:            50,
	}, db
}

func TestSeeder_Run(t *testing.T) {
	t.Parallel()
	cfg, db := setupEmulator(t)

	res, err := NewSeeder(cfg, 42).Run(context.Background(), Options{Users: 3, PostsPerUser: 2, CommentsPerPost: 2})
	require.NoError(t, err)
	assert.Equal(t, Result{Users: 3, Posts: 6, Comments: 12}, res)

	var accounts, posts, comments int64
	require.NoError(t, db.Model(&repository.Account{}).Count(&accounts).Error)
	require.NoError(t, db.Model(&repository.Document{}).Where("collection_id = ?", "posts").Count(&posts).Error)
	require.NoError(t, db.Model(&repository.Document{}).Where("collection_id = ?", "comments").Count(&comments).Error)
	assert.EqualValues(t, 3, accounts)
	assert.EqualValues(t, 6, posts)
	assert.EqualValues(t, 12, comments)
}

func TestSeeder_NoUsers(t *testing.T) {
	t.Parallel()
	cfg, _ := setupEmulator(t)

	res, err := NewSeeder(cfg, 1).Run(context.Background(), Options{PostsPerUser: 5, CommentsPerPost: 5})
	require.NoError(t, err)
	assert.Zero(t, res)
}

func TestSeeder_UnreachableBackend(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Endpoint: "http://127.0.0.1:1/v1", ProjectID: "seed", HTTPTimeout: time.Second}

	_, err := NewSeeder(cfg, 1).Run(context.Background(), Options{Users: 1})
	require.Error(t, err)
}
