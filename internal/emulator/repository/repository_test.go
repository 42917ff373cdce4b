package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"feedsync/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	return gormDB, mock
}

func setupSQLite(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(Models()...))
	return db
}

func TestAccountRepository_GetByEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	t.Run("Found", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "email", "name", "password_hash"}).
			AddRow("u1", "ada@example.com", "Ada", "hash")
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "accounts" WHERE email = $1 ORDER BY "accounts"."id" LIMIT $2`)).
			WithArgs("ada@example.com", 1).
			WillReturnRows(rows)

		account, err := repo.GetByEmail(ctx, "ada@example.com")
		require.NoError(t, err)
		require.NotNil(t, account)
		assert.Equal(t, "u1", account.ID)
		assert.Equal(t, "Ada", account.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing is not an error", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "accounts" WHERE email = $1`)).
			WithArgs("nobody@example.com", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		account, err := repo.GetByEmail(ctx, "nobody@example.com")
		require.NoError(t, err)
		assert.Nil(t, account)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Driver failure", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "accounts" WHERE email = $1`)).
			WillReturnError(errors.New("connection reset"))

		_, err := repo.GetByEmail(ctx, "ada@example.com")
		assert.Equal(t, models.CodeInternal, models.ErrorCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewAccountRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "accounts" WHERE id = $1 ORDER BY "accounts"."id" LIMIT $2`)).
		WithArgs("missing", 1).
		WillReturnError(gorm.ErrRecordNotFound)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepository_DeleteByAccount(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "sessions" WHERE account_id = $1`)).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := repo.DeleteByAccount(context.Background(), "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_DuplicateEmail(t *testing.T) {
	t.Parallel()
	repo := NewAccountRepository(setupSQLite(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &Account{ID: "u1", Email: "ada@example.com", PasswordHash: "h"}))
	err := repo.Create(ctx, &Account{ID: "u2", Email: "ada@example.com", PasswordHash: "h"})
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	t.Parallel()
	repo := NewSessionRepository(setupSQLite(t))
	ctx := context.Background()

	for _, id := range []string{"s1", "s2"} {
		require.NoError(t, repo.Create(ctx, &Session{ID: id, AccountID: "u1", ExpiresAt: time.Now().Add(time.Hour)}))
	}
	require.NoError(t, repo.Create(ctx, &Session{ID: "s3", AccountID: "u2", ExpiresAt: time.Now().Add(time.Hour)}))

	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.AccountID)

	n, err := repo.DeleteByAccount(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = repo.GetByID(ctx, "s2")
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	_, err = repo.GetByID(ctx, "s3")
	assert.NoError(t, err)
}

func TestDocumentRepository_CRUD(t *testing.T) {
	t.Parallel()
	repo := NewDocumentRepository(setupSQLite(t))
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b"} {
		require.NoError(t, repo.Create(ctx, &Document{
			DatabaseID: "feed", CollectionID: "posts", ID: id,
			Data: `{"content":"` + id + `"}`, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Create(ctx, &Document{DatabaseID: "feed", CollectionID: "comments", ID: "a", Data: `{}`}))

	err := repo.Create(ctx, &Document{DatabaseID: "feed", CollectionID: "posts", ID: "a", Data: `{}`})
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))

	docs, err := repo.List(ctx, "feed", "posts")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)

	require.NoError(t, repo.Update(ctx, &Document{DatabaseID: "feed", CollectionID: "posts", ID: "a", Data: `{"content":"edited"}`, UpdatedAt: base}))
	got, err := repo.Get(ctx, "feed", "posts", "a")
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"edited"}`, got.Data)

	err = repo.Update(ctx, &Document{DatabaseID: "feed", CollectionID: "posts", ID: "zzz", Data: `{}`})
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	require.NoError(t, repo.Delete(ctx, "feed", "posts", "a"))
	err = repo.Delete(ctx, "feed", "posts", "a")
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	_, err = repo.Get(ctx, "feed", "comments", "a")
	assert.NoError(t, err)
}

func TestFileRepository(t *testing.T) {
	t.Parallel()
	repo := NewFileRepository(setupSQLite(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &StoredFile{BucketID: "img", ID: "f1", Name: "a.webp", MimeType: "image/webp", Size: 3, Path: "/tmp/f1"}))
	got, err := repo.Get(ctx, "img", "f1")
	require.NoError(t, err)
	assert.Equal(t, "image/webp", got.MimeType)

	_, err = repo.Get(ctx, "other", "f1")
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}
