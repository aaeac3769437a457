package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sifan077/TinyLink/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.ArchivedLink{}))
	return db
}

func countArchived(t *testing.T, db *gorm.DB, code string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.ArchivedLink{}).Where("code = ?", code).Count(&n).Error)
	return n
}

func TestArchiveRepository_Archive(t *testing.T) {
	db := newTestDB(t)
	repo := NewArchiveRepository(db)
	ctx := context.Background()
	sweptAt := baseTime.Add(time.Hour)

	rows := []model.ArchivedLink{
		model.NewArchivedLink(*newLink("abc", time.Minute), sweptAt),
		model.NewArchivedLink(*newLink("xyz", time.Minute), sweptAt),
	}
	require.NoError(t, repo.Archive(ctx, rows))

	// A code can be archived again after it was reissued and expired.
	again := model.NewArchivedLink(*newLink("abc", time.Minute), sweptAt.Add(time.Hour))
	require.NoError(t, repo.Archive(ctx, []model.ArchivedLink{again}))

	assert.EqualValues(t, 2, countArchived(t, db, "abc"))
	assert.EqualValues(t, 1, countArchived(t, db, "xyz"))
	assert.Zero(t, countArchived(t, db, "missing"))

	var row model.ArchivedLink
	require.NoError(t, db.Where("code = ?", "xyz").First(&row).Error)
	assert.Equal(t, "https://example.com/xyz", row.URL)
	assert.True(t, sweptAt.Equal(row.SweptAt))
}

func TestArchiveRepository_ArchiveEmpty(t *testing.T) {
	repo := NewArchiveRepository(newTestDB(t))
	assert.NoError(t, repo.Archive(context.Background(), nil))
}
