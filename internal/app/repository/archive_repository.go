package repository

import (
	"context"

	"github.com/sifan077/TinyLink/internal/app/model"
	"gorm.io/gorm"
)

// ArchiveRepository stores links removed by the expiry sweeper.
// Rows are never read back into live state.
type ArchiveRepository interface {
	Archive(ctx context.Context, links []model.ArchivedLink) error
}

type archiveRepository struct {
	db        *gorm.DB
	batchSize int
}

// NewArchiveRepository returns a GORM-backed ArchiveRepository.
func NewArchiveRepository(db *gorm.DB) ArchiveRepository {
	return &archiveRepository{db: db, batchSize: 500}
}

func (r *archiveRepository) Archive(ctx context.Context, links []model.ArchivedLink) error {
	if len(links) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(links, r.batchSize).Error
}
