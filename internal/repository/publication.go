package repository

import (
	"context"
	"strings"

	"wanderplan/internal/cache"
	"wanderplan/internal/models"

	"gorm.io/gorm"
)

// PublicationRepository defines persistence operations for publications.
type PublicationRepository interface {
	Create(ctx context.Context, pub *models.Publication) error
	GetByID(ctx context.Context, id uint) (*models.Publication, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Publication, error)
	List(ctx context.Context, authorID, excludeAuthorID uint, limit, offset int) ([]models.Publication, error)
	ListByCity(ctx context.Context, city string, excludeAuthorID uint, limit, offset int) ([]models.Publication, error)
	ListByAuthor(ctx context.Context, authorID uint) ([]models.Publication, error)
	DeleteBySharedPlan(ctx context.Context, planID uint) ([]uint, error)
	MutateEngagement(ctx context.Context, id uint, fn EngagementMutator) (*models.Publication, error)
	RenameAuthor(ctx context.Context, authorID uint, name string) (int64, error)
	ScanBatches(ctx context.Context, fn func(batch []models.Publication) error) error
}

type publicationRepository struct {
	db *gorm.DB
}

func NewPublicationRepository(db *gorm.DB) PublicationRepository {
	return &publicationRepository{db: db}
}

func (r *publicationRepository) Create(ctx context.Context, pub *models.Publication) error {
	if err := r.db.WithContext(ctx).Create(pub).Error; err != nil {
		return mapError(err, "Publication", pub.ID)
	}
	return nil
}

// GetByID reads through the publication cache. Engagement writes go through
// MutateEngagement, which reads the row itself and invalidates the entry.
func (r *publicationRepository) GetByID(ctx context.Context, id uint) (*models.Publication, error) {
	var pub models.Publication
	err := cache.Aside(ctx, cache.PublicationKey(id), &pub, cache.PublicationTTL, func() error {
		return mapError(r.db.WithContext(ctx).First(&pub, id).Error, "Publication", id)
	})
	if err != nil {
		return nil, err
	}
	return &pub, nil
}

// GetByIDs returns the publications among ids, preserving the order of ids.
func (r *publicationRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Publication, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var pubs []models.Publication
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&pubs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	byID := make(map[uint]models.Publication, len(pubs))
	for _, p := range pubs {
		byID[p.ID] = p
	}
	out := make([]models.Publication, 0, len(pubs))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// List returns publications newest first. A non-zero authorID restricts to
// that author; otherwise a non-zero excludeAuthorID hides that author.
func (r *publicationRepository) List(ctx context.Context, authorID, excludeAuthorID uint, limit, offset int) ([]models.Publication, error) {
	q := r.db.WithContext(ctx)
	switch {
	case authorID != 0:
		q = q.Where("author_id = ?", authorID)
	case excludeAuthorID != 0:
		q = q.Where("author_id <> ?", excludeAuthorID)
	}
	var pubs []models.Publication
	if err := q.Order("created_at DESC, id DESC").Limit(clampLimit(limit)).Offset(offset).Find(&pubs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return pubs, nil
}

// ListByCity matches the snapshot city as a case-insensitive substring.
func (r *publicationRepository) ListByCity(ctx context.Context, city string, excludeAuthorID uint, limit, offset int) ([]models.Publication, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(city))) + "%"
	q := r.db.WithContext(ctx).Where("LOWER(city) LIKE ? ESCAPE '\\'", pattern)
	if excludeAuthorID != 0 {
		q = q.Where("author_id <> ?", excludeAuthorID)
	}
	var pubs []models.Publication
	if err := q.Order("created_at DESC, id DESC").Limit(clampLimit(limit)).Offset(offset).Find(&pubs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return pubs, nil
}

func (r *publicationRepository) ListByAuthor(ctx context.Context, authorID uint) ([]models.Publication, error) {
	var pubs []models.Publication
	if err := r.db.WithContext(ctx).Where("author_id = ?", authorID).Order("id ASC").Find(&pubs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return pubs, nil
}

// DeleteBySharedPlan removes every publication of planID and returns their ids.
func (r *publicationRepository) DeleteBySharedPlan(ctx context.Context, planID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Publication{}).Where("shared_plan_id = ?", planID).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		return tx.Where("id IN ?", ids).Delete(&models.Publication{}).Error
	})
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range ids {
		cache.InvalidatePublication(ctx, id)
	}
	return ids, nil
}

func (r *publicationRepository) MutateEngagement(ctx context.Context, id uint, fn EngagementMutator) (*models.Publication, error) {
	pub, err := mutateEngagement(ctx, r.db, models.TargetPublication, "Publication", id,
		func(p *models.Publication) *models.Engagement { return &p.Engagement }, fn)
	if err != nil {
		return nil, err
	}
	cache.InvalidatePublication(ctx, id)
	return pub, nil
}

func (r *publicationRepository) RenameAuthor(ctx context.Context, authorID uint, name string) (int64, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Publication{}).
		Where("author_id = ? AND author_name <> ?", authorID, name).
		Pluck("id", &ids).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Publication{}).
		Where("id IN ?", ids).
		Update("author_name", name)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	for _, id := range ids {
		cache.InvalidatePublication(ctx, id)
	}
	return res.RowsAffected, nil
}

func (r *publicationRepository) ScanBatches(ctx context.Context, fn func(batch []models.Publication) error) error {
	var batch []models.Publication
	res := r.db.WithContext(ctx).FindInBatches(&batch, scanBatchSize, func(_ *gorm.DB, _ int) error {
		return fn(batch)
	})
	if res.Error != nil {
		return mapError(res.Error, "Publication", nil)
	}
	return nil
}
