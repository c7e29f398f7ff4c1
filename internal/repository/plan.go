package repository

import (
	"context"
	"strings"

	"wanderplan/internal/models"

	"gorm.io/gorm"
)

const scanBatchSize = 100

// PlanRepository defines persistence operations for plans.
type PlanRepository interface {
	Create(ctx context.Context, plan *models.Plan) error
	GetByID(ctx context.Context, id uint) (*models.Plan, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	ListPublic(ctx context.Context, excludeAuthorID uint) ([]models.Plan, error)
	ListPublicByCity(ctx context.Context, city string, excludeAuthorID uint) ([]models.Plan, error)
	ListPublicByAuthor(ctx context.Context, authorID uint) ([]models.Plan, error)
	ListPrivateByAuthor(ctx context.Context, authorID uint) ([]models.Plan, error)
	ListClonedByAuthor(ctx context.Context, authorID uint) ([]models.Plan, error)
	CountPublicByAuthors(ctx context.Context, authorIDs []uint) (map[uint]int64, error)
	SetPublic(ctx context.Context, ids []uint) (int64, error)
	MutateEngagement(ctx context.Context, id uint, fn EngagementMutator) (*models.Plan, error)
	RenameAuthor(ctx context.Context, authorID uint, name string) (int64, error)
	ScanBatches(ctx context.Context, fn func(batch []models.Plan) error) error
}

type planRepository struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) Create(ctx context.Context, plan *models.Plan) error {
	if err := r.db.WithContext(ctx).Create(plan).Error; err != nil {
		return mapError(err, "Plan", plan.ID)
	}
	return nil
}

func (r *planRepository) GetByID(ctx context.Context, id uint) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).First(&plan, id).Error; err != nil {
		return nil, mapError(err, "Plan", id)
	}
	return &plan, nil
}

// UpdateFields writes non-engagement columns. Engagement columns go through
// MutateEngagement.
func (r *planRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Plan{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Plan", id)
	}
	return nil
}

func (r *planRepository) list(ctx context.Context, scope func(*gorm.DB) *gorm.DB) ([]models.Plan, error) {
	var plans []models.Plan
	if err := scope(r.db.WithContext(ctx)).Order("created_at DESC, id DESC").Find(&plans).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return plans, nil
}

func (r *planRepository) ListPublic(ctx context.Context, excludeAuthorID uint) ([]models.Plan, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		q = q.Where("is_public = ?", true)
		if excludeAuthorID != 0 {
			q = q.Where("author_id <> ?", excludeAuthorID)
		}
		return q
	})
}

// ListPublicByCity matches city as a case-insensitive substring.
func (r *planRepository) ListPublicByCity(ctx context.Context, city string, excludeAuthorID uint) ([]models.Plan, error) {
	pattern := "%" + escapeLike(strings.ToLower(strings.TrimSpace(city))) + "%"
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		q = q.Where("is_public = ? AND LOWER(city) LIKE ? ESCAPE '\\'", true, pattern)
		if excludeAuthorID != 0 {
			q = q.Where("author_id <> ?", excludeAuthorID)
		}
		return q
	})
}

func (r *planRepository) ListPublicByAuthor(ctx context.Context, authorID uint) ([]models.Plan, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("author_id = ? AND is_public = ?", authorID, true)
	})
}

func (r *planRepository) ListPrivateByAuthor(ctx context.Context, authorID uint) ([]models.Plan, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("author_id = ? AND is_public = ?", authorID, false)
	})
}

func (r *planRepository) ListClonedByAuthor(ctx context.Context, authorID uint) ([]models.Plan, error) {
	return r.list(ctx, func(q *gorm.DB) *gorm.DB {
		return q.Where("author_id = ? AND cloned_from_plan_id IS NOT NULL", authorID)
	})
}

func (r *planRepository) CountPublicByAuthors(ctx context.Context, authorIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(authorIDs))
	if len(authorIDs) == 0 {
		return out, nil
	}
	var rows []idCount
	err := r.db.WithContext(ctx).Model(&models.Plan{}).
		Select("author_id AS id, COUNT(*) AS count").
		Where("author_id IN ? AND is_public = ?", authorIDs, true).
		Group("author_id").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		out[row.ID] = row.Count
	}
	return out, nil
}

// SetPublic marks the given plans public and returns how many changed.
func (r *planRepository) SetPublic(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&models.Plan{}).
		Where("id IN ? AND is_public = ?", ids, false).
		Update("is_public", true)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *planRepository) MutateEngagement(ctx context.Context, id uint, fn EngagementMutator) (*models.Plan, error) {
	return mutateEngagement(ctx, r.db, models.TargetPlan, "Plan", id,
		func(p *models.Plan) *models.Engagement { return &p.Engagement }, fn)
}

// RenameAuthor rewrites the cached author_name on every plan by authorID.
func (r *planRepository) RenameAuthor(ctx context.Context, authorID uint, name string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Plan{}).
		Where("author_id = ? AND author_name <> ?", authorID, name).
		Update("author_name", name)
	if res.Error != nil {
		return 0, models.NewInternalError(res.Error)
	}
	return res.RowsAffected, nil
}

// ScanBatches walks every plan in id order, scanBatchSize rows at a time.
func (r *planRepository) ScanBatches(ctx context.Context, fn func(batch []models.Plan) error) error {
	var batch []models.Plan
	res := r.db.WithContext(ctx).FindInBatches(&batch, scanBatchSize, func(_ *gorm.DB, _ int) error {
		return fn(batch)
	})
	if res.Error != nil {
		return mapError(res.Error, "Plan", nil)
	}
	return nil
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
