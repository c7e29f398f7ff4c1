package repository

import (
	"context"

	"wanderplan/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowCounts is the size of both sides of a user's follow graph.
type FollowCounts struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}

// FollowRepository stores directed follow edges.
type FollowRepository interface {
	Follow(ctx context.Context, followerID, followeeID uint) (bool, error)
	Unfollow(ctx context.Context, followerID, followeeID uint) (bool, error)
	IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error)
	FollowerIDs(ctx context.Context, userID uint) ([]uint, error)
	FollowingIDs(ctx context.Context, userID uint) ([]uint, error)
	Counts(ctx context.Context, userID uint) (FollowCounts, error)
	CountsFor(ctx context.Context, userIDs []uint) (map[uint]FollowCounts, error)
	CommonFollowers(ctx context.Context, viewerID uint, userIDs []uint) (map[uint]int64, error)
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

// Follow inserts the edge; an existing edge is left alone and reported as false.
func (r *followRepository) Follow(ctx context.Context, followerID, followeeID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: followerID, FolloweeID: followeeID})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Unfollow deletes the edge; a missing edge is reported as false.
func (r *followRepository) Unfollow(ctx context.Context, followerID, followeeID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) IsFollowing(ctx context.Context, followerID, followeeID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&n).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *followRepository) FollowerIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("followee_id = ?", userID).
		Order("created_at ASC").
		Pluck("follower_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *followRepository) FollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).
		Order("created_at ASC").
		Pluck("followee_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *followRepository) Counts(ctx context.Context, userID uint) (FollowCounts, error) {
	all, err := r.CountsFor(ctx, []uint{userID})
	if err != nil {
		return FollowCounts{}, err
	}
	return all[userID], nil
}

type idCount struct {
	ID    uint
	Count int64
}

// CountsFor returns follower and following counts for each of userIDs.
// Users without edges are present with zero counts.
func (r *followRepository) CountsFor(ctx context.Context, userIDs []uint) (map[uint]FollowCounts, error) {
	out := make(map[uint]FollowCounts, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	for _, id := range userIDs {
		out[id] = FollowCounts{}
	}

	var followers []idCount
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Select("followee_id AS id, COUNT(*) AS count").
		Where("followee_id IN ?", userIDs).
		Group("followee_id").
		Scan(&followers).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range followers {
		c := out[row.ID]
		c.Followers = row.Count
		out[row.ID] = c
	}

	var following []idCount
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Select("follower_id AS id, COUNT(*) AS count").
		Where("follower_id IN ?", userIDs).
		Group("follower_id").
		Scan(&following).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range following {
		c := out[row.ID]
		c.Following = row.Count
		out[row.ID] = c
	}
	return out, nil
}

// CommonFollowers counts, for each of userIDs, the users that follow both
// viewerID and that user.
func (r *followRepository) CommonFollowers(ctx context.Context, viewerID uint, userIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(userIDs))
	if len(userIDs) == 0 || viewerID == 0 {
		return out, nil
	}
	var rows []idCount
	err := r.db.WithContext(ctx).
		Table("follows AS theirs").
		Select("theirs.followee_id AS id, COUNT(*) AS count").
		Joins("JOIN follows AS mine ON mine.follower_id = theirs.follower_id AND mine.followee_id = ?", viewerID).
		Where("theirs.followee_id IN ?", userIDs).
		Group("theirs.followee_id").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		out[row.ID] = row.Count
	}
	return out, nil
}
