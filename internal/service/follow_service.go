package service

import (
	"context"

	"wanderplan/internal/models"
	"wanderplan/internal/repository"
)

// FollowService maintains the follow graph.
type FollowService struct {
	follows  repository.FollowRepository
	profiles repository.ProfileRepository
}

// FollowResult reports the graph sizes after a follow change.
type FollowResult struct {
	IsFollowing bool                    `json:"is_following"`
	Target      repository.FollowCounts `json:"target"`
	Actor       repository.FollowCounts `json:"actor"`
}

func NewFollowService(follows repository.FollowRepository, profiles repository.ProfileRepository) *FollowService {
	return &FollowService{follows: follows, profiles: profiles}
}

// Follow makes actorID follow targetID. Following twice is the same as once.
func (s *FollowService) Follow(ctx context.Context, actorID, targetID uint) (*FollowResult, error) {
	if actorID == targetID {
		return nil, models.NewValidationError("You cannot follow yourself")
	}
	if err := s.requireProfiles(ctx, actorID, targetID); err != nil {
		return nil, err
	}
	if _, err := s.follows.Follow(ctx, actorID, targetID); err != nil {
		return nil, err
	}
	return s.result(ctx, actorID, targetID, true)
}

// Unfollow removes the edge; unfollowing a non-followed user is a no-op.
func (s *FollowService) Unfollow(ctx context.Context, actorID, targetID uint) (*FollowResult, error) {
	if err := s.requireProfiles(ctx, actorID, targetID); err != nil {
		return nil, err
	}
	if _, err := s.follows.Unfollow(ctx, actorID, targetID); err != nil {
		return nil, err
	}
	return s.result(ctx, actorID, targetID, false)
}

// RemoveFollower drops followerID from userID's followers.
func (s *FollowService) RemoveFollower(ctx context.Context, userID, followerID uint) (*FollowResult, error) {
	if err := s.requireProfiles(ctx, userID, followerID); err != nil {
		return nil, err
	}
	if _, err := s.follows.Unfollow(ctx, followerID, userID); err != nil {
		return nil, err
	}
	// From the caller's side: the follower is the target, the caller is the actor.
	return s.result(ctx, userID, followerID, false)
}

func (s *FollowService) IsFollowing(ctx context.Context, actorID, targetID uint) (bool, error) {
	if actorID == targetID {
		return false, nil
	}
	return s.follows.IsFollowing(ctx, actorID, targetID)
}

func (s *FollowService) requireProfiles(ctx context.Context, ids ...uint) error {
	for _, id := range ids {
		if _, err := s.profiles.GetByUserID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *FollowService) result(ctx context.Context, actorID, targetID uint, following bool) (*FollowResult, error) {
	counts, err := s.follows.CountsFor(ctx, []uint{actorID, targetID})
	if err != nil {
		return nil, err
	}
	return &FollowResult{
		IsFollowing: following,
		Target:      counts[targetID],
		Actor:       counts[actorID],
	}, nil
}
