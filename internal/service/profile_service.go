package service

import (
	"context"
	"log/slog"
	"strings"

	"wanderplan/internal/middleware"
	"wanderplan/internal/models"
	"wanderplan/internal/repository"
	"wanderplan/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

// ProfileService owns profile reads and edits, including the display-name
// cascade they trigger.
type ProfileService struct {
	users        repository.UserRepository
	profiles     repository.ProfileRepository
	follows      repository.FollowRepository
	plans        repository.PlanRepository
	publications repository.PublicationRepository
	cascade      *NameCascade
	dispatcher   CascadeDispatcher
	avatars      AvatarStore
	maxAvatar    int64
}

// ProfileDeps groups the collaborators of a ProfileService.
type ProfileDeps struct {
	Users        repository.UserRepository
	Profiles     repository.ProfileRepository
	Follows      repository.FollowRepository
	Plans        repository.PlanRepository
	Publications repository.PublicationRepository
	Cascade      *NameCascade
	// Dispatcher defaults to running Cascade inline.
	Dispatcher    CascadeDispatcher
	Avatars       AvatarStore
	MaxAvatarSize int64
}

func NewProfileService(d ProfileDeps) *ProfileService {
	dispatcher := d.Dispatcher
	if dispatcher == nil && d.Cascade != nil {
		dispatcher = d.Cascade
	}
	maxAvatar := d.MaxAvatarSize
	if maxAvatar <= 0 {
		maxAvatar = DefaultAvatarMaxUploadMB * 1024 * 1024
	}
	return &ProfileService{
		users:        d.Users,
		profiles:     d.Profiles,
		follows:      d.Follows,
		plans:        d.Plans,
		publications: d.Publications,
		cascade:      d.Cascade,
		dispatcher:   dispatcher,
		avatars:      d.Avatars,
		maxAvatar:    maxAvatar,
	}
}

// UpdateProfileInput is the body of PUT /api/users/me.
type UpdateProfileInput struct {
	Username        string `json:"username" validate:"required,username"`
	Email           string `json:"email" validate:"required,email,max=254"`
	Bio             string `json:"bio" validate:"max=1000"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ProfileView is a user's public page.
type ProfileView struct {
	UserID         uint          `json:"user_id"`
	Username       string        `json:"username"`
	Email          string        `json:"email,omitempty"`
	Bio            string        `json:"bio"`
	AvatarURL      string        `json:"avatar_url"`
	PublicPlans    []PlanSummary `json:"public_plans"`
	FollowersCount int64         `json:"followers_count"`
	FollowingCount int64         `json:"following_count"`
	Followers      []UserRef     `json:"followers"`
	Following      []UserRef     `json:"following"`
	IsFollowing    bool          `json:"is_following"`
}

// Suggestion is one entry of the people-to-follow list.
type Suggestion struct {
	UserID           uint   `json:"user_id"`
	Username         string `json:"username"`
	Bio              string `json:"bio"`
	AvatarURL        string `json:"avatar_url"`
	FollowersCount   int64  `json:"followers_count"`
	FollowingCount   int64  `json:"following_count"`
	CommonFollowers  int64  `json:"common_followers"`
	IsFollowing      bool   `json:"is_following"`
	PublicPlansCount int64  `json:"public_plans_count"`
}

// ResyncResult reports a repair run.
type ResyncResult struct {
	UpdatedCount     int64 `json:"updated_count"`
	RenamedDocuments int   `json:"renamed_documents"`
}

// UpdateProfile edits account fields. A username change is propagated
// after the write commits; propagation failures do not fail the update.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*ProfileView, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Bio = strings.TrimSpace(in.Bio)
	if err := validation.Struct(in); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if other, err := s.users.GetByUsername(ctx, in.Username); err != nil {
		return nil, err
	} else if other != nil && other.ID != userID {
		return nil, models.NewConflictError("Username already taken", nil)
	}
	if other, err := s.users.GetByEmail(ctx, in.Email); err != nil {
		return nil, err
	} else if other != nil && other.ID != userID {
		return nil, models.NewConflictError("Email already registered", nil)
	}

	if in.CurrentPassword != "" && in.NewPassword != "" {
		if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.CurrentPassword)) != nil {
			return nil, models.NewValidationError("current password is incorrect")
		}
		if err := validation.ValidatePassword(in.NewPassword); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		user.Password = string(hash)
	}

	renamed := user.Username != in.Username
	user.Username = in.Username
	user.Email = in.Email
	profile.Username = in.Username
	profile.Email = in.Email
	profile.Bio = in.Bio

	if err := s.users.UpdateWithProfile(ctx, user, profile); err != nil {
		return nil, err
	}

	if renamed && s.dispatcher != nil {
		if err := s.dispatcher.DispatchRename(ctx, userID, in.Username); err != nil {
			middleware.Logger.ErrorContext(ctx, "name cascade dispatch failed",
				slog.Uint64("user_id", uint64(userID)),
				slog.String("error", err.Error()),
			)
		}
	}

	return s.Profile(ctx, userID, userID)
}

// Profile assembles the public page of userID as seen by viewerID.
func (s *ProfileService) Profile(ctx context.Context, userID, viewerID uint) (*ProfileView, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	plans, err := s.plans.ListPublicByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}
	followerIDs, err := s.follows.FollowerIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	followingIDs, err := s.follows.FollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	followers, err := s.userRefs(ctx, followerIDs)
	if err != nil {
		return nil, err
	}
	following, err := s.userRefs(ctx, followingIDs)
	if err != nil {
		return nil, err
	}

	isFollowing := false
	if viewerID != 0 && viewerID != userID {
		for _, id := range followerIDs {
			if id == viewerID {
				isFollowing = true
				break
			}
		}
	}

	view := &ProfileView{
		UserID:         profile.UserID,
		Username:       profile.Username,
		Bio:            profile.Bio,
		AvatarURL:      profile.AvatarURL,
		PublicPlans:    summarizePlans(plans),
		FollowersCount: int64(len(followerIDs)),
		FollowingCount: int64(len(followingIDs)),
		Followers:      followers,
		Following:      following,
		IsFollowing:    isFollowing,
	}
	// Email is private to its owner.
	if viewerID == userID {
		view.Email = profile.Email
	}
	return view, nil
}

func (s *ProfileService) userRefs(ctx context.Context, ids []uint) ([]UserRef, error) {
	byID, err := s.profiles.GetByUserIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]UserRef, 0, len(ids))
	for _, id := range ids {
		name := unknownUsername
		if p, ok := byID[id]; ok {
			name = p.Username
		}
		out = append(out, UserRef{UserID: id, Username: name})
	}
	return out, nil
}

// Suggestions lists every other user with graph statistics relative to
// the viewer.
func (s *ProfileService) Suggestions(ctx context.Context, viewerID uint, limit, offset int) ([]Suggestion, error) {
	profiles, err := s.profiles.ListExcept(ctx, viewerID, limit, offset)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.UserID)
	}

	counts, err := s.follows.CountsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	common, err := s.follows.CommonFollowers(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}
	planCounts, err := s.plans.CountPublicByAuthors(ctx, ids)
	if err != nil {
		return nil, err
	}
	followingIDs, err := s.follows.FollowingIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	following := make(map[uint]struct{}, len(followingIDs))
	for _, id := range followingIDs {
		following[id] = struct{}{}
	}

	out := make([]Suggestion, 0, len(profiles))
	for _, p := range profiles {
		_, isFollowing := following[p.UserID]
		out = append(out, Suggestion{
			UserID:           p.UserID,
			Username:         p.Username,
			Bio:              p.Bio,
			AvatarURL:        p.AvatarURL,
			FollowersCount:   counts[p.UserID].Followers,
			FollowingCount:   counts[p.UserID].Following,
			CommonFollowers:  common[p.UserID],
			IsFollowing:      isFollowing,
			PublicPlansCount: planCounts[p.UserID],
		})
	}
	return out, nil
}

// UploadAvatar normalizes and stores a new avatar and returns its URL.
func (s *ProfileService) UploadAvatar(ctx context.Context, userID uint, content []byte, contentType string) (string, error) {
	if s.avatars == nil {
		return "", models.NewValidationError("Avatar uploads are not configured")
	}
	if _, err := s.profiles.GetByUserID(ctx, userID); err != nil {
		return "", err
	}
	normalized, err := NormalizeAvatar(content, contentType, s.maxAvatar)
	if err != nil {
		return "", err
	}
	url, err := s.avatars.PutAvatar(ctx, userID, normalized, AvatarContentType)
	if err != nil {
		return "", models.NewUpstreamError("object storage", err)
	}
	if err := s.profiles.UpdateAvatar(ctx, userID, url); err != nil {
		return "", err
	}
	return url, nil
}

// Resync repairs derived state for userID: it re-runs the name cascade with
// the current username and makes every plan behind the user's publications
// public.
func (s *ProfileService) Resync(ctx context.Context, userID uint) (*ResyncResult, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	cascaded, err := s.cascade.Propagate(ctx, userID, profile.Username)
	if err != nil {
		return nil, err
	}

	pubs, err := s.publications.ListByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint]struct{}, len(pubs))
	planIDs := make([]uint, 0, len(pubs))
	for _, p := range pubs {
		if _, ok := seen[p.SharedPlanID]; ok {
			continue
		}
		seen[p.SharedPlanID] = struct{}{}
		planIDs = append(planIDs, p.SharedPlanID)
	}
	updated, err := s.plans.SetPublic(ctx, planIDs)
	if err != nil {
		return nil, err
	}

	return &ResyncResult{UpdatedCount: updated, RenamedDocuments: cascaded.Documents}, nil
}
