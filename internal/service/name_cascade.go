package service

import (
	"context"
	"log/slog"
	"strings"

	"wanderplan/internal/middleware"
	"wanderplan/internal/models"
	"wanderplan/internal/observability"
	"wanderplan/internal/repository"

	"gorm.io/datatypes"
)

// CascadeResult counts what one cascade run touched.
type CascadeResult struct {
	AuthorRows int64 `json:"author_rows"`
	Documents  int   `json:"renamed_documents"`
	Failed     int   `json:"failed_documents"`
}

// NameCascade rewrites a user's cached display name across plans and
// publications. Every step is idempotent, so a run can be repeated.
type NameCascade struct {
	plans        repository.PlanRepository
	publications repository.PublicationRepository
}

func NewNameCascade(plans repository.PlanRepository, publications repository.PublicationRepository) *NameCascade {
	return &NameCascade{plans: plans, publications: publications}
}

// DispatchRename runs the cascade in the calling goroutine.
func (c *NameCascade) DispatchRename(ctx context.Context, userID uint, username string) error {
	_, err := c.Propagate(ctx, userID, username)
	return err
}

// Propagate applies name to author columns, then to every embedded like,
// comment, reply and reaction by userID. Per-document failures are logged
// and counted; the run continues.
func (c *NameCascade) Propagate(ctx context.Context, userID uint, name string) (*CascadeResult, error) {
	name = strings.TrimSpace(name)
	if userID == 0 || name == "" {
		return nil, models.NewValidationError("user and name are required")
	}

	ctx, span := observability.StartInternalSpan(ctx, "name_cascade", "propagate")
	op := observability.StartAsync(ctx, middleware.Logger, "name_cascade", slog.Uint64("user_id", uint64(userID)))
	res := &CascadeResult{}
	var err error
	defer func() {
		observability.EndSpan(span, err)
		if err != nil {
			op.Fail(ctx, err)
			return
		}
		op.Done(ctx,
			slog.Int64("author_rows", res.AuthorRows),
			slog.Int("renamed_documents", res.Documents),
			slog.Int("failed_documents", res.Failed),
		)
	}()

	var n int64
	if n, err = c.plans.RenameAuthor(ctx, userID, name); err != nil {
		return nil, err
	}
	res.AuthorRows += n
	if n, err = c.publications.RenameAuthor(ctx, userID, name); err != nil {
		return nil, err
	}
	res.AuthorRows += n

	rename := func(e *models.Engagement) (bool, error) {
		return e.RenameAuthor(userID, name) > 0, nil
	}

	err = c.plans.ScanBatches(ctx, func(batch []models.Plan) error {
		for i := range batch {
			if !mentionsStale(&batch[i].Engagement, userID, name) {
				continue
			}
			_, mErr := c.plans.MutateEngagement(ctx, batch[i].ID, rename)
			c.record(ctx, res, models.TargetPlan, batch[i].ID, mErr)
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}

	err = c.publications.ScanBatches(ctx, func(batch []models.Publication) error {
		for i := range batch {
			if !mentionsStale(&batch[i].Engagement, userID, name) {
				continue
			}
			_, mErr := c.publications.MutateEngagement(ctx, batch[i].ID, rename)
			c.record(ctx, res, models.TargetPublication, batch[i].ID, mErr)
		}
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *NameCascade) record(ctx context.Context, res *CascadeResult, kind models.TargetKind, id uint, err error) {
	if err != nil {
		res.Failed++
		observability.CascadeDocuments.WithLabelValues(string(kind), "failed").Inc()
		middleware.Logger.WarnContext(ctx, "name cascade document failed",
			slog.String("kind", string(kind)),
			slog.Uint64("id", uint64(id)),
			slog.String("error", err.Error()),
		)
		return
	}
	res.Documents++
	observability.CascadeDocuments.WithLabelValues(string(kind), "renamed").Inc()
}

// mentionsStale checks a throwaway copy so the scanned batch is untouched.
func mentionsStale(e *models.Engagement, userID uint, name string) bool {
	probe := models.Engagement{
		Likes:    append(datatypes.JSONSlice[models.Like]{}, e.Likes...),
		Comments: datatypes.JSONSlice[models.Comment](cloneComments(e.Comments)),
	}
	return probe.RenameAuthor(userID, name) > 0
}

func cloneComments(in []models.Comment) []models.Comment {
	out := make([]models.Comment, len(in))
	for i, c := range in {
		c.Replies = append([]models.Reply{}, c.Replies...)
		c.Reactions = append([]models.Reaction{}, c.Reactions...)
		out[i] = c
	}
	return out
}
