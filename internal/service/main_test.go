package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"wanderplan/internal/database"
	"wanderplan/internal/models"
	"wanderplan/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv wires every service over one in-memory database.
type testEnv struct {
	db           *gorm.DB
	users        repository.UserRepository
	profilesRepo repository.ProfileRepository
	followsRepo  repository.FollowRepository
	plansRepo    repository.PlanRepository
	pubsRepo     repository.PublicationRepository
	notifRepo    repository.NotificationRepository

	publisher     *publisherStub
	index         *indexStub
	notifications *NotificationService
	plans         *PlanService
	publications  *PublicationService
	engagement    *EngagementService
	follows       *FollowService
	cascade       *NameCascade
	profiles      *ProfileService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	env := &testEnv{
		db:           db,
		users:        repository.NewUserRepository(db),
		profilesRepo: repository.NewProfileRepository(db),
		followsRepo:  repository.NewFollowRepository(db),
		plansRepo:    repository.NewPlanRepository(db),
		pubsRepo:     repository.NewPublicationRepository(db),
		notifRepo:    repository.NewNotificationRepository(db),
		publisher:    &publisherStub{},
		index:        &indexStub{},
	}
	env.notifications = NewNotificationService(env.notifRepo, env.publisher)
	env.plans = NewPlanService(env.plansRepo, env.pubsRepo, env.profilesRepo, env.notifications, env.index)
	env.publications = NewPublicationService(env.pubsRepo, env.plansRepo, env.profilesRepo, env.plans, env.index, flagsStub{})
	env.engagement = NewEngagementService(env.plansRepo, env.pubsRepo, env.profilesRepo, env.notifications)
	env.follows = NewFollowService(env.followsRepo, env.profilesRepo)
	env.cascade = NewNameCascade(env.plansRepo, env.pubsRepo)
	env.profiles = NewProfileService(ProfileDeps{
		Users:        env.users,
		Profiles:     env.profilesRepo,
		Follows:      env.followsRepo,
		Plans:        env.plansRepo,
		Publications: env.pubsRepo,
		Cascade:      env.cascade,
	})
	return env
}

func (e *testEnv) seedUser(t *testing.T, username string) models.User {
	t.Helper()
	u := models.User{Username: username, Email: username + "@example.com", Password: "x", IsActive: true}
	p := models.UserProfile{Username: username, Email: u.Email}
	require.NoError(t, e.users.CreateWithProfile(context.Background(), &u, &p))
	return u
}

func (e *testEnv) seedPlan(t *testing.T, authorID uint, city string, public bool) *PlanDetail {
	t.Helper()
	plan, err := e.plans.CreatePlan(context.Background(), authorID, CreatePlanInput{
		City: city, FromDate: "01/06/2025", ToDate: "03/06/2025", IsPublic: public,
	})
	require.NoError(t, err)
	return plan
}

func (e *testEnv) notificationsFor(t *testing.T, userID uint) []models.Notification {
	t.Helper()
	list, err := e.notifications.List(context.Background(), userID, 50, 0)
	require.NoError(t, err)
	return list
}

type publishedEvent struct {
	userID    uint
	eventType string
	payload   any
}

type publisherStub struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *publisherStub) PublishEvent(_ context.Context, userID uint, eventType string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{userID: userID, eventType: eventType, payload: payload})
	return p.err
}

type indexStub struct {
	indexed  []uint
	removed  []uint
	searchFn func(ctx context.Context, city string, excludeAuthorID uint, limit, offset int) ([]uint, error)
}

func (s *indexStub) Index(_ context.Context, pub *models.Publication) error {
	s.indexed = append(s.indexed, pub.ID)
	return nil
}

func (s *indexStub) Remove(_ context.Context, ids ...uint) error {
	s.removed = append(s.removed, ids...)
	return nil
}

func (s *indexStub) SearchByCity(ctx context.Context, city string, excludeAuthorID uint, limit, offset int) ([]uint, error) {
	if s.searchFn == nil {
		return nil, errors.New("index offline")
	}
	return s.searchFn(ctx, city, excludeAuthorID, limit, offset)
}

type flagsStub map[string]bool

func (f flagsStub) Enabled(name string, _ uint) bool { return f[name] }

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code, appErr.Message)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertAppError(t, err, models.CodeValidation)
}
