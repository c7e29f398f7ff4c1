package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"wanderplan/internal/middleware"
	"wanderplan/internal/models"
	"wanderplan/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultPassword is set on every seeded account.
const DefaultPassword = "Wanderplan123!"

// Options sizes a seeding run.
type Options struct {
	Users          int
	PlansPerUser   int
	FollowsPerUser int
	// PublicPercent of plans are shared and published.
	PublicPercent int
	// RandSeed makes runs reproducible; zero picks a time-based seed.
	RandSeed int64
}

// DefaultOptions is a small but fully connected demo dataset.
func DefaultOptions() Options {
	return Options{Users: 20, PlansPerUser: 3, FollowsPerUser: 5, PublicPercent: 60}
}

// Report counts what a run created.
type Report struct {
	Users        int
	Follows      int
	Plans        int
	Publications int
	Likes        int
	Comments     int
}

// Seeder writes demo data through the repositories so every row carries the
// same invariants as API-created data.
type Seeder struct {
	db           *gorm.DB
	catalog      *Catalog
	users        repository.UserRepository
	follows      repository.FollowRepository
	plans        repository.PlanRepository
	publications repository.PublicationRepository
}

func NewSeeder(db *gorm.DB, catalog *Catalog) *Seeder {
	return &Seeder{
		db:           db,
		catalog:      catalog,
		users:        repository.NewUserRepository(db),
		follows:      repository.NewFollowRepository(db),
		plans:        repository.NewPlanRepository(db),
		publications: repository.NewPublicationRepository(db),
	}
}

// ClearAll deletes every row of every application table, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	tables := []any{
		&models.Notification{},
		&models.Publication{},
		&models.Plan{},
		&models.Follow{},
		&models.UserProfile{},
		&models.User{},
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range tables {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}
		return nil
	})
}

// Run creates users, follow edges, plans, publications and engagement.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Report, error) {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	faker := gofakeit.New(seed)
	report := &Report{}

	users, err := s.createUsers(ctx, faker, opts.Users)
	if err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}
	report.Users = len(users)

	if report.Follows, err = s.createFollows(ctx, faker, users, opts.FollowsPerUser); err != nil {
		return nil, fmt.Errorf("create follows: %w", err)
	}

	var published []models.Publication
	for i := range users {
		for n := 0; n < opts.PlansPerUser; n++ {
			plan, err := s.createPlan(ctx, faker, &users[i], opts.PublicPercent)
			if err != nil {
				return nil, fmt.Errorf("create plan: %w", err)
			}
			report.Plans++
			if !plan.IsPublic {
				continue
			}
			pub, err := s.publish(ctx, faker, plan)
			if err != nil {
				return nil, fmt.Errorf("publish plan %d: %w", plan.ID, err)
			}
			published = append(published, *pub)
		}
	}
	report.Publications = len(published)

	for _, pub := range published {
		likes, comments, err := s.engage(ctx, faker, users, pub.ID)
		if err != nil {
			return nil, fmt.Errorf("engage publication %d: %w", pub.ID, err)
		}
		report.Likes += likes
		report.Comments += comments
	}

	middleware.Logger.InfoContext(ctx, "seed completed",
		slog.Int("users", report.Users),
		slog.Int("follows", report.Follows),
		slog.Int("plans", report.Plans),
		slog.Int("publications", report.Publications),
		slog.Int("likes", report.Likes),
		slog.Int("comments", report.Comments),
	)
	return report, nil
}

func (s *Seeder) createUsers(ctx context.Context, faker *gofakeit.Faker, count int) ([]models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, count)
	users := make([]models.User, 0, count)
	for len(users) < count {
		username := strings.ToLower(faker.Username()) + fmt.Sprint(faker.Number(10, 999))
		if seen[username] {
			continue
		}
		seen[username] = true

		u := models.User{
			Username: username,
			Email:    username + "@example.com",
			Password: string(hashed),
			IsActive: true,
		}
		p := models.UserProfile{
			Username:  username,
			Email:     u.Email,
			Bio:       faker.Sentence(10),
			AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", username),
		}
		if err := s.users.CreateWithProfile(ctx, &u, &p); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *Seeder) createFollows(ctx context.Context, faker *gofakeit.Faker, users []models.User, perUser int) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}
	created := 0
	for _, u := range users {
		for n := 0; n < perUser; n++ {
			other := users[faker.Number(0, len(users)-1)]
			if other.ID == u.ID {
				continue
			}
			ok, err := s.follows.Follow(ctx, u.ID, other.ID)
			if err != nil {
				return created, err
			}
			if ok {
				created++
			}
		}
	}
	return created, nil
}

func (s *Seeder) createPlan(ctx context.Context, faker *gofakeit.Faker, author *models.User, publicPercent int) (*models.Plan, error) {
	city := s.catalog.Cities[faker.Number(0, len(s.catalog.Cities)-1)]

	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, faker.Number(7, 120))
	days := faker.Number(2, 6)

	bucket := pickPlaces(faker, city.Places, faker.Number(2, len(city.Places)))
	itinerary := make(datatypes.JSONSlice[models.ItineraryDay], days)
	for d := range itinerary {
		itinerary[d] = models.ItineraryDay{DayIndex: d, Date: start.AddDate(0, 0, d), Places: []models.Place{}}
	}
	for i, p := range bucket {
		day := &itinerary[i%days]
		day.Places = append(day.Places, p)
	}

	plan := &models.Plan{
		AuthorID:    author.ID,
		AuthorName:  author.Username,
		City:        city.Name,
		FromDate:    start,
		ToDate:      start.AddDate(0, 0, days-1),
		IsPublic:    faker.Number(1, 100) <= publicPercent,
		PlaceBucket: models.ClonePlaces(bucket),
		Itinerary:   itinerary,
	}
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *Seeder) publish(ctx context.Context, faker *gofakeit.Faker, plan *models.Plan) (*models.Publication, error) {
	pub := &models.Publication{
		SharedPlanID: plan.ID,
		AuthorID:     plan.AuthorID,
		AuthorName:   plan.AuthorName,
		Description:  faker.Sentence(12),
		City:         plan.City,
		PlanSnapshot: datatypes.NewJSONType(plan.Snapshot()),
	}
	if err := s.publications.Create(ctx, pub); err != nil {
		return nil, err
	}
	return pub, nil
}

// engage adds a handful of likes and comments from random users.
func (s *Seeder) engage(ctx context.Context, faker *gofakeit.Faker, users []models.User, pubID uint) (int, int, error) {
	likes, comments := 0, 0
	now := time.Now().UTC()

	fans := pickUsers(faker, users, faker.Number(0, min(5, len(users))))
	_, err := s.publications.MutateEngagement(ctx, pubID, func(e *models.Engagement) (bool, error) {
		likes, comments = 0, 0
		for _, u := range fans {
			if !e.HasLiked(u.ID) && e.ToggleLike(u.ID, u.Username, now) {
				likes++
			}
			if faker.Bool() {
				e.Comments = append(e.Comments, models.Comment{
					ID:         uuid.NewString(),
					AuthorID:   u.ID,
					AuthorName: u.Username,
					Text:       faker.Sentence(8),
					CreatedAt:  now,
					Replies:    []models.Reply{},
					Reactions:  []models.Reaction{},
				})
				comments++
			}
		}
		return likes+comments > 0, nil
	})
	return likes, comments, err
}

func pickPlaces(faker *gofakeit.Faker, from []models.Place, n int) []models.Place {
	out := make([]models.Place, 0, n)
	for _, i := range shuffled(faker, len(from))[:n] {
		out = append(out, from[i])
	}
	return out
}

func pickUsers(faker *gofakeit.Faker, from []models.User, n int) []models.User {
	out := make([]models.User, 0, n)
	for _, i := range shuffled(faker, len(from))[:n] {
		out = append(out, from[i])
	}
	return out
}

func shuffled(faker *gofakeit.Faker, n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	faker.ShuffleInts(idx)
	return idx
}
