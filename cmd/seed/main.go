// Command seed fills the database with demo travelers, plans and engagement.
package main

import (
	"context"
	"flag"
	"log"

	"wanderplan/internal/config"
	"wanderplan/internal/database"
	"wanderplan/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.Users, "Number of users to create")
	plansPerUser := flag.Int("plans", defaults.PlansPerUser, "Plans per user")
	followsPerUser := flag.Int("follows", defaults.FollowsPerUser, "Follows per user")
	publicPercent := flag.Int("public", defaults.PublicPercent, "Percent of plans shared and published")
	randSeed := flag.Int64("rand-seed", 0, "Random seed for reproducible runs")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Printf("Target: %d users, %d plans each, clean=%v\n", *numUsers, *plansPerUser, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	catalog, err := seed.DefaultCatalog()
	if err != nil {
		log.Fatalf("Failed to load seed catalog: %v", err)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, catalog)
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	report, err := s.Run(ctx, seed.Options{
		Users:          *numUsers,
		PlansPerUser:   *plansPerUser,
		FollowsPerUser: *followsPerUser,
		PublicPercent:  *publicPercent,
		RandSeed:       *randSeed,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ Seeded %d users, %d follows, %d plans, %d publications, %d likes, %d comments",
		report.Users, report.Follows, report.Plans, report.Publications, report.Likes, report.Comments)
	log.Printf("📧 All seeded users have the password: %s", seed.DefaultPassword)
}
