// Package main provides account maintenance utilities for Wanderplan.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"wanderplan/internal/cache"
	"wanderplan/internal/config"
	"wanderplan/internal/database"
	"wanderplan/internal/middleware"
	"wanderplan/internal/models"
	"wanderplan/internal/repository"
	"wanderplan/internal/service"

	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin/main.go deactivate <user_id>  - Block a user and revoke their tokens")
		fmt.Println("  go run ./cmd/admin/main.go activate <user_id>    - Re-enable a user")
		fmt.Println("  go run ./cmd/admin/main.go resync <user_id>      - Re-run the name cascade for a user")
		fmt.Println("  go run ./cmd/admin/main.go list-inactive         - List deactivated users")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	command := os.Args[1]

	switch command {
	case "deactivate", "activate":
		id := userArg(command)
		setActive(ctx, db, id, command == "activate")
		if command == "deactivate" {
			revokeTokens(ctx, cfg, id)
		}
	case "resync":
		resync(ctx, db, userArg(command))
	case "list-inactive":
		listInactive(ctx, db)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func userArg(command string) uint {
	if len(os.Args) < 3 {
		fmt.Printf("Usage: go run ./cmd/admin/main.go %s <user_id>\n", command)
		os.Exit(1)
	}
	id, err := strconv.ParseUint(os.Args[2], 10, 32)
	if err != nil || id == 0 {
		fmt.Printf("Invalid user ID: %s\n", os.Args[2])
		os.Exit(1)
	}
	return uint(id)
}

func mustUser(ctx context.Context, db *gorm.DB, id uint) *models.User {
	user, err := repository.NewUserRepository(db).GetByID(ctx, id)
	if err != nil {
		if models.StatusFor(err) == http.StatusNotFound {
			fmt.Printf("User with ID %d not found\n", id)
			os.Exit(1)
		}
		log.Fatalf("Database error: %v", err)
	}
	return user
}

func setActive(ctx context.Context, db *gorm.DB, id uint, active bool) {
	user := mustUser(ctx, db, id)
	if user.IsActive == active {
		fmt.Printf("User %s (ID: %d) already has is_active=%t\n", user.Username, user.ID, active)
		return
	}

	if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_active", active).Error; err != nil {
		log.Fatalf("Failed to update user: %v", err)
	}
	fmt.Printf("✓ User %s (ID: %d) is_active=%t\n", user.Username, user.ID, active)
}

// revokeTokens signs the user out everywhere, not just at the next login.
func revokeTokens(ctx context.Context, cfg *config.Config, id uint) {
	cache.InitRedis(cfg.RedisURL)
	rdb := cache.GetClient()
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}
	tokens := middleware.NewTokens(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience,
		time.Duration(cfg.TokenTTLHours)*time.Hour, rdb)
	if err := tokens.RevokeUser(ctx, id); err != nil {
		fmt.Printf("! Could not revoke tokens for user %d: %v (existing sessions stay valid until expiry)\n", id, err)
		return
	}
	fmt.Printf("✓ Revoked existing tokens for user %d\n", id)
}

func resync(ctx context.Context, db *gorm.DB, id uint) {
	user := mustUser(ctx, db, id)
	cascade := service.NewNameCascade(repository.NewPlanRepository(db), repository.NewPublicationRepository(db))
	res, err := cascade.Propagate(ctx, user.ID, user.Username)
	if err != nil {
		log.Fatalf("Cascade failed: %v", err)
	}
	fmt.Printf("✓ %s: %d author rows, %d documents renamed, %d failed\n",
		user.Username, res.AuthorRows, res.Documents, res.Failed)
}

func listInactive(ctx context.Context, db *gorm.DB) {
	var users []models.User
	if err := db.WithContext(ctx).Where("is_active = ?", false).Order("id").Find(&users).Error; err != nil {
		log.Fatalf("Failed to fetch users: %v", err)
	}

	if len(users) == 0 {
		fmt.Println("No deactivated users")
		return
	}

	fmt.Println("Deactivated users:")
	for _, u := range users {
		fmt.Printf("  ID: %d, Username: %s, Email: %s\n", u.ID, u.Username, u.Email)
	}
}
