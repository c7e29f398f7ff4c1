// Command migrate runs schema operations for the backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"

	"wanderplan/internal/config"
	"wanderplan/internal/database"
	"wanderplan/internal/repository"
	"wanderplan/internal/search"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate/main.go <up|auto|status|reindex>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx := context.Background()
	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	switch cmd {
	case "up":
		if err := database.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
		log.Println("migrations applied")
	case "auto":
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("schema apply failed: %w", err)
		}
		log.Printf("schema policy applied for env=%s", cfg.Env)
	case "status":
		status, err := database.TableStatus(db)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		tables := make([]string, 0, len(status))
		for name := range status {
			tables = append(tables, name)
		}
		sort.Strings(tables)
		for _, name := range tables {
			log.Printf("%-20s present=%t", name, status[name])
		}
	case "reindex":
		if cfg.MeiliURL == "" {
			return fmt.Errorf("MEILI_URL is required for reindex")
		}
		idx := search.NewMeili(cfg.MeiliURL, cfg.MeiliAPIKey)
		n, err := idx.Reindex(ctx, repository.NewPublicationRepository(db))
		if err != nil {
			return fmt.Errorf("reindex failed: %w", err)
		}
		log.Printf("indexed %d publications", n)
	default:
		return usage()
	}

	return nil
}
