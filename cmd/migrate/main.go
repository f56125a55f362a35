package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"authgate/internal/auth"
	"authgate/internal/config"
	"authgate/internal/db"
	"authgate/internal/logging"
	"authgate/internal/repository"
	"authgate/internal/service"
)

// SeedUser is one entry of the seed file.
type SeedUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func main() {
	reset := flag.Bool("reset", false, "drop the users table before migrating")
	seedFile := flag.String("seed", "", "JSON file of {name,email,password} local accounts to create")
	flag.Parse()

	log.Println("Starting migration...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	gormDB, err := db.Open(cfg, logging.New(os.Stderr, cfg.LogLevel))
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Printf("Connected to %s database", cfg.DBDriver)

	if *reset || cfg.ResetDB {
		if err := db.Reset(gormDB); err != nil {
			log.Fatalf("Failed to reset database: %v", err)
		}
		log.Println("Tables dropped")
	}

	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	if *seedFile == "" {
		return
	}

	users, err := readSeedFile(*seedFile)
	if err != nil {
		log.Fatalf("Failed to read seed file: %v", err)
	}
	log.Printf("Read %d users from %s", len(users), *seedFile)

	identities := service.NewIdentityResolver(repository.NewUserRepository(gormDB), auth.NewBcryptHasher(cfg.BcryptCost))
	created, skipped, err := seedUsers(context.Background(), identities, users)
	if err != nil {
		log.Fatalf("Failed to seed users: %v", err)
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - New users created: %d", created)
	log.Printf("  - Existing emails skipped: %d", skipped)
}

// readSeedFile loads seed users from a JSON array.
func readSeedFile(path string) ([]SeedUser, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var users []SeedUser
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return users, nil
}

// seedUsers registers local accounts, leaving emails that already exist untouched.
func seedUsers(ctx context.Context, identities service.IdentityResolver, users []SeedUser) (created int, skipped int, err error) {
	for _, u := range users {
		if u.Name == "" || u.Email == "" || u.Password == "" {
			log.Printf("Skipping incomplete seed entry for %q", u.Email)
			skipped++
			continue
		}

		_, err := identities.RegisterLocal(ctx, u.Name, u.Email, u.Password)
		switch {
		case err == nil:
			created++
		case errors.Is(err, service.ErrEmailTaken):
			skipped++
		default:
			return created, skipped, fmt.Errorf("error creating user %s: %w", u.Email, err)
		}
	}
	return created, skipped, nil
}
