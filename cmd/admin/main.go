package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"interviewhub/backend/internal/auth"
	"interviewhub/backend/internal/config"
	"interviewhub/backend/internal/storage"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const usage = `Usage: admin <command> [args]

Commands:
  token <user_id>                 issue a connection token
  history <interview_id> [limit]  print the recent message window
  migrate                         create or update tables
  seed                            load the demo directory`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	cfg, err := config.Load(os.Getenv("INTERVIEWHUB_CONFIG"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "token":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin token <user_id>")
			os.Exit(1)
		}
		if cfg.Auth.Secret == "" {
			log.Fatal("auth.secret is required to sign tokens")
		}
		s := openStorage(cfg)
		token, err := issueToken(ctx, s, cfg, os.Args[2])
		if err != nil {
			log.Fatalf("Error issuing token: %v", err)
		}
		fmt.Println(token)
	case "history":
		if len(os.Args) < 3 || len(os.Args) > 4 {
			fmt.Println("Usage: admin history <interview_id> [limit]")
			os.Exit(1)
		}
		limit := config.HistoryReplayLimit
		if len(os.Args) == 4 {
			limit, err = strconv.Atoi(os.Args[3])
			if err != nil || limit <= 0 {
				fmt.Println("Invalid limit. Please provide a positive integer.")
				os.Exit(1)
			}
		}
		if err := printHistory(ctx, openStorage(cfg), os.Args[2], limit); err != nil {
			log.Fatalf("Error reading history: %v", err)
		}
	case "migrate":
		if err := openStorage(cfg).AutoMigrate(); err != nil {
			log.Fatalf("Error migrating: %v", err)
		}
		fmt.Println("Migrations complete.")
	case "seed":
		s := openStorage(cfg)
		if err := s.AutoMigrate(); err != nil {
			log.Fatalf("Error migrating: %v", err)
		}
		if err := s.Seed(ctx, storage.DemoFixtures()); err != nil {
			log.Fatalf("Error seeding: %v", err)
		}
		fmt.Println("Demo directory loaded.")
	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}

func openStorage(cfg *config.Config) *storage.Service {
	if cfg.Database.DSN == "" {
		log.Fatal("database.dsn is required")
	}
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	return storage.NewStorageService(db, nil) // Redis не потрібен для admin CLI
}

func issueToken(ctx context.Context, s storage.Storage, cfg *config.Config, userID string) (string, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}
	tokens := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	return tokens.Issue(user.ID, user.Role)
}

func printHistory(ctx context.Context, s storage.Storage, interviewID string, limit int) error {
	msgs, err := s.ListRecentMessages(ctx, interviewID, limit)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		fmt.Printf("%6d  %s  %-9s %-6s %s\n", m.ID, m.CreatedAt.Format(time.RFC3339), m.Sender, m.Type, m.Content)
	}
	return nil
}
