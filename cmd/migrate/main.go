package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/flickfinder/flickfinder/internal/auth"
	"github.com/flickfinder/flickfinder/internal/config"
	"github.com/flickfinder/flickfinder/internal/database"
)

const usage = "Usage: migrate [up|down|import-users <legacy-users-file>]"

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	log.Println("FlickFinder Migration Tool")

	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	command := os.Args[1]
	cfg := config.Load()

	switch command {
	case "up", "down":
		db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if command == "up" {
			if err := migrateUp(db); err != nil {
				log.Fatalf("Migration failed: %v", err)
			}
			log.Println("Migration completed successfully")
		} else {
			if err := migrateDown(db); err != nil {
				log.Fatalf("Migration rollback failed: %v", err)
			}
			log.Println("Migration rolled back successfully")
		}

	case "import-users":
		if len(os.Args) < 3 {
			log.Fatal(usage)
		}
		if err := importUsers(os.Args[2], cfg.UsersFile); err != nil {
			log.Fatalf("User import failed: %v", err)
		}

	default:
		log.Fatalf("Unknown command: %s. %s", command, usage)
	}
}

func migrateUp(db *database.DB) error {
	log.Println("Creating list tables...")
	if _, err := database.NewFavoritesStore(db); err != nil {
		return err
	}
	if _, err := database.NewWatchlistStore(db); err != nil {
		return err
	}
	return nil
}

func migrateDown(db *database.DB) error {
	log.Println("Rolling back migrations...")

	for _, table := range []string{database.WatchlistTable, database.FavoritesTable} {
		log.Printf("Dropping table %s...", table)
		if _, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}
	return nil
}

// importUsers hashes a legacy plain-text "user:password" file into the
// credential store.
func importUsers(legacyPath, usersFile string) error {
	fs := afero.NewOsFs()
	if legacyPath == usersFile {
		return fmt.Errorf("legacy file and USERS_FILE must differ")
	}

	f, err := fs.Open(legacyPath)
	if err != nil {
		return fmt.Errorf("failed to open legacy users file: %w", err)
	}
	defer f.Close()

	store := auth.NewFileCredentialStore(fs, usersFile)
	result, err := auth.ImportLegacy(f, store)
	if err != nil {
		return err
	}
	log.Printf("✓ Imported %d users (%d already present, %d malformed lines skipped)",
		result.Imported, result.Existing, result.Malformed)
	return nil
}
