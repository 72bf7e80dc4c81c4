package main

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/config"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/database"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

const (
	validArgsLen   = 2
	migrationsDir  = "migrations"
	migrationsPath = "MIGRATIONS_PATH"
)

func main() {
	if len(os.Args) < validArgsLen {
		log.Fatal("usage: up | down | version | force <version>")
	}

	err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	dir := os.Getenv(migrationsPath)
	if dir == "" {
		dir = migrationsDir
	}

	projectRoot, err := filepath.Abs(dir)
	if err != nil {
		log.Fatal(err)
	}

	migrator, err := migrate.New("file://"+filepath.ToSlash(projectRoot), database.GetURL())
	if err != nil {
		log.Fatal(err)
	}

	defer func() {
		sourceErr, dbErr := migrator.Close()
		if sourceErr != nil || dbErr != nil {
			log.Printf("failed to close migrator: source=%v database=%v", sourceErr, dbErr)
		}
	}()

	switch os.Args[1] {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Steps(-1)
	case "version":
	case "force":
		err = force(migrator, os.Args[2:])
	default:
		log.Fatal("unknown command")
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal(err)
	}

	version, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		log.Fatal(err)
	}

	log.Printf("migration complete. version=%d dirty=%v", version, dirty)
}

func force(migrator *migrate.Migrate, args []string) error {
	if len(args) == 0 {
		return errors.New("force needs a version")
	}

	version, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}

	return migrator.Force(version)
}
