package main

import (
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"ariga.io/atlas-provider-gorm/gormschema"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/calllog"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/deadletter"
	"git.mci.dev/mse/sre/phoenix/golang/leadsync/internal/validation"
)

const (
	minArgs       = 2
	devURLEnv     = "ATLAS_DEV_URL"
	defaultDevURL = "docker://postgres/15/dev?search_path=public"
)

// The leads table belongs to the back office and is deliberately absent here.
var ownedModels = []any{
	&calllog.CallLog{},
	&validation.ValidatedLead{},
	&deadletter.WebhookDeadLetter{},
}

func main() {
	if len(os.Args) < minArgs {
		log.Fatal("please provide a migration name")
	}

	migrationName := filepath.Base(os.Args[1])

	schema, err := gormschema.New("postgres").Load(ownedModels...)
	if err != nil {
		log.Fatalf("failed to load gorm schema: %v", err)
	}

	tmp, err := os.CreateTemp("", "schema-*.sql")
	if err != nil {
		log.Fatal(err)
	}

	defer func() {
		err := os.Remove(tmp.Name())
		if err != nil {
			log.Printf("failed to remove temp file %s: %v", tmp.Name(), err)
		}
	}()

	_, err = tmp.WriteString(schema)
	if err != nil {
		log.Fatal(err)
	}

	err = tmp.Close()
	if err != nil {
		log.Printf("failed to close temp file: %v", err)
	}

	abs, err := filepath.Abs(tmp.Name())
	if err != nil {
		log.Fatal(err)
	}

	devURL := os.Getenv(devURLEnv)
	if devURL == "" {
		devURL = defaultDevURL
	}

	cmd := exec.Command(
		"atlas",
		"migrate", "diff",
		migrationName,
		"--to", "file://"+abs,
		"--dev-url", devURL,
		"--dir", "file://migrations?format=golang-migrate",
	)

	out, err := cmd.CombinedOutput()
	if err != nil {
		log.Fatalf("atlas diff failed: %v\n%s", err, out)
	}

	log.Printf("migration generated successfully:\n%s", out)
}
