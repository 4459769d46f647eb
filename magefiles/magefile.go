//go:build mage

// Build, test and database targets for shelfchat.
//
//	mage build      compile every binary under cmd/ to bin/
//	mage test       run all tests
//	mage testShort  run tests that need no external services
//	mage vet        run go vet
//	mage lint       run golangci-lint
//	mage migrate    apply store migrations with SHELFCHAT_* settings
//	mage seed       load the demo library through a running api
//	mage clean      remove build artifacts
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo     = "go"
	binaryDir = "bin"
)

var binaries = []string{
	"shelfchat-api",
	"shelfchat-migrate",
	"shelfchat-export",
	"shelfchat-seed",
	"shelfchatctl",
}

// Build compiles every binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	for _, name := range binaries {
		out := filepath.Join(binaryDir, name)
		if err := sh.RunV(binGo, "build", "-o", out, "./cmd/"+name); err != nil {
			return fmt.Errorf("build %s: %w", name, err)
		}
	}
	return nil
}

// Test runs all tests.
func Test() error {
	return sh.RunV(binGo, "test", "./...")
}

// TestShort skips integration tests that need Postgres or an S3 endpoint.
func TestShort() error {
	return sh.RunV(binGo, "test", "-short", "./...")
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV(binGo, "vet", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	mg.Deps(Vet)
	return sh.RunV("golangci-lint", "run", "./...")
}

// Migrate applies all pending migrations.
func Migrate() error {
	return sh.RunV(binGo, "run", "./cmd/shelfchat-migrate", "-direction", "up")
}

// Seed loads the demo library into the api at SHELFCHAT_SEED_API_URL.
func Seed() error {
	return sh.RunV(binGo, "run", "./cmd/shelfchat-seed")
}

// Clean removes build artifacts.
func Clean() error {
	return os.RemoveAll(binaryDir)
}
