//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const postgresDSNEnv = "LINKSHELF_TEST_POSTGRES_DSN"

// Test groups test targets (all, unit, postgres).
type Test mg.Namespace

// All runs every test. The postgres driver tests skip themselves unless
// LINKSHELF_TEST_POSTGRES_DSN is set.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-v", "./...")
}

// Unit runs every test with the race detector and external services
// disabled.
func (Test) Unit() error {
	env := map[string]string{postgresDSNEnv: ""}
	return sh.RunWithV(env, binGo, "test", "-race", "./...")
}

// Postgres runs the postgres driver tests against the server named by
// LINKSHELF_TEST_POSTGRES_DSN.
func (Test) Postgres() error {
	if os.Getenv(postgresDSNEnv) == "" {
		return errors.New(postgresDSNEnv + " is not set")
	}
	return sh.RunV(binGo, "test", "-v", "-count=1", "./internal/kv/postgres/...")
}
