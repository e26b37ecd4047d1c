//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for the linkshelf project using Mage.
//
// Usage:
//
//	mage build          Compile the linkshelf binary to bin/
//	mage test:all       Run all tests
//	mage test:unit      Run tests that need no external services
//	mage test:postgres  Run the postgres driver tests against LINKSHELF_TEST_POSTGRES_DSN
//	mage lint           Run golangci-lint
//	mage clean          Remove build artifacts
//	mage install        Install linkshelf to GOPATH/bin
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "linkshelf"
	binaryDir  = "bin"
	cmdDir     = "./cmd/linkshelf"
	versionVar = "github.com/mesh-intelligence/linkshelf/internal/cli.Version"
)

// Build compiles the linkshelf binary to bin/. LINKSHELF_VERSION, when set,
// is stamped into the version command.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	args := []string{"build", "-v", "-o", filepath.Join(binaryDir, binaryName)}
	if v := os.Getenv("LINKSHELF_VERSION"); v != "" {
		args = append(args, "-ldflags", "-X "+versionVar+"="+v)
	}
	return sh.RunV(binGo, append(args, cmdDir)...)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
