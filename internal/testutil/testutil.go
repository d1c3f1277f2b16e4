// Copyright 2026 The backersbot authors
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"

	"github.com/crowdward/backersbot/internal/config"
	"github.com/crowdward/backersbot/internal/database"
	"github.com/crowdward/backersbot/internal/models"
	"github.com/crowdward/backersbot/internal/repository"
)

// NewTestDB creates an in-memory SQLite database with migrations applied.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, repository.New(db)
}

// SeedBacker inserts a backer row the way the external import would.
func SeedBacker(t *testing.T, repo *repository.Repository, b models.Backer) {
	t.Helper()
	require.NoError(t, repo.CreateBacker(context.Background(), &b))
}

// Ptr returns a pointer to v, for the nullable backer columns.
func Ptr[T any](v T) *T {
	return &v
}
