// Copyright 2026 The backersbot authors
// Licensed under the EUPL-1.2

// Package repository provides parameterized access to the backers table.
package repository

import (
	"database/sql"
	"errors"

	"github.com/vinovest/sqlx"
)

// ErrNotFound is returned when a record is not found.
var ErrNotFound = errors.New("record not found")

// Repository wraps the shared database handle.
type Repository struct {
	db *sqlx.DB
}

// New creates a new Repository instance.
func New(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// DB returns the underlying handle for direct access.
func (r *Repository) DB() *sqlx.DB {
	return r.db
}

// wrapError converts database/sql errors to repository errors.
func wrapError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
