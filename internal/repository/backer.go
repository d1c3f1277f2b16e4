// Copyright 2026 The backersbot authors
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"github.com/crowdward/backersbot/internal/models"
)

const backerColumns = `email, role_id, verification_code, discord_user_id`

// GetBackerByEmail retrieves a backer record by email.
func (r *Repository) GetBackerByEmail(ctx context.Context, email string) (*models.Backer, error) {
	var b models.Backer
	query := r.db.Rebind(`SELECT ` + backerColumns + ` FROM backers WHERE email = ?`)
	if err := r.db.GetContext(ctx, &b, query, email); err != nil {
		return nil, wrapError(err)
	}
	return &b, nil
}

// GetBackerByEmailAndCode retrieves a backer record matching both email and
// verification code exactly.
func (r *Repository) GetBackerByEmailAndCode(ctx context.Context, email, code string) (*models.Backer, error) {
	var b models.Backer
	query := r.db.Rebind(`SELECT ` + backerColumns + ` FROM backers WHERE email = ? AND verification_code = ?`)
	if err := r.db.GetContext(ctx, &b, query, email, code); err != nil {
		return nil, wrapError(err)
	}
	return &b, nil
}

// SetVerificationCode stores a freshly issued code. The update is guarded so
// an already outstanding code is never rotated; it reports whether the row
// changed.
func (r *Repository) SetVerificationCode(ctx context.Context, email, code string) (bool, error) {
	query := r.db.Rebind(`UPDATE backers SET verification_code = ? WHERE email = ? AND verification_code IS NULL`)
	res, err := r.db.ExecContext(ctx, query, code, email)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ClaimBacker registers the given Discord account on the record matching
// email and code. The update is guarded so at most one account ever claims a
// record; it reports whether the row changed.
func (r *Repository) ClaimBacker(ctx context.Context, email, code string, userID int64) (bool, error) {
	query := r.db.Rebind(`UPDATE backers SET discord_user_id = ? WHERE email = ? AND verification_code = ? AND discord_user_id IS NULL`)
	res, err := r.db.ExecContext(ctx, query, userID, email, code)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateBacker inserts a record. Production rows arrive through an external
// import; this exists for seeding and tests.
func (r *Repository) CreateBacker(ctx context.Context, b *models.Backer) error {
	query := r.db.Rebind(`INSERT INTO backers (` + backerColumns + `) VALUES (?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query, b.Email, b.RoleID, b.VerificationCode, b.DiscordUserID)
	return err
}

// CountBackers returns the number of backer records. Used by the readiness
// probe as a cheap end-to-end query.
func (r *Repository) CountBackers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM backers`); err != nil {
		return 0, err
	}
	return count, nil
}
