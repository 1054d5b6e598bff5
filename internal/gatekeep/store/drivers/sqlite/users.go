package sqlite

import (
	"context"
	"database/sql"

	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/domain"
	"github.com/aussiebroadwan/gatekeep/internal/gatekeep/store"
)

const userColumns = `id, email, password_hash, is_admin, created_at, mfa_secret, mfa_enabled`

type usersRepo struct {
	db DBTX
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u         domain.User
		createdAt string
		mfaSecret sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsAdmin, &createdAt, &mfaSecret, &u.MFAEnabled); err != nil {
		return domain.User{}, mapNotFound(err)
	}

	t, err := parseTime(createdAt)
	if err != nil {
		return domain.User{}, err
	}
	u.CreatedAt = t
	u.MFASecret = mapNullStringPtr(mfaSecret)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Email,
		u.PasswordHash,
		u.IsAdmin,
		formatTime(u.CreatedAt),
		mapStringNull(u.MFASecret),
		u.MFAEnabled,
	)
	return mapConstraint(err)
}

func (r *usersRepo) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *usersRepo) UpdateMFASecret(ctx context.Context, userID string, sealed string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET mfa_secret = ? WHERE id = ?`, sealed, userID)
	return expectOneRow(res, err)
}

func (r *usersRepo) EnableMFA(ctx context.Context, userID, sealed string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET mfa_enabled = 1 WHERE id = ? AND mfa_secret = ?`, userID, sealed)
	return expectOneRow(res, err)
}

func expectOneRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
