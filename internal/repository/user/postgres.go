package user

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storefront/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool *pgxpool.Pool, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger.Named("user_repo")}
}

const userColumns = `id::text, mobile_number, otp_hash, is_admin, is_verified,
       first_name, last_name, COALESCE(email, ''), address, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	const q = `
INSERT INTO users (mobile_number, otp_hash, is_admin, is_verified, first_name, last_name, email, address)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
RETURNING ` + userColumns
	return r.scanUser(r.pool.QueryRow(ctx, q,
		u.MobileNumber,
		u.OTPHash,
		u.IsAdmin,
		u.IsVerified,
		u.Profile.FirstName,
		u.Profile.LastName,
		strings.ToLower(u.Profile.Email),
		u.Profile.Address,
	))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *postgresRepo) GetByMobile(ctx context.Context, mobile string) (*domain.User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE mobile_number = $1`, mobile))
}

func (r *postgresRepo) SetOTP(ctx context.Context, id, otpHash string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE users SET otp_hash = $2, updated_at = now() WHERE id = $1`, id, otpHash)
	if err != nil {
		r.logger.Error("set otp", zap.String("user_id", id), zap.Error(err))
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) MarkVerified(ctx context.Context, id string) (*domain.User, error) {
	const q = `
UPDATE users SET is_verified = TRUE, otp_hash = '', updated_at = now()
WHERE id = $1
RETURNING ` + userColumns
	return r.scanUser(r.pool.QueryRow(ctx, q, id))
}

func (r *postgresRepo) UpdateProfile(ctx context.Context, id string, p domain.Profile) (*domain.User, error) {
	const q = `
UPDATE users
SET first_name = $2, last_name = $3, email = NULLIF($4, ''), address = $5, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns
	return r.scanUser(r.pool.QueryRow(ctx, q, id, p.FirstName, p.LastName, strings.ToLower(p.Email), p.Address))
}

func (r *postgresRepo) SetAdmin(ctx context.Context, id string, admin bool) (*domain.User, error) {
	const q = `
UPDATE users SET is_admin = $2, updated_at = now()
WHERE id = $1
RETURNING ` + userColumns
	return r.scanUser(r.pool.QueryRow(ctx, q, id, admin))
}

func (r *postgresRepo) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.MobileNumber,
		&u.OTPHash,
		&u.IsAdmin,
		&u.IsVerified,
		&u.Profile.FirstName,
		&u.Profile.LastName,
		&u.Profile.Email,
		&u.Profile.Address,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Error("scan user", zap.Error(err))
		return nil, err
	}
	return &u, nil
}
