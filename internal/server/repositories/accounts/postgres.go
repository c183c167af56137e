package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mediashare/internal/common"
	"github.com/dmitrijs2005/mediashare/internal/dbx"
	"github.com/dmitrijs2005/mediashare/internal/server/auth"
	"github.com/dmitrijs2005/mediashare/internal/server/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	accountColumns = `id, username, email, full_name, avatar_url, avatar_key,
		cover_image_url, cover_image_key, password_hash, refresh_token, created_at, updated_at`
	profileColumns = `id, username, email, full_name, avatar_url, cover_image_url, created_at, updated_at`
)

const (
	usernameIndex = "accounts_username_lower_idx"
	emailIndex    = "accounts_email_lower_idx"
)

type PostgresRepository struct {
	db     dbx.DBTX
	hasher auth.PasswordHasher
}

var _ Repository = (*PostgresRepository)(nil)

func NewPostgresRepository(db dbx.DBTX, hasher auth.PasswordHasher) *PostgresRepository {
	return &PostgresRepository{db: db, hasher: hasher}
}

// dbError maps driver errors onto the error categories. Unique violations
// become common.ErrConflict; anything else is reported as a db error.
func dbError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		switch pgErr.ConstraintName {
		case usernameIndex:
			return common.Wrap(common.ErrConflict, err, "username already exists")
		case emailIndex:
			return common.Wrap(common.ErrConflict, err, "email already exists")
		default:
			return common.Wrap(common.ErrConflict, err, "user with email or username already exists")
		}
	}
	return fmt.Errorf("db error: %w", err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	a := &models.Account{}
	var refresh sql.NullString
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.FullName, &a.AvatarURL, &a.AvatarKey,
		&a.CoverImageURL, &a.CoverImageKey, &a.PasswordHash, &refresh, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.RefreshToken = refresh.String
	return a, nil
}

func scanProfile(row rowScanner) (*models.Profile, error) {
	p := &models.Profile{}
	err := row.Scan(&p.ID, &p.Username, &p.Email, &p.FullName, &p.AvatarURL, &p.CoverImageURL,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account, password string) (*models.Account, error) {
	digest, err := r.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	a := *account
	a.Username = models.NormalizeIdentity(a.Username)
	a.Email = models.NormalizeIdentity(a.Email)
	a.PasswordHash = digest
	a.RefreshToken = ""

	query :=
		`INSERT INTO accounts (username, email, full_name, avatar_url, avatar_key,
			cover_image_url, cover_image_key, password_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`

	err = r.db.QueryRowContext(ctx, query,
		a.Username, a.Email, a.FullName, a.AvatarURL, a.AvatarKey,
		a.CoverImageURL, a.CoverImageKey, a.PasswordHash,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, dbError(err)
	}

	return &a, nil
}

func (r *PostgresRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.Account, error) {
	username = models.NormalizeIdentity(username)
	email = models.NormalizeIdentity(email)
	if username == "" && email == "" {
		return nil, common.NewError(common.ErrValidation, "username or email is required")
	}

	query :=
		`SELECT ` + accountColumns + ` FROM accounts
		 WHERE ($1 <> '' AND lower(username) = $1) OR ($2 <> '' AND lower(email) = $2)
		 ORDER BY (lower(email) = $2) DESC
		 LIMIT 1`

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, username, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.ErrNotFound, "user does not exist")
		}
		return nil, dbError(err)
	}
	return a, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.ErrNotFound, "user does not exist")
		}
		return nil, dbError(err)
	}
	return a, nil
}

func (r *PostgresRepository) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM accounts WHERE id = $1`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.ErrNotFound, "user does not exist")
		}
		return nil, dbError(err)
	}
	return p, nil
}

// execOne runs an UPDATE that must touch exactly one row.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return dbError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(err)
	}
	if n == 0 {
		return common.NewError(common.ErrNotFound, "user does not exist")
	}
	return nil
}

func (r *PostgresRepository) SetRefreshToken(ctx context.Context, id, token string) error {
	query :=
		`UPDATE accounts SET refresh_token = $2, updated_at = now()
		 WHERE id = $1`
	return r.execOne(ctx, query, id, token)
}

func (r *PostgresRepository) RotateRefreshToken(ctx context.Context, id, presented, next string) (bool, error) {
	query :=
		`UPDATE accounts SET refresh_token = $3, updated_at = now()
		 WHERE id = $1 AND refresh_token = $2`

	res, err := r.db.ExecContext(ctx, query, id, presented, next)
	if err != nil {
		return false, dbError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dbError(err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) ClearRefreshToken(ctx context.Context, id string) error {
	query :=
		`UPDATE accounts SET refresh_token = NULL, updated_at = now()
		 WHERE id = $1 AND refresh_token IS NOT NULL`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return dbError(err)
	}
	return nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id, password string) error {
	digest, err := r.hasher.Hash(password)
	if err != nil {
		return err
	}

	query :=
		`UPDATE accounts SET password_hash = $2, refresh_token = NULL, updated_at = now()
		 WHERE id = $1`
	return r.execOne(ctx, query, id, digest)
}

func (r *PostgresRepository) UpdateDetails(ctx context.Context, id, fullName, email string) (*models.Profile, error) {
	query :=
		`UPDATE accounts SET full_name = $2, email = $3, updated_at = now()
		 WHERE id = $1
		 RETURNING ` + profileColumns

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id, fullName, models.NormalizeIdentity(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.ErrNotFound, "user does not exist")
		}
		return nil, dbError(err)
	}
	return p, nil
}

func (r *PostgresRepository) swapAsset(ctx context.Context, id, urlCol, keyCol string, asset models.Asset) (models.Asset, error) {
	var prev models.Asset

	query := `SELECT ` + urlCol + `, ` + keyCol + ` FROM accounts WHERE id = $1 FOR UPDATE`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&prev.URL, &prev.Key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Asset{}, common.NewError(common.ErrNotFound, "user does not exist")
		}
		return models.Asset{}, dbError(err)
	}

	update := `UPDATE accounts SET ` + urlCol + ` = $2, ` + keyCol + ` = $3, updated_at = now() WHERE id = $1`
	if err := r.execOne(ctx, update, id, asset.URL, asset.Key); err != nil {
		return models.Asset{}, err
	}

	return prev, nil
}

func (r *PostgresRepository) UpdateAvatar(ctx context.Context, id string, asset models.Asset) (models.Asset, error) {
	return r.swapAsset(ctx, id, "avatar_url", "avatar_key", asset)
}

func (r *PostgresRepository) UpdateCoverImage(ctx context.Context, id string, asset models.Asset) (models.Asset, error) {
	return r.swapAsset(ctx, id, "cover_image_url", "cover_image_key", asset)
}
