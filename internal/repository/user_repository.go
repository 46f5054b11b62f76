package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/assistant-auth/internal/domain"
	apperrors "github.com/spec-kit/assistant-auth/pkg/util"
)

// UserRepository defines persistence access for assistant accounts. Lookups
// return pgx.ErrNoRows on a miss; uniqueness violations surface as Conflict
// so a registration race is decided by the store's constraints, not by
// locking in the service layer.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByPhoneFingerprint(ctx context.Context, fingerprint string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	TouchLastLogin(ctx context.Context, id string) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, name, email, phone_fingerprint, pin_hash,
        profession, source, about, onboarding_completed,
        created_at, updated_at, last_login_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (id, name, email, phone_fingerprint, pin_hash,
            profession, source, about, onboarding_completed)
        VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)
        RETURNING created_at, updated_at`

	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	err := r.pool.QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PhoneFingerprint,
		user.PINHash,
		user.Metadata.Profession,
		user.Metadata.Source,
		user.Metadata.About,
		user.OnboardingCompleted,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	return mapConstraintError(err)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET name=$1, email=NULLIF($2, ''), pin_hash=$3,
            profession=$4, source=$5, about=$6, onboarding_completed=$7,
            updated_at=NOW()
        WHERE id=$8`

	cmd, err := r.pool.Exec(ctx, query,
		user.Name,
		user.Email,
		user.PINHash,
		user.Metadata.Profession,
		user.Metadata.Source,
		user.Metadata.About,
		user.OnboardingCompleted,
		user.ID,
	)
	if err != nil {
		return mapConstraintError(err)
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM users WHERE id=$1`

	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByPhoneFingerprint(ctx context.Context, fingerprint string) (*domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM users WHERE phone_fingerprint=$1`

	return r.scanUser(r.pool.QueryRow(ctx, query, fingerprint))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT ` + userColumns + `
        FROM users WHERE email=$1`

	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id string) error {
	const query = `
        UPDATE users SET last_login_at=NOW(), updated_at=NOW()
        WHERE id=$1`

	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var email, profession, source, about *string
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&email,
		&user.PhoneFingerprint,
		&user.PINHash,
		&profession,
		&source,
		&about,
		&user.OnboardingCompleted,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLoginAt,
	); err != nil {
		return nil, err
	}
	if email != nil {
		user.Email = *email
	}
	if profession != nil {
		user.Metadata.Profession = *profession
	}
	if source != nil {
		user.Metadata.Source = *source
	}
	if about != nil {
		user.Metadata.About = *about
	}
	return &user, nil
}

// mapConstraintError translates unique-violation errors (code 23505) into the
// Conflict variant. A lost registration race lands here.
func mapConstraintError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		detail := map[string]any{"constraint": pgErr.ConstraintName}
		return apperrors.NewConflict("account already exists", detail)
	}
	return err
}
