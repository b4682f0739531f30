package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"account_service/internal/config"
	"account_service/internal/models"
	"account_service/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	dsn := dsn(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

func (r *PostgresRepo) SaveAccount(
	ctx context.Context,
	email string,
	passHash []byte,
	firstName, lastName string,
) (models.Account, error) {
	const op = "storage.postgres.SaveAccount"

	query := `
		INSERT INTO accounts (id, email, password_hash, first_name, last_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, email, password_hash, first_name, last_name, is_active, created_at, updated_at;
	`

	row := r.pool.QueryRow(ctx, query, uuid.New(), email, passHash, firstName, lastName)

	acc, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return models.Account{}, storage.ErrAccountExists
		}

		return models.Account{}, fmt.Errorf("%s: failed to save account: %w", op, err)
	}

	return acc, nil
}

func (r *PostgresRepo) AccountByEmail(ctx context.Context, email string) (models.Account, error) {
	const op = "storage.postgres.AccountByEmail"

	query := `
		SELECT id, email, password_hash, first_name, last_name, is_active, created_at, updated_at
		FROM accounts
		WHERE email = $1;
	`

	acc, err := scanAccount(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, storage.ErrAccountNotFound
		}

		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	return acc, nil
}

func (r *PostgresRepo) UpdateAccount(
	ctx context.Context,
	id uuid.UUID,
	passHash []byte,
	firstName, lastName string,
) error {
	const op = "storage.postgres.UpdateAccount"

	query := `
		UPDATE accounts
		SET password_hash = $1, first_name = $2, last_name = $3, updated_at = NOW()
		WHERE id = $4;
	`

	tag, err := r.pool.Exec(ctx, query, passHash, firstName, lastName, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrAccountNotFound
	}

	return nil
}

func (r *PostgresRepo) ActivateAccount(ctx context.Context, id uuid.UUID) error {
	const op = "storage.postgres.ActivateAccount"

	query := `UPDATE accounts SET is_active = TRUE, updated_at = NOW() WHERE id = $1;`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrAccountNotFound
	}

	return nil
}

// SaveVerificationToken upserts the token row for a user. A freshly issued
// token replaces any previous one, so at most one live token exists per user.
func (r *PostgresRepo) SaveVerificationToken(ctx context.Context, userID uuid.UUID, token string) error {
	const op = "storage.postgres.SaveVerificationToken"

	query := `
		INSERT INTO email_tokens (user_id, token)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET token = EXCLUDED.token, created_at = NOW();
	`

	if _, err := r.pool.Exec(ctx, query, userID, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ConsumeVerificationToken deletes the token row and returns it in one
// statement. Concurrent redemptions of the same token cannot both succeed:
// the second DELETE matches no row and gets ErrTokenNotFound.
func (r *PostgresRepo) ConsumeVerificationToken(ctx context.Context, token string) (models.VerificationToken, error) {
	const op = "storage.postgres.ConsumeVerificationToken"

	query := `
		DELETE FROM email_tokens
		WHERE token = $1
		RETURNING id, user_id, token, created_at;
	`

	var t models.VerificationToken
	err := r.pool.QueryRow(ctx, query, token).Scan(&t.ID, &t.UserID, &t.Token, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VerificationToken{}, storage.ErrTokenNotFound
		}

		return models.VerificationToken{}, fmt.Errorf("%s: %w", op, err)
	}

	return t, nil
}

// Ping runs a trivial read, used by the liveness probe.
func (r *PostgresRepo) Ping(ctx context.Context) error {
	const op = "storage.postgres.Ping"

	var one int
	if err := r.pool.QueryRow(ctx, `SELECT 1;`).Scan(&one); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var a models.Account

	err := row.Scan(
		&a.ID,
		&a.Email,
		&a.PassHash,
		&a.FirstName,
		&a.LastName,
		&a.IsActive,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return models.Account{}, err
	}

	return a, nil
}

func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
