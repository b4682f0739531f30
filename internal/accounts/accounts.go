package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sl "account_service/internal/lib/logger"
	"account_service/internal/models"
	"account_service/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
	ErrAccountNotFound    = errors.New("account not found")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrTokenExpired       = errors.New("token expired")
)

type Accounts struct {
	log         *slog.Logger
	accSaver    AccountSaver
	accProvider AccountProvider
	tokenStore  TokenStore
	publisher   Publisher
	tokenTTL    time.Duration
	hashCost    int
}

type AccountSaver interface {
	SaveAccount(ctx context.Context, email string, passHash []byte, firstName, lastName string) (models.Account, error)
	UpdateAccount(ctx context.Context, id uuid.UUID, passHash []byte, firstName, lastName string) error
	ActivateAccount(ctx context.Context, id uuid.UUID) error
}

type AccountProvider interface {
	AccountByEmail(ctx context.Context, email string) (models.Account, error)
	Ping(ctx context.Context) error
}

type TokenStore interface {
	ConsumeVerificationToken(ctx context.Context, token string) (models.VerificationToken, error)
}

type Publisher interface {
	SendMessage(ctx context.Context, msg models.Message) error
}

func New(
	log *slog.Logger,
	accountSaver AccountSaver,
	accountProvider AccountProvider,
	tokenStore TokenStore,
	publisher Publisher,
	tokenTTL time.Duration,
	hashCost int,
) *Accounts {
	return &Accounts{
		log:         log,
		accSaver:    accountSaver,
		accProvider: accountProvider,
		tokenStore:  tokenStore,
		publisher:   publisher,
		tokenTTL:    tokenTTL,
		hashCost:    hashCost,
	}
}

// Register creates an inactive account and publishes the account-created
// event carrying a fresh token value. A failed publish is logged and
// swallowed: the account row is already committed and the caller must still
// get a 201.
func (a *Accounts) Register(
	ctx context.Context,
	email, password, firstName, lastName string,
) (models.Account, error) {
	const op = "accounts.Register"

	log := a.log.With(slog.String("op", op))

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), a.hashCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	acc, err := a.accSaver.SaveAccount(ctx, email, passHash, firstName, lastName)
	if err != nil {
		if errors.Is(err, storage.ErrAccountExists) {
			log.Warn("account already exists")
			return models.Account{}, fmt.Errorf("%s: %w", op, ErrAccountExists)
		}

		log.Error("failed to save account", sl.Err(err))
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	msg := models.Message{
		UserID:    acc.ID,
		Email:     acc.Email,
		FirstName: acc.FirstName,
		LastName:  acc.LastName,
		Token:     uuid.NewString(),
	}

	if err := a.publisher.SendMessage(ctx, msg); err != nil {
		log.Error("failed to publish account-created event", sl.Err(err))
	}

	log.Info("account registered", slog.String("id", acc.ID.String()))

	return acc, nil
}

// Authenticate resolves Basic credentials against the stored hash.
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (models.Account, error) {
	const op = "accounts.Authenticate"

	log := a.log.With(slog.String("op", op))

	acc, err := a.accProvider.AccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			log.Warn("account not found")
			return models.Account{}, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		}

		log.Error("failed to get account", sl.Err(err))
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(acc.PassHash, []byte(password)); err != nil {
		log.Info("invalid credentials")
		return models.Account{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	return acc, nil
}

// Update rehashes the password unconditionally and writes the name fields.
// Last writer wins, there is no partial-update mode.
func (a *Accounts) Update(
	ctx context.Context,
	id uuid.UUID,
	password, firstName, lastName string,
) error {
	const op = "accounts.Update"

	log := a.log.With(slog.String("op", op))

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), a.hashCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.accSaver.UpdateAccount(ctx, id, passHash, firstName, lastName); err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		}

		log.Error("failed to update account", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("account updated", slog.String("id", id.String()))

	return nil
}

// Verify redeems a verification token. The consume is a single
// delete-returning statement, so a token can be redeemed at most once;
// an expired token is consumed by the same statement and stays gone.
func (a *Accounts) Verify(ctx context.Context, token string) error {
	const op = "accounts.Verify"

	log := a.log.With(slog.String("op", op))

	t, err := a.tokenStore.ConsumeVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			log.Warn("verification token not found")
			return fmt.Errorf("%s: %w", op, ErrTokenInvalid)
		}

		log.Error("failed to consume verification token", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	if time.Since(t.CreatedAt) > a.tokenTTL {
		log.Warn("verification token expired", slog.String("user_id", t.UserID.String()))
		return fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	if err := a.accSaver.ActivateAccount(ctx, t.UserID); err != nil {
		log.Error("failed to activate account", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("account verified", slog.String("user_id", t.UserID.String()))

	return nil
}

// CheckStore backs the liveness probe.
func (a *Accounts) CheckStore(ctx context.Context) error {
	return a.accProvider.Ping(ctx)
}
