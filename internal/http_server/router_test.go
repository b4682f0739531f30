package http_server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"account_service/internal/accounts"
	"account_service/internal/models"
	"account_service/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// memStore is an in-memory stand-in for the postgres repo, honoring the same
// uniqueness and consume-once semantics.
type memStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]models.Account
	byEmail  map[string]uuid.UUID
	tokens   map[string]models.VerificationToken
	nextID   int64
	pingErr  error
}

func newMemStore() *memStore {
	return &memStore{
		accounts: map[uuid.UUID]models.Account{},
		byEmail:  map[string]uuid.UUID{},
		tokens:   map[string]models.VerificationToken{},
	}
}

func (s *memStore) SaveAccount(ctx context.Context, email string, passHash []byte, firstName, lastName string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return models.Account{}, storage.ErrAccountExists
	}

	now := time.Now()
	acc := models.Account{
		ID:        uuid.New(),
		Email:     email,
		PassHash:  passHash,
		FirstName: firstName,
		LastName:  lastName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.accounts[acc.ID] = acc
	s.byEmail[email] = acc.ID

	return acc, nil
}

func (s *memStore) AccountByEmail(ctx context.Context, email string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return models.Account{}, storage.ErrAccountNotFound
	}

	return s.accounts[id], nil
}

func (s *memStore) UpdateAccount(ctx context.Context, id uuid.UUID, passHash []byte, firstName, lastName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return storage.ErrAccountNotFound
	}

	acc.PassHash = passHash
	acc.FirstName = firstName
	acc.LastName = lastName
	acc.UpdatedAt = time.Now()
	s.accounts[id] = acc

	return nil
}

func (s *memStore) ActivateAccount(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[id]
	if !ok {
		return storage.ErrAccountNotFound
	}

	acc.IsActive = true
	acc.UpdatedAt = time.Now()
	s.accounts[id] = acc

	return nil
}

func (s *memStore) ConsumeVerificationToken(ctx context.Context, token string) (models.VerificationToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tokens[token]
	if !ok {
		return models.VerificationToken{}, storage.ErrTokenNotFound
	}

	delete(s.tokens, token)

	return t, nil
}

func (s *memStore) Ping(ctx context.Context) error {
	return s.pingErr
}

func (s *memStore) addToken(userID uuid.UUID, token string, createdAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.tokens[token] = models.VerificationToken{
		ID:        s.nextID,
		UserID:    userID,
		Token:     token,
		CreatedAt: createdAt,
	}
}

func (s *memStore) account(t *testing.T, email string) models.Account {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	require.True(t, ok, "account %s not found", email)

	return s.accounts[id]
}

// loopbackPublisher plays the mail worker's role: every published event
// lands as a token row in the store.
type loopbackPublisher struct {
	store *memStore
	mu    sync.Mutex
	msgs  []models.Message
}

func (p *loopbackPublisher) SendMessage(ctx context.Context, msg models.Message) error {
	p.store.addToken(msg.UserID, msg.Token, time.Now())

	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)

	return nil
}

func (p *loopbackPublisher) lastToken(t *testing.T) string {
	t.Helper()

	p.mu.Lock()
	defer p.mu.Unlock()
	require.NotEmpty(t, p.msgs)

	return p.msgs[len(p.msgs)-1].Token
}

func newTestRouter(store *memStore) (http.Handler, *loopbackPublisher) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	pub := &loopbackPublisher{store: store}

	service := accounts.New(log, store, store, store, pub, 120*time.Second, bcrypt.MinCost)

	return New(log, service), pub
}

func doJSON(router http.Handler, method, path, body string, basic ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if len(basic) == 2 {
		req.SetBasicAuth(basic[0], basic[1])
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	return w
}

func TestEndToEnd_CreateAuthUpdate(t *testing.T) {
	store := newMemStore()
	router, _ := newTestRouter(store)

	w := doJSON(router, http.MethodPost, "/v1/user",
		`{"email":"a@x.com","password":"p1","firstName":"A","lastName":"B"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "password")

	w = doJSON(router, http.MethodGet, "/v1/user/self", "", "a@x.com", "p1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"first_name":"A"`)
	assert.Contains(t, w.Body.String(), `"last_name":"B"`)
	assert.NotContains(t, w.Body.String(), "password")

	w = doJSON(router, http.MethodPut, "/v1/user/self",
		`{"password":"p2","firstName":"A2","lastName":"B2"}`, "a@x.com", "p1")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(router, http.MethodGet, "/v1/user/self", "", "a@x.com", "p1")
	require.Equal(t, http.StatusUnauthorized, w.Code, "old password must stop working")

	w = doJSON(router, http.MethodGet, "/v1/user/self", "", "a@x.com", "p2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"first_name":"A2"`)
	assert.Contains(t, w.Body.String(), `"last_name":"B2"`)
}

func TestCreate_DuplicateEmailKeepsOneAccount(t *testing.T) {
	store := newMemStore()
	router, _ := newTestRouter(store)

	body := `{"email":"a@x.com","password":"p1","firstName":"A","lastName":"B"}`

	w := doJSON(router, http.MethodPost, "/v1/user", body)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/v1/user", body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	assert.Len(t, store.accounts, 1)
}

func TestCreate_MissingFieldCreatesNothing(t *testing.T) {
	store := newMemStore()
	router, _ := newTestRouter(store)

	w := doJSON(router, http.MethodPost, "/v1/user",
		`{"email":"a@x.com","password":"p1","firstName":"A"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "LastName")
	assert.Empty(t, store.accounts)
}

func TestGetSelf_UnknownEmail(t *testing.T) {
	store := newMemStore()
	router, _ := newTestRouter(store)

	w := doJSON(router, http.MethodGet, "/v1/user/self", "", "nobody@x.com", "p1")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestVerify_TokenLifecycle(t *testing.T) {
	store := newMemStore()
	router, pub := newTestRouter(store)

	w := doJSON(router, http.MethodPost, "/v1/user",
		`{"email":"a@x.com","password":"p1","firstName":"A","lastName":"B"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	require.False(t, store.account(t, "a@x.com").IsActive)

	token := pub.lastToken(t)

	w = doJSON(router, http.MethodGet, "/verify/"+token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "User verified successfully")
	assert.True(t, store.account(t, "a@x.com").IsActive)

	// single use: the second redemption finds no row
	w = doJSON(router, http.MethodGet, "/verify/"+token, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token Invalid")
}

func TestVerify_ExpiredToken(t *testing.T) {
	store := newMemStore()
	router, _ := newTestRouter(store)

	w := doJSON(router, http.MethodPost, "/v1/user",
		`{"email":"a@x.com","password":"p1","firstName":"A","lastName":"B"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	acc := store.account(t, "a@x.com")
	store.addToken(acc.ID, "stale-token", time.Now().Add(-3*time.Minute))

	w = doJSON(router, http.MethodGet, "/verify/stale-token", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token expired")
	assert.False(t, store.account(t, "a@x.com").IsActive)

	// the expired row was consumed, a retry is indistinguishable from unknown
	w = doJSON(router, http.MethodGet, "/verify/stale-token", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token Invalid")
}

func TestVerify_UnknownToken(t *testing.T) {
	store := newMemStore()
	router, _ := newTestRouter(store)

	w := doJSON(router, http.MethodGet, "/verify/no-such-token", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token Invalid")
}

func TestHealthz(t *testing.T) {
	store := newMemStore()
	router, _ := newTestRouter(store)

	w := doJSON(router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-cache, no-store, must-revalidate", w.Header().Get("Cache-Control"))

	for _, method := range []string{
		http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodHead, http.MethodOptions,
	} {
		w := doJSON(router, method, "/healthz", "")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code, "method %s", method)
	}
}

func TestHealthz_StoreDown(t *testing.T) {
	store := newMemStore()
	store.pingErr = context.DeadlineExceeded
	router, _ := newTestRouter(store)

	w := doJSON(router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	// method checks do not depend on store state
	w = doJSON(router, http.MethodDelete, "/healthz", "")
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
