package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"filevault/models"
	"filevault/repository"
	"filevault/session"
	"filevault/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// --- in-memory fakes satisfying the handler interfaces ---

type fakeFileStore struct {
	records   []*models.File
	createErr error
}

func (s *fakeFileStore) Create(_ context.Context, file *models.File) error {
	if s.createErr != nil {
		return s.createErr
	}
	file.ID = uuid.New()
	file.CreatedAt = time.Now()
	s.records = append(s.records, file)
	return nil
}

func (s *fakeFileStore) GetByID(_ context.Context, id uuid.UUID) (*models.File, error) {
	for _, f := range s.records {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeFileStore) GetByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.File, error) {
	f, err := s.GetByID(ctx, id)
	if err != nil || f.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return f, nil
}

func (s *fakeFileStore) ListByParent(_ context.Context, userID uuid.UUID, parentID *uuid.UUID, page int) ([]*models.File, error) {
	matched := []*models.File{}
	for _, f := range s.records {
		if f.UserID != userID {
			continue
		}
		if (f.ParentID == nil) != (parentID == nil) {
			continue
		}
		if parentID != nil && *f.ParentID != *parentID {
			continue
		}
		matched = append(matched, f)
	}

	start := page * repository.PageSize
	if start >= len(matched) {
		return []*models.File{}, nil
	}
	end := start + repository.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

func (s *fakeFileStore) SetPublic(ctx context.Context, id, userID uuid.UUID, isPublic bool) (*models.File, error) {
	f, err := s.GetByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	f.IsPublic = isPublic
	return f, nil
}

func (s *fakeFileStore) Count(context.Context) (int64, error) {
	return int64(len(s.records)), nil
}

type fakeUserStore struct {
	users []*models.User
}

func (s *fakeUserStore) Create(_ context.Context, user *models.User) error {
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	s.users = append(s.users, user)
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *fakeUserStore) Count(context.Context) (int64, error) {
	return int64(len(s.users)), nil
}

type fakeSessions struct {
	tokens map[string]uuid.UUID
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: make(map[string]uuid.UUID)}
}

func (s *fakeSessions) Set(_ context.Context, token string, userID uuid.UUID, _ time.Duration) error {
	s.tokens[token] = userID
	return nil
}

func (s *fakeSessions) Get(_ context.Context, token string) (uuid.UUID, error) {
	userID, ok := s.tokens[token]
	if !ok {
		return uuid.Nil, session.ErrNoSession
	}
	return userID, nil
}

func (s *fakeSessions) Delete(_ context.Context, token string) error {
	delete(s.tokens, token)
	return nil
}

func (s *fakeSessions) Alive() bool { return true }

type publishedJob struct {
	topic   string
	payload any
}

type fakeQueue struct {
	published []publishedJob
}

func (q *fakeQueue) Publish(_ context.Context, topic string, payload any) error {
	q.published = append(q.published, publishedJob{topic: topic, payload: payload})
	return nil
}

// --- test environment mirroring the server wiring ---

type testEnv struct {
	files    *fakeFileStore
	users    *fakeUserStore
	sessions *fakeSessions
	store    storage.Storage
	storeDir string
	jobs     *fakeQueue
	router   *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	storeDir := t.TempDir()
	store, err := storage.NewLocalStorage(storeDir)
	require.NoError(t, err)

	env := &testEnv{
		files:    &fakeFileStore{},
		users:    &fakeUserStore{},
		sessions: newFakeSessions(),
		store:    store,
		storeDir: storeDir,
		jobs:     &fakeQueue{},
	}

	authHandler := NewAuthHandler(env.users, env.sessions, env.jobs, time.Hour)
	fileHandler := NewFileHandler(env.files, env.sessions, env.store, env.jobs)

	r := gin.New()
	r.POST("/users", authHandler.Register)
	r.GET("/connect", authHandler.Connect)
	r.GET("/disconnect", authHandler.Disconnect)

	auth := r.Group("/", RequireAuth(env.sessions))
	{
		auth.GET("/users/me", authHandler.Me)
		auth.POST("/files", fileHandler.Upload)
		auth.GET("/files", fileHandler.List)
		auth.GET("/files/:id", fileHandler.Get)
		auth.PUT("/files/:id/publish", fileHandler.Publish)
		auth.PUT("/files/:id/unpublish", fileHandler.Unpublish)
	}
	r.GET("/files/:id/data", fileHandler.Data)

	env.router = r
	return env
}

// login registers a session for a fresh user id and returns (userID, token).
func (e *testEnv) login() (uuid.UUID, string) {
	userID := uuid.New()
	token := uuid.New().String()
	e.sessions.tokens[token] = userID
	return userID, token
}

// do performs a request; a non-empty token goes out in the X-Token header.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}
