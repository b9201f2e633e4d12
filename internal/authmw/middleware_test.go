package authmw_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/authmw"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/credstore"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/crypto"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/exchangecache"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/logging"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/tokensvc"
)

type fakeLifecycle struct{ state domain.LifecycleState }

func (f *fakeLifecycle) Current() domain.LifecycleState { return f.state }
func (f *fakeLifecycle) CompleteRegistration() error     { f.state = domain.LifecycleResourceAdmin; return nil }
func (f *fakeLifecycle) ConfirmResourceAdmin() error     { f.state = domain.LifecycleReady; return nil }

type fakeSession struct{ store map[string]string }

func newFakeSession() *fakeSession { return &fakeSession{store: map[string]string{}} }

func (f *fakeSession) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := f.store[key]
	return v, ok, nil
}
func (f *fakeSession) Insert(_ context.Context, key, value string) error {
	f.store[key] = value
	return nil
}
func (f *fakeSession) Remove(_ context.Context, key string) error {
	delete(f.store, key)
	return nil
}
func (f *fakeSession) Delete(context.Context) error { f.store = map[string]string{}; return nil }

func newTestService(t *testing.T) (*tokensvc.Service, credstore.Repository) {
	t.Helper()
	master := crypto.MasterKey("0123456789abcdef0123456789abcdef")
	repo, err := credstore.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared", master, logging.Noop(), uuid.NewString)
	require.NoError(t, err)
	svc := tokensvc.New(tokensvc.Config{Repo: repo, Cache: mustCache(t), Log: logging.Noop(), ClientID: "test-client"})
	return svc, repo
}

func mustCache(t *testing.T) *exchangecache.Cache {
	t.Helper()
	c, err := exchangecache.New()
	require.NoError(t, err)
	return c
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestStrictFailsDuringSetup(t *testing.T) {
	svc, _ := newTestService(t)
	mw := &authmw.Middleware{
		Token:     svc,
		Lifecycle: &fakeLifecycle{state: domain.LifecycleSetup},
		Sessions:  func(*http.Request) domain.Session { return newFakeSession() },
		Log:       logging.Noop(),
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	mw.Strict(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestOptionalScrubsSpoofedHeaders(t *testing.T) {
	svc, _ := newTestService(t)
	mw := &authmw.Middleware{
		Token:     svc,
		Lifecycle: &fakeLifecycle{state: domain.LifecycleReady},
		Sessions:  func(*http.Request) domain.Session { return newFakeSession() },
		Log:       logging.Noop(),
	}

	var seenRole string
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seenRole = r.Header.Get(authmw.HeaderRole)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(authmw.HeaderRole, "resource_admin")
	req.Header.Set("Host", "example.com")
	req.Host = "example.com"
	rec := httptest.NewRecorder()
	mw.Optional(next).ServeHTTP(rec, req)

	assert.Empty(t, seenRole, "a caller-supplied X-BodhiApp-Role header must never survive scrubbing")
}

func TestStrictOpaqueBearerInjectsScopeAndToken(t *testing.T) {
	svc, repo := newTestService(t)
	raw := "bodhiapp_" + "0123456789abcdefghijklmnopqrstuvwxyzABCD"
	hash := crypto.SHA256Hex([]byte(raw))
	_, err := repo.CreateApiToken(context.Background(), domain.ApiToken{
		ID:          uuid.NewString(),
		UserID:      "user-7",
		Name:        "t",
		TokenPrefix: raw[:16],
		TokenHash:   hash,
		Scopes:      "scope_token_power_user",
		Status:      domain.TokenStatusActive,
	})
	require.NoError(t, err)

	mw := &authmw.Middleware{
		Token:     svc,
		Lifecycle: &fakeLifecycle{state: domain.LifecycleReady},
		Sessions:  func(*http.Request) domain.Session { return newFakeSession() },
		Log:       logging.Noop(),
	}

	var gotScope, gotToken string
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		gotScope = r.Header.Get(authmw.HeaderScope)
		gotToken = r.Header.Get(authmw.HeaderToken)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()
	mw.Strict(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "scope_token_power_user", gotScope)
	assert.Equal(t, raw, gotToken)
}

func TestStrictRejectsCrossOriginWithoutBearer(t *testing.T) {
	svc, _ := newTestService(t)
	mw := &authmw.Middleware{
		Token:     svc,
		Lifecycle: &fakeLifecycle{state: domain.LifecycleReady},
		Sessions:  func(*http.Request) domain.Session { return newFakeSession() },
		Log:       logging.Noop(),
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Host = "localhost:8080"
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	rec := httptest.NewRecorder()
	mw.Strict(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
