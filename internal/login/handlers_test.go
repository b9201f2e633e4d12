package login_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/BodhiSearch/BodhiApp-sub000/internal/credstore"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/crypto"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/domain"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/idp"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/login"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/logging"
	"github.com/BodhiSearch/BodhiApp-sub000/internal/settings"
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

// fakeVerifier lets tests control whether a raw token verifies, without
// standing up a real JWT/JWKS fixture.
type fakeVerifier struct {
	claims map[string]domain.Claims
}

func (f *fakeVerifier) VerifyAccessToken(_ context.Context, token string) (domain.Claims, error) {
	if c, ok := f.claims[token]; ok {
		return c, nil
	}
	return domain.Claims{}, domain.New(domain.KindInvalidToken, "unknown test token")
}

func newTestRepo(t *testing.T) credstore.Repository {
	t.Helper()
	master := crypto.MasterKey("0123456789abcdef0123456789abcdef")
	store, err := credstore.Open("sqlite", "file:"+uuid.NewString()+"?mode=memory&cache=shared", master, logging.Noop(), uuid.NewString)
	require.NoError(t, err)
	require.NoError(t, store.SetAppRegInfo(context.Background(), "test_client_id", "test_client_secret"))
	return store
}

func decodeJSON(rec *httptest.ResponseRecorder, out any) error {
	return json.NewDecoder(rec.Body).Decode(out)
}

func testSettings() settings.Settings {
	return settings.Settings{
		Scheme: "http", Host: "localhost", Port: "1135",
		PublicScheme: "http", PublicHost: "frontend.localhost", PublicPort: "3000",
		AuthURL: "http://test-id.getbodhi.app", AuthRealm: "test-realm",
	}
}

func TestInitiateBuildsAuthorizationURL(t *testing.T) {
	repo := newTestRepo(t)
	session := newFakeSession()
	h := &login.Handlers{
		Repo:      repo,
		Verifier:  &fakeVerifier{},
		Lifecycle: &fakeLifecycle{state: domain.LifecycleReady},
		Sessions:  func(*http.Request) domain.Session { return session },
		Settings:  testSettings(),
		Log:       logging.Noop(),
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/initiate", nil)
	rec := httptest.NewRecorder()
	h.Initiate(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		Location string `json:"location"`
	}
	require.NoError(t, decodeJSON(rec, &body))
	assert.True(t, strings.HasPrefix(body.Location, "http://test-id.getbodhi.app/realms/test-realm/protocol/openid-connect/auth"))

	parsed, err := url.Parse(body.Location)
	require.NoError(t, err)
	q := parsed.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "test_client_id", q.Get("client_id"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "email openid profile roles", q.Get("scope"))
	assert.NotEmpty(t, q.Get("state"))
	assert.NotEmpty(t, q.Get("code_challenge"))

	state, ok, _ := session.Get(context.Background(), domain.SessionKeyOAuthState)
	require.True(t, ok)
	assert.Equal(t, q.Get("state"), state)
}

func TestInitiateFastPathsWhenSessionAlreadyAuthenticated(t *testing.T) {
	repo := newTestRepo(t)
	session := newFakeSession()
	session.store[domain.SessionKeyAccessToken] = "already-valid"

	h := &login.Handlers{
		Repo:      repo,
		Verifier:  &fakeVerifier{claims: map[string]domain.Claims{"already-valid": {Subject: "u1"}}},
		Lifecycle: &fakeLifecycle{state: domain.LifecycleReady},
		Sessions:  func(*http.Request) domain.Session { return session },
		Settings:  testSettings(),
		Log:       logging.Noop(),
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/initiate", nil)
	rec := httptest.NewRecorder()
	h.Initiate(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Location string `json:"location"`
	}
	require.NoError(t, decodeJSON(rec, &body))
	assert.Equal(t, "http://frontend.localhost:3000/ui/chat", body.Location)
}

func TestCallbackRejectsStateMismatch(t *testing.T) {
	repo := newTestRepo(t)
	session := newFakeSession()
	session.store[domain.SessionKeyOAuthState] = "expected-state"
	session.store[domain.SessionKeyPKCEVerifier] = "verifier"
	session.store[domain.SessionKeyCallbackURL] = "http://frontend.localhost:3000/ui/auth/callback"

	h := &login.Handlers{
		Repo:      repo,
		IDP:       idp.New(idp.Config{}),
		Verifier:  &fakeVerifier{},
		Lifecycle: &fakeLifecycle{state: domain.LifecycleReady},
		Sessions:  func(*http.Request) domain.Session { return session },
		Settings:  testSettings(),
		Log:       logging.Noop(),
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/callback?code=abc&state=wrong-state", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackExchangesCodeAndStoresSessionTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		assert.Equal(t, "authorization_code", r.FormValue("grant_type"))
		_, _ = w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1"}`))
	}))
	defer srv.Close()

	repo := newTestRepo(t)
	session := newFakeSession()
	session.store[domain.SessionKeyOAuthState] = "expected-state"
	session.store[domain.SessionKeyPKCEVerifier] = "verifier"
	session.store[domain.SessionKeyCallbackURL] = "http://frontend.localhost:3000/ui/auth/callback"

	h := &login.Handlers{
		Repo:      repo,
		IDP:       idp.New(idp.Config{TokenEndpoint: srv.URL}),
		Verifier:  &fakeVerifier{claims: map[string]domain.Claims{"at-1": {Email: "user@example.com"}}},
		Lifecycle: &fakeLifecycle{state: domain.LifecycleReady},
		Sessions:  func(*http.Request) domain.Session { return session },
		Settings:  testSettings(),
		Log:       logging.Noop(),
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/callback?code=abc&state=expected-state", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Location string `json:"location"`
	}
	require.NoError(t, decodeJSON(rec, &body))
	assert.Equal(t, "http://frontend.localhost:3000/ui/chat", body.Location)

	access, ok, _ := session.Get(context.Background(), domain.SessionKeyAccessToken)
	require.True(t, ok)
	assert.Equal(t, "at-1", access)
	_, okState, _ := session.Get(context.Background(), domain.SessionKeyOAuthState)
	assert.False(t, okState, "oauth_state must be removed after a successful callback")
}

func TestLogoutDeletesSessionAndReturns200(t *testing.T) {
	session := newFakeSession()
	session.store["access_token"] = "whatever"

	h := &login.Handlers{
		Sessions: func(*http.Request) domain.Session { return session },
		Settings: testSettings(),
		Log:      logging.Noop(),
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Location string `json:"location"`
	}
	require.NoError(t, decodeJSON(rec, &body))
	assert.Equal(t, "http://frontend.localhost:3000/ui/login", body.Location)
	assert.Empty(t, session.store)
}
