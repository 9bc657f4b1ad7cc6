package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weatherapi/m/domain"
	"weatherapi/m/internal/auth"
	"weatherapi/m/internal/cache"
	"weatherapi/m/internal/logging"
	"weatherapi/m/internal/metrics"
	"weatherapi/m/internal/repositories/queries"
	usersrepo "weatherapi/m/internal/repositories/users"
	"weatherapi/m/internal/testutil"
	"weatherapi/m/internal/users"
	"weatherapi/m/internal/weather"
)

const testSecret = "test-secret"

type testServer struct {
	t        *testing.T
	srv      *httptest.Server
	provider *testutil.CountingProvider
	users    *users.Service
	mr       *miniredis.Miniredis
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	log := logging.Discard()

	mr := miniredis.RunT(t)
	store, err := cache.Connect(context.Background(), cache.RedisOptions{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	reg := prometheus.NewRegistry()
	issuer := auth.NewIssuer([]byte(testSecret), time.Hour)
	provider := testutil.NewCountingProvider()
	userSvc := users.NewService(usersrepo.NewSQLRepository(db), issuer, log)
	weatherSvc := weather.NewService(store, provider, queries.NewSQLRepository(db), metrics.New(reg), log,
		weather.Options{CacheTTL: 600 * time.Second, CacheTimeout: time.Second})

	h := New(Options{
		Users:          userSvc,
		Weather:        weatherSvc,
		Issuer:         issuer,
		Logger:         log,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		AllowedOrigins: []string{"*"},
	})
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)

	return &testServer{t: t, srv: srv, provider: provider, users: userSvc, mr: mr}
}

func (ts *testServer) do(method, path, token string, body any) (*http.Response, []byte) {
	ts.t.Helper()
	var rdr *bytes.Reader
	if s, ok := body.(string); ok {
		rdr = bytes.NewReader([]byte(s))
	} else if body != nil {
		b, err := json.Marshal(body)
		require.NoError(ts.t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, rdr)
	require.NoError(ts.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(ts.t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(ts.t, err)
	return resp, buf.Bytes()
}

func (ts *testServer) registerAndLogin(email, username, password string) string {
	ts.t.Helper()
	resp, _ := ts.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": email, "username": username, "password": password,
	})
	require.Equal(ts.t, http.StatusCreated, resp.StatusCode)
	return ts.login(email, password)
}

func (ts *testServer) login(email, password string) string {
	ts.t.Helper()
	resp, body := ts.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(ts.t, http.StatusOK, resp.StatusCode, string(body))
	var out loginResponse
	require.NoError(ts.t, json.Unmarshal(body, &out))
	require.NotEmpty(ts.t, out.Token)
	return out.Token
}

func (ts *testServer) adminToken() string {
	ts.t.Helper()
	_, err := ts.users.EnsureAccount(context.Background(),
		users.Credentials{Email: "root@x.com", Username: "root", Password: "rootpw"}, domain.RoleAdmin)
	require.NoError(ts.t, err)
	return ts.login("root@x.com", "rootpw")
}

func errorMessage(t *testing.T, body []byte) string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out), string(body))
	return out["error"]
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, body := ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestRegisterLoginWeatherScenario(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin("a@x.com", "a", "p1")

	start := time.Now().UTC().Truncate(time.Second)
	resp, body := ts.do(http.MethodPost, "/weather", token, map[string]string{"city": "Paris"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var first domain.WeatherQuery
	require.NoError(t, json.Unmarshal(body, &first))
	assert.Equal(t, "Paris", first.City)
	assert.NotEmpty(t, first.Result)
	assert.False(t, first.CreatedAt.Before(start))

	resp, body = ts.do(http.MethodPost, "/weather", token, map[string]string{"city": "Paris"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second domain.WeatherQuery
	require.NoError(t, json.Unmarshal(body, &second))
	assert.JSONEq(t, string(first.Result), string(second.Result))
	assert.Equal(t, 1, ts.provider.Calls("Paris"))

	resp, body = ts.do(http.MethodGet, "/weather/my-queries", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mine []domain.WeatherQuery
	require.NoError(t, json.Unmarshal(body, &mine))
	assert.Len(t, mine, 2)
}

func TestWeather_DifferentCaseIsAMiss(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin("a@x.com", "a", "p1")

	for _, city := range []string{"Paris", "PARIS", "Paris"} {
		resp, _ := ts.do(http.MethodPost, "/weather", token, map[string]string{"city": city})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.Equal(t, 1, ts.provider.Calls("Paris"))
	assert.Equal(t, 1, ts.provider.Calls("PARIS"))
}

func TestWeather_MissingCity(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin("a@x.com", "a", "p1")

	for _, body := range []any{map[string]string{}, map[string]string{"city": ""}, "", "{not json"} {
		resp, _ := ts.do(http.MethodPost, "/weather", token, body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %v", body)
	}
	assert.Zero(t, ts.provider.Total())
}

func TestWeather_ProviderFailureIsGeneric500(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin("a@x.com", "a", "p1")
	ts.provider.Fail = errors.New("upstream said: secret-api-key rejected")

	resp, body := ts.do(http.MethodPost, "/weather", token, map[string]string{"city": "Paris"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "failed to fetch weather data", errorMessage(t, body))
	assert.NotContains(t, string(body), "secret-api-key")
	assert.False(t, ts.mr.Exists("weather:Paris"))

	resp, body = ts.do(http.MethodGet, "/weather/my-queries", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestWeather_CacheDownIsGeneric500(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin("a@x.com", "a", "p1")
	ts.mr.Close()

	resp, body := ts.do(http.MethodPost, "/weather", token, map[string]string{"city": "Paris"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "failed to fetch weather data", errorMessage(t, body))
	assert.Zero(t, ts.provider.Total())

	resp, body = ts.do(http.MethodGet, "/weather/my-queries", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestAuth_RegisterValidation(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(http.MethodPost, "/auth/register", "", map[string]string{"email": "a@x.com", "password": "p"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "a@x.com", "username": "a", "password": "p", "role": "ADMIN",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "unknown fields are rejected")
}

func TestAuth_DuplicateRegistration(t *testing.T) {
	ts := newTestServer(t)
	ts.registerAndLogin("a@x.com", "a", "p1")

	resp, body := ts.do(http.MethodPost, "/auth/register", "", map[string]string{
		"email": "a@x.com", "username": "someone-else", "password": "p2",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "email or username already exists", errorMessage(t, body))
}

func TestAuth_WrongPassword(t *testing.T) {
	ts := newTestServer(t)
	ts.registerAndLogin("a@x.com", "a", "p1")

	resp, _ := ts.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "a@x.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.do(http.MethodPost, "/auth/login", "", map[string]string{"email": "ghost@x.com", "password": "p1"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRoleGating(t *testing.T) {
	ts := newTestServer(t)
	userToken := ts.registerAndLogin("a@x.com", "a", "p1")
	adminToken := ts.adminToken()

	forged, err := auth.NewIssuer([]byte("another-secret"), time.Hour).Issue(1, domain.RoleAdmin)
	require.NoError(t, err)
	parts := strings.Split(userToken, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	routes := []struct {
		method, path string
		required     domain.Role
		body         any
	}{
		{http.MethodPost, "/weather", domain.RoleUser, map[string]string{"city": "Paris"}},
		{http.MethodGet, "/weather/my-queries", domain.RoleUser, nil},
		{http.MethodGet, "/weather/all", domain.RoleAdmin, nil},
		{http.MethodGet, "/admin/users", domain.RoleAdmin, nil},
		{http.MethodPatch, "/admin/users/role", domain.RoleAdmin, map[string]any{"id": 1, "role": "USER"}},
		{http.MethodPost, "/admin/users", domain.RoleAdmin, map[string]string{"email": "n@x.com", "username": "n", "password": "p"}},
		{http.MethodDelete, "/admin/users", domain.RoleAdmin, map[string]any{"id": 12345}},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			for _, tok := range []string{"", forged, tampered, "garbage"} {
				resp, _ := ts.do(rt.method, rt.path, tok, rt.body)
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "token %q", tok)
			}

			wrong := adminToken
			if rt.required == domain.RoleAdmin {
				wrong = userToken
			}
			resp, body := ts.do(rt.method, rt.path, wrong, rt.body)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			assert.Equal(t, "forbidden: insufficient role", errorMessage(t, body))
		})
	}
}

func TestExpiredToken(t *testing.T) {
	ts := newTestServer(t)
	ts.registerAndLogin("a@x.com", "a", "p1")

	expired, err := auth.NewIssuer([]byte(testSecret), -time.Minute).Issue(1, domain.RoleUser)
	require.NoError(t, err)

	resp, body := ts.do(http.MethodGet, "/weather/my-queries", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "token expired", errorMessage(t, body))
}

func TestAdmin_AllQueriesIncludeUser(t *testing.T) {
	ts := newTestServer(t)
	userToken := ts.registerAndLogin("a@x.com", "a", "p1")
	adminToken := ts.adminToken()

	resp, _ := ts.do(http.MethodPost, "/weather", userToken, map[string]string{"city": "Rome"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := ts.do(http.MethodGet, "/weather/all", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all []domain.WeatherQueryWithUser
	require.NoError(t, json.Unmarshal(body, &all))
	require.Len(t, all, 1)
	assert.Equal(t, "Rome", all[0].City)
	assert.Equal(t, "a", all[0].User.Username)
	assert.NotContains(t, string(body), "password")
}

func TestAdmin_UserManagement(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.adminToken()

	resp, body := ts.do(http.MethodPost, "/admin/users", adminToken, map[string]string{
		"email": "new@x.com", "username": "new", "password": "pw",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created userResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, domain.RoleUser, created.User.Role)
	assert.NotContains(t, string(body), "password")

	resp, _ = ts.do(http.MethodPost, "/admin/users", adminToken, map[string]string{
		"email": "new@x.com", "username": "other", "password": "pw",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(http.MethodPost, "/admin/users", adminToken, map[string]string{"email": "x@x.com"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = ts.do(http.MethodGet, "/admin/users", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []domain.UserSummary
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 2)
	assert.NotContains(t, string(body), "password")

	resp, body = ts.do(http.MethodPatch, "/admin/users/role", adminToken, map[string]any{"id": created.User.ID, "role": "ADMIN"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var updated userResponse
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, domain.RoleAdmin, updated.User.Role)

	resp, _ = ts.do(http.MethodPatch, "/admin/users/role", adminToken, map[string]any{"id": created.User.ID, "role": "GOD"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(http.MethodDelete, "/admin/users", adminToken, map[string]any{"id": created.User.ID})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ts.do(http.MethodDelete, "/admin/users", adminToken, map[string]any{"id": created.User.ID})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdmin_UpdateRoleUnknownUser(t *testing.T) {
	ts := newTestServer(t)
	adminToken := ts.adminToken()

	resp, body := ts.do(http.MethodPatch, "/admin/users/role", adminToken, map[string]any{"id": 424242, "role": "ADMIN"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "user not found", errorMessage(t, body))

	resp, _ = ts.do(http.MethodPatch, "/admin/users/role", adminToken, map[string]any{"role": "ADMIN"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.do(http.MethodDelete, "/admin/users", adminToken, map[string]any{})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token := ts.registerAndLogin("a@x.com", "a", "p1")
	resp, _ := ts.do(http.MethodPost, "/weather", token, map[string]string{"city": "Paris"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := ts.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `weather_cache_lookups_total{result="miss"} 1`)
}
