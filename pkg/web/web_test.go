package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeBot struct{ ready bool }

func (b *fakeBot) IsReady() bool            { return b.ready }
func (b *fakeBot) GuildCount() int          { return 3 }
func (b *fakeBot) Uptime() time.Duration    { return time.Minute }
func (b *fakeBot) BotUser() *discordgo.User { return &discordgo.User{ID: "bot", Username: "Sentinel"} }
func (b *fakeBot) Latency() time.Duration   { return 42 * time.Millisecond }

type fakeStore struct{ err error }

func (s *fakeStore) Ping(context.Context) error { return s.err }

func (s *fakeStore) Status(context.Context) (string, bool) {
	if s.err != nil {
		return "🔴 | Desconectado", false
	}
	return "🟢 | Conectado", true
}

func newTestServer(bot *fakeBot, store *fakeStore) *Server {
	s := NewServer(Options{})
	s.SetupAPIRoutes(bot, store, Info{Name: "Sentinel", Version: "test"})
	return s
}

func do(t *testing.T, s *Server, method, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		ready    bool
		storeErr error
		code     int
		database string
	}{
		{"healthy", true, nil, http.StatusOK, "ok"},
		{"gateway down", false, nil, http.StatusServiceUnavailable, "ok"},
		{"store down", true, errors.New("closed"), http.StatusServiceUnavailable, "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(&fakeBot{ready: tt.ready}, &fakeStore{err: tt.storeErr})
			rec := do(t, s, http.MethodGet, "/api/health")
			assert.Equal(t, tt.code, rec.Code)

			body := decode(t, rec)
			assert.Equal(t, tt.ready, body["gateway_ready"])
			assert.Equal(t, tt.database, body["database"])
			assert.Contains(t, body, "uptime_seconds")
		})
	}
}

func TestBotInfo(t *testing.T) {
	s := newTestServer(&fakeBot{ready: false}, &fakeStore{})
	assert.Equal(t, http.StatusServiceUnavailable, do(t, s, http.MethodGet, "/api/bot").Code)

	s = newTestServer(&fakeBot{ready: true}, &fakeStore{})
	rec := do(t, s, http.MethodGet, "/api/bot")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Sentinel", body["username"])
	assert.EqualValues(t, 3, body["guilds"])
	assert.EqualValues(t, 42, body["latencyMs"])
}

func TestStatusAndIndex(t *testing.T) {
	s := newTestServer(&fakeBot{ready: true}, &fakeStore{})

	body := decode(t, do(t, s, http.MethodGet, "/api/status"))
	assert.Equal(t, true, body["database"].(map[string]any)["isOnline"])

	body = decode(t, do(t, s, http.MethodGet, "/"))
	assert.Equal(t, "Sentinel", body["name"])
	assert.Equal(t, "test", body["version"])
}

func TestErrorHandlers(t *testing.T) {
	s := newTestServer(&fakeBot{}, &fakeStore{})

	rec := do(t, s, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.EqualValues(t, 404, decode(t, rec)["status"])

	rec = do(t, s, http.MethodPost, "/api/health")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAllowedHosts(t *testing.T) {
	s := NewServer(Options{AllowedHosts: regexp.MustCompile(`^(.+\.)?example\.com$`)})
	s.SetupAPIRoutes(&fakeBot{ready: true}, &fakeStore{}, Info{})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Host = "evil.test"
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Host = "bot.example.com"
	rec = httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	s := NewServer(Options{RequestsPerMinute: 2})
	s.SetupAPIRoutes(&fakeBot{ready: true}, &fakeStore{}, Info{})

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, s, http.MethodGet, "/").Code)
}

func newDashboard(t *testing.T, userID string) (*Server, *dashboard) {
	t.Helper()
	s := NewServer(Options{})
	d := s.setupDashboard(DashboardConfig{
		ClientID:      "client",
		ClientSecret:  "secret",
		RedirectURL:   "http://localhost:8000/dashboard/callback",
		OwnerID:       "owner",
		SessionSecret: "0123456789abcdef0123456789abcdef",
	}, &fakeBot{ready: true}, &fakeStore{}, Info{Name: "Sentinel", StartedAt: time.Now()})

	d.exchange = func(context.Context, string) (*oauth2.Token, error) {
		return &oauth2.Token{AccessToken: "token"}, nil
	}
	d.identify = func(context.Context, *oauth2.Token) (*discordgo.User, error) {
		return &discordgo.User{ID: userID, Username: "someone"}, nil
	}
	return s, d
}

func login(t *testing.T, s *Server) (string, []*http.Cookie) {
	t.Helper()
	rec := do(t, s, http.MethodGet, "/dashboard/login")
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "discord.com", loc.Host)
	assert.Equal(t, "identify", loc.Query().Get("scope"))

	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	return state, rec.Result().Cookies()
}

func TestDashboardRequiresLogin(t *testing.T) {
	s, _ := newDashboard(t, "owner")
	rec := do(t, s, http.MethodGet, "/dashboard")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard/login", rec.Header().Get("Location"))
}

func TestDashboardOwnerLogin(t *testing.T) {
	s, _ := newDashboard(t, "owner")
	state, cookies := login(t, s)

	rec := do(t, s, http.MethodGet, "/dashboard/callback?code=abc&state="+state, cookies...)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))

	rec = do(t, s, http.MethodGet, "/dashboard", rec.Result().Cookies()...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Signed in as <b>someone</b>")
	assert.Contains(t, rec.Body.String(), "Servers: 3")
}

func TestDashboardRejectsOthers(t *testing.T) {
	s, _ := newDashboard(t, "intruder")
	state, cookies := login(t, s)

	rec := do(t, s, http.MethodGet, "/dashboard/callback?code=abc&state="+state, cookies...)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDashboardRejectsBadState(t *testing.T) {
	s, d := newDashboard(t, "owner")
	var exchanged atomic.Bool
	d.exchange = func(context.Context, string) (*oauth2.Token, error) {
		exchanged.Store(true)
		return &oauth2.Token{}, nil
	}

	_, cookies := login(t, s)
	rec := do(t, s, http.MethodGet, "/dashboard/callback?code=abc&state=forged", cookies...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, exchanged.Load())
}

func TestKeepAlive(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		KeepAlive(ctx, srv.URL, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return hits.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
