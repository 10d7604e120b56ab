package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/PancyStudios/SentinelGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	gsessions "github.com/gorilla/sessions"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	sessionName     = "sentinel_session"
	sessionUserID   = "user_id"
	sessionUsername = "username"
	sessionState    = "oauth_state"

	discordAPI = "https://discord.com/api/v10"
)

// discordEndpoint is Discord's OAuth2 authorization server
var discordEndpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

// DashboardConfig configures the owner dashboard
type DashboardConfig struct {
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	OwnerID       string
	SessionSecret string
}

// cookieStore adapts a gorilla cookie store to gin-contrib/sessions
type cookieStore struct {
	*gsessions.CookieStore
}

func newCookieStore(keyPairs ...[]byte) *cookieStore {
	return &cookieStore{gsessions.NewCookieStore(keyPairs...)}
}

func (c *cookieStore) Options(options sessions.Options) {
	c.CookieStore.Options = options.ToGorillaOptions()
}

type dashboard struct {
	oauth   *oauth2.Config
	ownerID string
	bot     BotStatus
	store   StoreStatus
	info    Info
	limiter *rate.Limiter

	exchange func(ctx context.Context, code string) (*oauth2.Token, error)
	identify func(ctx context.Context, token *oauth2.Token) (*discordgo.User, error)
}

// SetupDashboard mounts /dashboard. Only OWNER_ID can sign in.
func (s *Server) SetupDashboard(cfg DashboardConfig, bot BotStatus, store StoreStatus, info Info) {
	s.setupDashboard(cfg, bot, store, info)
}

func (s *Server) setupDashboard(cfg DashboardConfig, bot BotStatus, store StoreStatus, info Info) *dashboard {
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		logger.Warn("SESSION_SECRET no configurado, las sesiones no sobrevivirán a un reinicio", "Dashboard")
		secret = securecookie.GenerateRandomKey(64)
	}

	cookies := newCookieStore(secret)
	cookies.Options(sessions.Options{
		Path:     "/dashboard",
		MaxAge:   int((24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   strings.HasPrefix(cfg.RedirectURL, "https://"),
		SameSite: http.SameSiteLaxMode,
	})

	d := &dashboard{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"identify"},
			Endpoint:     discordEndpoint,
		},
		ownerID: cfg.OwnerID,
		bot:     bot,
		store:   store,
		info:    info,
		limiter: rate.NewLimiter(rate.Every(time.Second), 5),
	}
	d.exchange = func(ctx context.Context, code string) (*oauth2.Token, error) {
		return d.oauth.Exchange(ctx, code)
	}
	d.identify = d.fetchUser

	s.engine.SetHTMLTemplate(template.Must(template.New("dashboard").Parse(dashboardHTML)))

	group := s.Group("/dashboard", sessions.Sessions(sessionName, cookies))
	{
		group.GET("", d.requireOwner, d.page)
		group.GET("/login", d.rateLimit, d.login)
		group.GET("/callback", d.rateLimit, d.callback)
		group.GET("/logout", d.logout)
	}
	return d
}

func (d *dashboard) rateLimit(c *gin.Context) {
	if !d.limiter.Allow() {
		logger.Warn("Inicio de sesión limitado: "+c.ClientIP(), "Dashboard")
		c.AbortWithStatus(http.StatusTooManyRequests)
		return
	}
	c.Next()
}

func (d *dashboard) login(c *gin.Context) {
	state := uuid.NewString()
	session := sessions.Default(c)
	session.Set(sessionState, state)
	if err := session.Save(); err != nil {
		logger.Error("Error guardando la sesión: "+err.Error(), "Dashboard")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	c.Redirect(http.StatusFound, d.oauth.AuthCodeURL(state))
}

func (d *dashboard) callback(c *gin.Context) {
	session := sessions.Default(c)
	expected, _ := session.Get(sessionState).(string)
	session.Delete(sessionState)

	if expected == "" || c.Query("state") != expected {
		_ = session.Save()
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}
	code := c.Query("code")
	if code == "" {
		_ = session.Save()
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	token, err := d.exchange(ctx, code)
	if err != nil {
		logger.Warn("Intercambio OAuth2 fallido: "+err.Error(), "Dashboard")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	user, err := d.identify(ctx, token)
	if err != nil {
		logger.Warn("No se pudo obtener el usuario: "+err.Error(), "Dashboard")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	if d.ownerID == "" || user.ID != d.ownerID {
		logger.Warn(fmt.Sprintf("Acceso denegado al dashboard para %s (%s)", user.Username, user.ID), "Dashboard")
		_ = session.Save()
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	session.Set(sessionUserID, user.ID)
	session.Set(sessionUsername, user.Username)
	if err := session.Save(); err != nil {
		logger.Error("Error guardando la sesión: "+err.Error(), "Dashboard")
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	logger.Info("Sesión iniciada en el dashboard: "+user.Username, "Dashboard")
	c.Redirect(http.StatusFound, "/dashboard")
}

func (d *dashboard) fetchUser(ctx context.Context, token *oauth2.Token) (*discordgo.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discordAPI+"/users/@me", nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("discord returned %s", resp.Status)
	}
	var user discordgo.User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, errors.New("discord returned no user id")
	}
	return &user, nil
}

func (d *dashboard) requireOwner(c *gin.Context) {
	userID, _ := sessions.Default(c).Get(sessionUserID).(string)
	if userID == "" || userID != d.ownerID {
		c.Redirect(http.StatusFound, "/dashboard/login")
		c.Abort()
		return
	}
	c.Next()
}

type dashboardView struct {
	Name       string
	Version    string
	Username   string
	Uptime     string
	Guilds     int
	Ready      bool
	LatencyMs  int64
	Database   string
	DatabaseOK bool
}

func (d *dashboard) page(c *gin.Context) {
	username, _ := sessions.Default(c).Get(sessionUsername).(string)
	view := dashboardView{
		Name:     d.info.Name,
		Version:  d.info.Version,
		Username: username,
		Uptime:   time.Since(d.info.StartedAt).Truncate(time.Second).String(),
		Database: "🔴 | Desconectado",
	}
	if d.bot != nil {
		view.Guilds = d.bot.GuildCount()
		view.Ready = d.bot.IsReady()
		view.LatencyMs = d.bot.Latency().Milliseconds()
	}
	if d.store != nil {
		view.Database, view.DatabaseOK = d.store.Status(c.Request.Context())
	}
	c.HTML(http.StatusOK, "dashboard", view)
}

func (d *dashboard) logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/dashboard", MaxAge: -1})
	if err := session.Save(); err != nil {
		logger.Error("Error cerrando la sesión: "+err.Error(), "Dashboard")
	}
	c.Redirect(http.StatusFound, "/")
}

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Name}} dashboard</title>
<style>
body { font-family: sans-serif; background: #2b2d31; color: #dbdee1; margin: 2rem; }
.card { background: #313338; border-radius: 8px; padding: 1rem 1.5rem; margin-bottom: 1rem; }
.ok { color: #57f287; } .bad { color: #ed4245; }
a { color: #00a8fc; }
</style>
</head>
<body>
<h1>🛡️ {{.Name}} <small>{{.Version}}</small></h1>
<p>Signed in as <b>{{.Username}}</b> · <a href="/dashboard/logout">Log out</a></p>
<div class="card">
<p>Gateway: {{if .Ready}}<span class="ok">ready</span>{{else}}<span class="bad">not ready</span>{{end}} ({{.LatencyMs}} ms)</p>
<p>Servers: {{.Guilds}}</p>
<p>Uptime: {{.Uptime}}</p>
</div>
<div class="card">
<p>Database: <span class="{{if .DatabaseOK}}ok{{else}}bad{{end}}">{{.Database}}</span></p>
</div>
</body>
</html>`
