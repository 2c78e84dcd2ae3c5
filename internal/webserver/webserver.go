package webserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/anchorshop/backoffice/config"
	"github.com/anchorshop/backoffice/internal/domain"
	"github.com/anchorshop/backoffice/pkg/common"
)

// Context keys for request-scoped values set by the middleware chain.
const (
	ContextDBKey    = "backoffice_db"
	ContextAdminKey = "backoffice_admin"
	ContextTokenKey = "backoffice_token"
)

// AppContext is the slice of the application the web server depends on.
type AppContext interface {
	DB() *gorm.DB
	Config() *config.AppConfig
}

type WebServer struct {
	appCtx AppContext
	root   *echo.Echo
	pub    *echo.Group
	api    *echo.Group
}

var server *WebServer

// Init builds the echo stack and installs it as the package-level server
// used by the route registration helpers.
func Init(appCtx AppContext) *WebServer {
	s := &WebServer{appCtx: appCtx}
	s.initRouter()
	server = s
	return s
}

// Instance returns the current web server.
func Instance() *WebServer {
	return server
}

func (s *WebServer) initRouter() {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = JsoniterSerializer{}
	e.Validator = NewPayloadValidator()
	e.HTTPErrorHandler = envelopeErrorHandler
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(requestLogger())
	e.Use(s.injectDB)

	s.root = e
	s.pub = e.Group("/api")
	s.api = e.Group("/api", s.bearerAuth)
}

// envelopeErrorHandler keeps framework-level errors (bad routes, malformed
// bodies) inside the uniform response envelope.
func envelopeErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(status)
		}
	}
	code := "SERVER_ERROR"
	switch status {
	case http.StatusNotFound:
		code = "NOT_FOUND"
	case http.StatusBadRequest:
		code = "INVALID_REQUEST"
	case http.StatusMethodNotAllowed:
		code = "METHOD_NOT_ALLOWED"
	}
	if err2 := Fail(c, status, code, message, nil); err2 != nil {
		zap.L().Error("failed to write error response", zap.Error(err2))
	}
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogMethod:  true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
				zap.L().Warn("request", fields...)
				return nil
			}
			zap.L().Info("request", fields...)
			return nil
		},
	})
}

func (s *WebServer) injectDB(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Set(ContextDBKey, s.appCtx.DB().WithContext(c.Request().Context()))
		return next(c)
	}
}

// bearerAuth authenticates requests against issued admin tokens. The raw
// credential is hashed and looked up; expired or revoked tokens get 401.
func (s *WebServer) bearerAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		auth := c.Request().Header.Get(echo.HeaderAuthorization)
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) {
			return Fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthenticated.", nil)
		}
		raw := strings.TrimSpace(auth[len(prefix):])
		if raw == "" {
			return Fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthenticated.", nil)
		}

		db := c.Get(ContextDBKey).(*gorm.DB)

		var token domain.AdminToken
		err := db.Where("token_hash = ? AND expire_at > ?", common.HashToken(raw), time.Now()).
			First(&token).Error
		if err != nil {
			return Fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthenticated.", nil)
		}

		var admin domain.SysAdmin
		if err := db.Where("id = ?", token.AdminID).First(&admin).Error; err != nil {
			return Fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthenticated.", nil)
		}

		c.Set(ContextAdminKey, &admin)
		c.Set(ContextTokenKey, raw)
		return next(c)
	}
}

// PubPOST registers an unauthenticated API route (login only).
func PubPOST(path string, h echo.HandlerFunc) {
	server.pub.POST(path, h)
}

func ApiGET(path string, h echo.HandlerFunc) {
	server.api.GET(path, h)
}

func ApiPOST(path string, h echo.HandlerFunc) {
	server.api.POST(path, h)
}

func ApiPUT(path string, h echo.HandlerFunc) {
	server.api.PUT(path, h)
}

func ApiDELETE(path string, h echo.HandlerFunc) {
	server.api.DELETE(path, h)
}

// Start runs the server until Shutdown is called.
func (s *WebServer) Start() error {
	addr := s.appCtx.Config().ListenAddr()
	zap.S().Infof("starting web server on %s", addr)
	err := s.root.Start(addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (s *WebServer) Shutdown(ctx context.Context) error {
	return s.root.Shutdown(ctx)
}

// ServeHTTP allows the server to be driven directly in tests.
func (s *WebServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.root.ServeHTTP(w, r)
}
