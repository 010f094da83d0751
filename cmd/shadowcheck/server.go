package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shadowcheck/shadowcheck/agent"
	"github.com/shadowcheck/shadowcheck/check"

	"github.com/carlmjohnson/versioninfo"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

type ServerConfig struct {
	Logger *slog.Logger
	// admin config endpoints are only mounted when set
	AdminToken string
}

type Server struct {
	echo   *echo.Echo
	svc    *Service
	logger *slog.Logger
	token  string
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type AgentInfo struct {
	agent.Identity
	EffectiveWeight int  `json:"effectiveWeight"`
	Enabled         bool `json:"enabled"`
}

func NewServer(svc *Service, config ServerConfig) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e := echo.New()
	srv := &Server{
		echo:   e,
		svc:    svc,
		logger: logger,
		token:  config.AdminToken,
	}

	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("shadowcheck"))
	e.Use(echoprometheus.NewMiddleware("shadowcheck"))
	e.Use(middleware.BodyLimit("1M"))
	e.HTTPErrorHandler = srv.errorHandler

	e.GET("/_health", srv.HandleHealthCheck)
	e.POST("/v1/check", srv.HandleCheck)
	e.GET("/v1/agents", srv.HandleAgents)
	e.GET("/v1/signals/stats", srv.HandleSignalStats)

	if srv.token != "" {
		admin := e.Group("/v1/config", srv.checkAdminAuth)
		admin.GET("", srv.HandleGetConfig)
		admin.PUT("", srv.HandlePutConfig)
	} else {
		logger.Warn("no admin token configured, config API disabled")
	}
	return srv
}

func (srv *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	srv.echo.ServeHTTP(w, r)
}

// Serves until the context is done or the process receives SIGINT/SIGTERM, then shuts down gracefully.
func (srv *Server) Run(ctx context.Context, bind string) error {
	httpd := &http.Server{
		Handler:        srv,
		Addr:           bind,
		WriteTimeout:   time.Minute,
		ReadTimeout:    time.Minute,
		MaxHeaderBytes: 1 * (1024 * 1024),
	}

	srv.logger.Info("starting server", "bind", bind)
	errCh := make(chan error, 1)
	go func() {
		if err := httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		slog.Error("HTTP server shutting down unexpectedly", "err", err)
		return err
	case sig := <-quit:
		srv.logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpd.Shutdown(shutdownCtx)
}

func RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

func (srv *Server) errorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	msg := "internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		} else {
			msg = http.StatusText(code)
		}
	}
	if code >= 500 {
		srv.logger.Error("HTTP request error", "err", err, "path", c.Path())
	}
	if !c.Response().Committed {
		c.JSON(code, ErrorResponse{Error: http.StatusText(code), Message: msg})
	}
}

// requires header `Authorization: Bearer {admin token}`
func (srv *Server) checkAdminAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authheader := c.Request().Header.Get("Authorization")
		pref := "Bearer "
		if !strings.HasPrefix(authheader, pref) {
			return echo.ErrUnauthorized
		}
		token := authheader[len(pref):]
		if subtle.ConstantTimeCompare([]byte(token), []byte(srv.token)) != 1 {
			return echo.ErrForbidden
		}
		return next(c)
	}
}

func (srv *Server) HandleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": versioninfo.Short()})
}

func (srv *Server) HandleCheck(c echo.Context) error {
	var in check.Input
	if err := c.Bind(&in); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "BadRequest", Message: "request body must be a JSON check request"})
	}
	syn, err := srv.svc.Engine.Check(c.Request().Context(), in)
	if err != nil {
		var verr *check.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "ValidationError", Message: verr.Reason, Field: verr.Field})
		}
		return err
	}
	return c.JSON(http.StatusOK, syn)
}

func (srv *Server) HandleAgents(c echo.Context) error {
	cfg := srv.svc.Engine.Config()
	ids := srv.svc.Engine.Agents.Identities()
	out := make([]AgentInfo, 0, len(ids))
	for _, id := range ids {
		enabled := cfg.AgentEnabled(id.ID)
		w := 0
		if enabled {
			w = cfg.WeightFor(id)
		}
		out = append(out, AgentInfo{Identity: id, EffectiveWeight: w, Enabled: enabled})
	}
	return c.JSON(http.StatusOK, out)
}

func (srv *Server) HandleSignalStats(c echo.Context) error {
	return c.JSON(http.StatusOK, srv.svc.Signals.Stats())
}

func (srv *Server) HandleGetConfig(c echo.Context) error {
	return c.JSON(http.StatusOK, srv.svc.Engine.Config().Spec())
}

// Replaces the whole agent configuration, except that an omitted agentTimeout keeps the current timeout. The new snapshot only applies to checks which start after this returns.
func (srv *Server) HandlePutConfig(c echo.Context) error {
	var spec agent.ConfigSpec
	if err := c.Bind(&spec); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "BadRequest", Message: "request body must be a JSON agent config"})
	}
	if spec.AgentTimeout == "" {
		spec.AgentTimeout = srv.svc.Engine.Config().AgentTimeout().String()
	}
	cfg, err := agent.ConfigFromSpec(spec)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "InvalidConfig", Message: err.Error()})
	}
	if err := srv.svc.Engine.SetConfig(cfg); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "InvalidConfig", Message: err.Error()})
	}
	srv.logger.Info("agent config updated", "disabled", spec.Disabled, "weights", spec.Weights, "disabledDetections", spec.DisabledDetections)
	return c.JSON(http.StatusOK, cfg.Spec())
}
