package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/fogfish/opts"
)

// Settings configures the server.
type Settings struct {
	Addr       string
	RateLimit  int
	RateWindow time.Duration
}

// Option configures Settings.
type Option = opts.Option[Settings]

var (
	// WithAddr sets the listen address.
	WithAddr = opts.ForName[Settings, string]("Addr")
	// WithRateLimit sets the allowed requests per identifier per window.
	WithRateLimit = opts.ForName[Settings, int]("RateLimit")
	// WithRateWindow sets the fixed-window size.
	WithRateWindow = opts.ForName[Settings, time.Duration]("RateWindow")
)

// Server is the HTTP front. Construct with New, run with Start, stop
// with Shutdown.
type Server struct {
	echo     *echo.Echo
	res      *Resources
	settings Settings
}

func New(res *Resources, options ...Option) (*Server, error) {
	settings := Settings{
		Addr:       ":8080",
		RateLimit:  60,
		RateWindow: time.Minute,
	}
	if err := opts.Apply(&settings, options); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = serializer{}

	s := &Server{echo: e, res: res, settings: settings}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger())

	e.GET("/healthz", s.health)

	v1 := e.Group("/v1", s.rateLimit)
	v1.POST("/chat", s.chat)
	v1.POST("/tools/execute", s.executeTool)
	v1.GET("/providers", s.listProviders)
	v1.GET("/tools", s.listTools)

	return s, nil
}

// Start blocks serving until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	err := s.echo.Start(s.settings.Addr)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listProviders(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"providers": s.res.Providers.Names()})
}

func (s *Server) listTools(c echo.Context) error {
	type toolInfo struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		TTLSeconds  int64  `json:"ttlSeconds"`
	}
	var out []toolInfo
	for _, name := range s.res.Tools.Names() {
		def, _ := s.res.Tools.Get(name)
		out = append(out, toolInfo{
			Name:        def.Name,
			Description: def.Description,
			TTLSeconds:  int64(def.TTL.Seconds()),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{"tools": out})
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogURI:       true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				slog.String("id", v.RequestID),
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
			)
			return nil
		},
	})
}

// serializer plugs goccy into echo's request binding and response
// encoding.
type serializer struct{}

func (serializer) Serialize(c echo.Context, i any, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (serializer) Deserialize(c echo.Context, i any) error {
	return json.NewDecoder(c.Request().Body).Decode(i)
}
