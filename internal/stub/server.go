// Package stub is a local stand-in for the newsletter backend. It serves the
// same HTTP contract as the real service from a sqlite file, with a plain
// digest in place of AI-generated summaries.
package stub

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"newsdays/internal/model"
)

type Options struct {
	// SummaryField names the summary key in summarize responses. Anything
	// but "summary" answers with the legacy {"day_id", <field>} shape.
	SummaryField string
	Logger       *zap.Logger
	// Registry backs GET /metrics. A private one is created when nil.
	Registry *prometheus.Registry
}

type Server struct {
	e            *echo.Echo
	store        *SQLiteStore
	summaryField string
	log          *zap.Logger

	ingested  prometheus.Counter
	summaries prometheus.Counter
}

func NewServer(store *SQLiteStore, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	field := opts.SummaryField
	if field == "" {
		field = "summary"
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := &Server{
		e:            echo.New(),
		store:        store,
		summaryField: field,
		log:          logger.Named("stub"),
		ingested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsdays_stub_ingested_newsletters_total",
			Help: "Newsletters moved from the inbox into days.",
		}),
		summaries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "newsdays_stub_summaries_total",
			Help: "Day summaries generated.",
		}),
	}
	reg.MustRegister(s.ingested, s.summaries)
	s.e.HideBanner = true
	s.e.HidePort = true

	s.e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Int64("latency_ms", v.Latency.Milliseconds()),
			}
			if v.Error != nil {
				s.log.Error("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			s.log.Info("request completed", fields...)
			return nil
		},
	}))
	s.e.Use(middleware.Recover())

	api := s.e.Group("/api/v1")
	api.GET("/days", s.listDays)
	api.GET("/days/:id", s.getDay)
	api.POST("/days/:id/summarize", s.summarize)
	api.GET("/newsletter/", s.ingest)
	api.POST("/inbox", s.enqueue)
	s.e.GET("/health", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	s.e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	return s
}

// Handler exposes the routes, for httptest.
func (s *Server) Handler() http.Handler { return s.e }

// Start blocks serving on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info("stub listening", zap.String("addr", addr), zap.String("summary_field", s.summaryField))
	if err := s.e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

func (s *Server) listDays(c echo.Context) error {
	days, err := s.store.ListDays(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, days)
}

func (s *Server) getDay(c echo.Context) error {
	d, err := s.store.GetDay(c.Request().Context(), model.ID(c.Param("id")))
	if err != nil {
		return dayError(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (s *Server) summarize(c echo.Context) error {
	id := model.ID(c.Param("id"))
	d, err := s.store.Summarize(c.Request().Context(), id)
	if err != nil {
		return dayError(err)
	}
	if d.Summary.Generated() {
		s.summaries.Inc()
	}
	if s.summaryField == "summary" {
		return c.JSON(http.StatusOK, d)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"day_id":       d.ID,
		s.summaryField: d.Summary,
	})
}

func (s *Server) ingest(c echo.Context) error {
	n, err := s.store.Ingest(c.Request().Context())
	if err != nil {
		return err
	}
	s.ingested.Add(float64(n))
	s.log.Info("ingested inbox", zap.Int("newsletters", n))
	return c.JSON(http.StatusOK, map[string]int{"ingested": n})
}

func (s *Server) enqueue(c echo.Context) error {
	var items []InboxItem
	if err := c.Bind(&items); err != nil {
		return err
	}
	if err := s.store.Enqueue(c.Request().Context(), items); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]int{"queued": len(items)})
}

func dayError(err error) error {
	if errors.Is(err, ErrDayNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "day not found")
	}
	return err
}
