// Package server exposes a Forecaster over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gridwatch/demandcast"
	"github.com/gridwatch/demandcast/timedataset"
	"github.com/gridwatch/demandcast/train"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultShutdownTimeout = 10 * time.Second
	DefaultHistoryLimit    = demandcast.DefaultHistoryLimit
)

var ErrNoForecaster = errors.New("no forecaster provided")

// Forecaster is the read only view of a trained forecaster the server needs
type Forecaster interface {
	Predict(date time.Time) (*demandcast.Results, error)
	History(n int) *timedataset.TimeDataset
	Model() (*train.Model, error)
	MAE() float64
}

// Options configures the HTTP host
type Options struct {
	// Location interprets the requested forecast dates. Defaults to UTC.
	Location *time.Location

	// AllowOrigins lists the CORS origins. Empty allows all origins.
	AllowOrigins []string

	ShutdownTimeout time.Duration
}

// NewDefaultOptions returns options that allow all origins and read dates in UTC
func NewDefaultOptions() *Options {
	return &Options{
		Location:        time.UTC,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

func (o *Options) validate() *Options {
	if o == nil {
		return NewDefaultOptions()
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.ShutdownTimeout <= 0 {
		o.ShutdownTimeout = DefaultShutdownTimeout
	}
	return o
}

// Server routes forecast, history and model requests to a single Forecaster. The forecaster
// is loaded once and shared by all requests.
type Server struct {
	opt    *Options
	f      Forecaster
	engine *gin.Engine
}

// New builds the gin engine and registers the routes
func New(f Forecaster, opt *Options) (*Server, error) {
	if f == nil {
		return nil, ErrNoForecaster
	}
	opt = opt.validate()

	s := &Server{
		opt:    opt,
		f:      f,
		engine: gin.New(),
	}

	corsConfig := cors.DefaultConfig()
	if len(opt.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = opt.AllowOrigins
	}

	s.engine.Use(gin.Recovery(), requestLogger(), cors.New(corsConfig))
	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/forecast", s.forecast)
		v1.GET("/history", s.history)
		v1.GET("/model", s.model)
	}
	return s, nil
}

// Handler returns the http handler serving all routes
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done and then drains in flight requests
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("serving forecasts", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("unable to serve, %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opt.ShutdownTimeout)
	defer cancel()
	slog.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("unable to shutdown server, %w", err)
	}
	return nil
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		code := c.Writer.Status()
		requestsTotal.WithLabelValues(route, strconv.Itoa(code)).Inc()
		slog.Debug("handled request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", code,
			"duration", time.Since(start),
		)
	}
}
