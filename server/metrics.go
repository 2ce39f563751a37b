package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	forecastsServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demandcast_forecasts_served_total",
		Help: "Total number of day ahead forecasts returned.",
	})
	forecastsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "demandcast_forecasts_failed_total",
		Help: "Total number of forecast requests that failed after a valid date.",
	})
	forecastDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "demandcast_forecast_duration_seconds",
		Help:    "Duration of a 24 hour recursive forecast.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
	})
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "demandcast_http_requests_total",
		Help: "Total number of HTTP requests by route and status code.",
	}, []string{"route", "code"})
)
