package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gridwatch/demandcast/stats"

	"github.com/gin-gonic/gin"
)

var (
	ErrMissingDate  = errors.New("date query parameter is required")
	ErrInvalidDate  = errors.New("date must be formatted as YYYY-MM-DD")
	ErrInvalidLimit = errors.New("limit must be a positive integer")
)

// HistoryPoint is a single historical observation
type HistoryPoint struct {
	Time   time.Time `json:"time"`
	Demand float64   `json:"demand_mw"`
}

// ModelSummary describes the served model without its trees
type ModelSummary struct {
	TrainStartTime time.Time          `json:"train_start_time"`
	TrainEndTime   time.Time          `json:"train_end_time"`
	DataEndTime    time.Time          `json:"data_end_time"`
	Features       []string           `json:"features"`
	Importances    map[string]float64 `json:"feature_importances"`
	HoldoutSize    int                `json:"holdout_size"`
	NumTrain       int                `json:"num_train"`
	NumTrees       int                `json:"num_trees"`
	Seed           uint64             `json:"seed"`
	Scores         *stats.Scores      `json:"scores,omitempty"`
	MAE            float64            `json:"mae"`
}

func errorBody(err error) gin.H {
	return gin.H{"error": err.Error()}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) forecast(c *gin.Context) {
	raw := c.Query("date")
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(ErrMissingDate))
		return
	}
	date, err := time.ParseInLocation(time.DateOnly, raw, s.opt.Location)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(ErrInvalidDate))
		return
	}

	start := time.Now()
	res, err := s.f.Predict(date)
	forecastDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		forecastsFailed.Inc()
		slog.Error("forecast failed", "date", raw, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(err))
		return
	}
	forecastsServed.Inc()
	c.JSON(http.StatusOK, res)
}

func (s *Server) history(c *gin.Context) {
	limit := DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorBody(ErrInvalidLimit))
			return
		}
		limit = n
	}

	hist := s.f.History(limit)
	points := make([]HistoryPoint, 0, hist.Len())
	for i := 0; i < hist.Len(); i++ {
		points = append(points, HistoryPoint{Time: hist.T[i], Demand: hist.Y[i]})
	}
	c.JSON(http.StatusOK, gin.H{"points": points})
}

func (s *Server) model(c *gin.Context) {
	m, err := s.f.Model()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, errorBody(err))
		return
	}

	summary := ModelSummary{
		TrainStartTime: m.TrainStartTime,
		TrainEndTime:   m.TrainEndTime,
		DataEndTime:    m.DataEndTime,
		Features:       m.Features,
		Importances:    m.FeatureImportances(),
		HoldoutSize:    m.HoldoutSize,
		NumTrain:       m.NumTrain,
		Scores:         m.Scores,
		MAE:            s.f.MAE(),
	}
	if m.Forest != nil {
		summary.NumTrees = len(m.Forest.Trees)
		if m.Forest.Options != nil {
			summary.Seed = m.Forest.Options.Seed
		}
	}
	c.JSON(http.StatusOK, summary)
}
