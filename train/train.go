// Package train fits the demand model on a historical series and measures it on the most
// recent rows.
package train

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gridwatch/demandcast/feature"
	"github.com/gridwatch/demandcast/models"
	"github.com/gridwatch/demandcast/stats"
	"github.com/gridwatch/demandcast/timedataset"

	"gonum.org/v1/gonum/mat"
)

// MAEPlaces is the number of decimals the reported mean absolute error is rounded to
const MAEPlaces = 2

var ErrInsufficientData = errors.New("insufficient rows to hold out for scoring")

// SplitHoldout splits rows by position into everything but the last holdout rows and the last
// holdout rows. Order is preserved so the scored rows always come after the fitted ones.
func SplitHoldout[T any](rows []T, holdout int) ([]T, []T, error) {
	if holdout <= 0 {
		return nil, nil, fmt.Errorf("got %d, %w", holdout, ErrNonPositiveHoldout)
	}
	if len(rows) < holdout+1 {
		return nil, nil, fmt.Errorf(
			"have %d rows but need at least %d to hold out %d, %w",
			len(rows), holdout+1, holdout, ErrInsufficientData,
		)
	}
	cut := len(rows) - holdout
	return rows[:cut], rows[cut:], nil
}

// Train derives the feature table of td, fits a random forest on all but the last
// HoldoutSize rows and scores it on those rows.
func Train(td *timedataset.TimeDataset, opt *Options) (*Model, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if td.Len() == 0 {
		return nil, timedataset.ErrNoTrainingData
	}

	start := time.Now()
	vecs, target, err := feature.DeriveSeries(td.T, td.Y)
	if err != nil {
		return nil, fmt.Errorf("unable to derive features, %w", err)
	}

	trainVecs, testVecs, err := SplitHoldout(vecs, opt.HoldoutSize)
	if err != nil {
		return nil, err
	}
	trainTarget, testTarget, err := SplitHoldout(target, opt.HoldoutSize)
	if err != nil {
		return nil, err
	}

	if outliers := stats.DetectOutliers(td.Y, 0.01, 0.99, 1.5); len(outliers) > 0 {
		slog.Warn("historical demand contains outliers", "count", len(outliers), "first_index", outliers[0])
	}

	rf, err := models.NewRandomForest(opt.ForestOptions)
	if err != nil {
		return nil, err
	}
	x := feature.Matrix(trainVecs)
	y := mat.NewDense(len(trainTarget), 1, trainTarget)
	if err := rf.Fit(x, y); err != nil {
		return nil, fmt.Errorf("unable to fit random forest, %w", err)
	}

	predicted, err := rf.Predict(feature.Matrix(testVecs))
	if err != nil {
		return nil, fmt.Errorf("unable to predict holdout, %w", err)
	}
	scores, err := stats.NewScores(predicted, testTarget)
	if err != nil {
		return nil, fmt.Errorf("unable to score holdout, %w", err)
	}

	forest, err := rf.Model()
	if err != nil {
		return nil, err
	}

	firstIdx := len(td.T) - len(vecs)
	trainTimes := timedataset.TimeSlice(td.T[firstIdx : firstIdx+len(trainVecs)])
	m := &Model{
		TrainStartTime: trainTimes.StartTime(),
		TrainEndTime:   trainTimes.EndTime(),
		DataEndTime:    timedataset.TimeSlice(td.T).EndTime(),
		LastDemand:     td.Y[len(td.Y)-1],
		Features:       feature.Names(),
		HoldoutSize:    opt.HoldoutSize,
		NumTrain:       len(trainVecs),
		Scores:         scores,
		MAE:            stats.Round(scores.MAE, MAEPlaces),
		Forest:         forest,
		forest:         rf,
	}

	slog.Info("trained demand model",
		"train_rows", m.NumTrain,
		"holdout_rows", m.HoldoutSize,
		"trees", rf.NumTrees(),
		"max_depth", forest.MaxDepth(),
		"mae", m.MAE,
		"r2", scores.R2,
		"duration", time.Since(start),
	)
	return m, nil
}
