package train

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/gridwatch/demandcast/feature"
	"github.com/gridwatch/demandcast/models"
	"github.com/gridwatch/demandcast/stats"
)

var ErrNoModel = errors.New("no model")

// Model is a trained demand model in a serializable form. It stays immutable after training
// and is safe to share across concurrent forecasts.
type Model struct {
	TrainStartTime time.Time           `json:"train_start_time"`
	TrainEndTime   time.Time           `json:"train_end_time"`
	DataEndTime    time.Time           `json:"data_end_time"`
	LastDemand     float64             `json:"last_demand"`
	Features       []string            `json:"features"`
	HoldoutSize    int                 `json:"holdout_size"`
	NumTrain       int                 `json:"num_train"`
	Scores         *stats.Scores       `json:"scores"`
	MAE            float64             `json:"mae"`
	Forest         *models.ForestModel `json:"forest"`

	forest *models.RandomForest
}

// NewFromModel readies a decoded model for inference, checking that it expects the same
// feature columns this build produces.
func NewFromModel(m *Model) (*Model, error) {
	if m == nil {
		return nil, ErrNoModel
	}
	if err := feature.DefaultLabels().Match(m.Features); err != nil {
		return nil, err
	}
	rf, err := models.NewRandomForestFromModel(m.Forest)
	if err != nil {
		return nil, fmt.Errorf("unable to restore random forest, %w", err)
	}
	if rf.NumFeatures() != len(m.Features) {
		return nil, fmt.Errorf(
			"forest has %d features but model lists %d, %w",
			rf.NumFeatures(), len(m.Features), feature.ErrFeatureMismatch,
		)
	}

	res := *m
	res.forest = rf
	return &res, nil
}

// Predict estimates the demand of one hour
func (m *Model) Predict(v feature.Vector) (float64, error) {
	if m == nil || m.forest == nil {
		return 0, models.ErrUntrainedModel
	}
	return m.forest.PredictRow(v.Slice())
}

// FeatureImportances maps each feature name to its share of the forest's error reduction
func (m *Model) FeatureImportances() map[string]float64 {
	if m == nil || m.forest == nil {
		return nil
	}
	imp := m.forest.FeatureImportances()
	res := make(map[string]float64, len(imp))
	for i, name := range m.Features {
		if i < len(imp) {
			res[name] = imp[i]
		}
	}
	return res
}

func indentExpand(indent string, growth int) string {
	indentByte := []byte(indent)
	out := make([]byte, 0, len(indent)*growth)
	for i := 0; i < growth; i++ {
		out = append(out, indentByte...)
	}
	return string(out)
}

// TablePrint writes a human readable summary of the model
func (m *Model) TablePrint(w io.Writer, prefix, indent string) error {
	if m == nil {
		return ErrNoModel
	}
	if _, err := fmt.Fprintf(w, "%s%sDemand Model:\n", prefix, indentExpand(indent, 0)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sTraining Window: %s to %s\n", prefix, indentExpand(indent, 1),
		m.TrainStartTime.Format(time.RFC3339), m.TrainEndTime.Format(time.RFC3339)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sRows: %d train, %d holdout\n", prefix, indentExpand(indent, 1), m.NumTrain, m.HoldoutSize); err != nil {
		return err
	}
	if m.Forest != nil && m.Forest.Options != nil {
		if _, err := fmt.Fprintf(w, "%s%sTrees: %d, Seed: %d, Max Depth: %d\n", prefix, indentExpand(indent, 1),
			len(m.Forest.Trees), m.Forest.Options.Seed, m.Forest.MaxDepth()); err != nil {
			return err
		}
	}

	if m.Scores != nil {
		if _, err := fmt.Fprintf(w, "%s%sScores:\n", prefix, indentExpand(indent, 0)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s%sMAE: %.2f    MAPE: %.3f    MSE: %.3f    R2: %.3f\n",
			prefix, indentExpand(indent, 1),
			m.MAE,
			m.Scores.MAPE,
			m.Scores.MSE,
			m.Scores.R2,
		); err != nil {
			return err
		}
	}

	imp := m.FeatureImportances()
	if len(imp) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "%s%sFeature Importance:\n", prefix, indentExpand(indent, 0)); err != nil {
		return err
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sFeature\tImportance\t\n", prefix, indentExpand(indent, 1)); err != nil {
		return err
	}
	for _, name := range m.Features {
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%.3f\t\n", prefix, indentExpand(indent, 1), name, imp[name]); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

