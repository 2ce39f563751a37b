package models

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	mat_ "github.com/gridwatch/demandcast/mat"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultNumEstimators   = 100
	DefaultSeed            = 42
	DefaultMinSamplesSplit = 2
	DefaultMinSamplesLeaf  = 1
)

var (
	ErrNonPositiveEstimators = errors.New("number of estimators must be positive")
	ErrNegativeMaxDepth      = errors.New("negative max depth")
	ErrMinSamplesSplit       = errors.New("min samples split must be at least 2")
	ErrMinSamplesLeaf        = errors.New("min samples leaf must be at least 1")
	ErrNegativeParallelism   = errors.New("negative parallelization")
)

// ForestOptions represents input options to fit a random forest regression
type ForestOptions struct {
	// NumEstimators is the number of trees in the forest
	NumEstimators int `json:"num_estimators"`

	// Seed makes fits reproducible. Every tree derives its own random stream from the seed
	// and its index so the result does not depend on Parallelization.
	Seed uint64 `json:"seed"`

	// MaxDepth limits the depth of each tree. 0 grows trees until leaves are pure or
	// cannot be split further.
	MaxDepth int `json:"max_depth"`

	// MinSamplesSplit is the fewest samples a node needs to be considered for a split
	MinSamplesSplit int `json:"min_samples_split"`

	// MinSamplesLeaf is the fewest samples allowed on either side of a split
	MinSamplesLeaf int `json:"min_samples_leaf"`

	// Bootstrap trains each tree on a sample drawn with replacement of the same size as the
	// training set. When false every tree sees every row.
	Bootstrap bool `json:"bootstrap"`

	// Parallelization sets how many trees to fit in parallel. 0 uses GOMAXPROCS.
	Parallelization int `json:"-"`
}

// NewDefaultForestOptions returns a default set of random forest options
func NewDefaultForestOptions() *ForestOptions {
	return &ForestOptions{
		NumEstimators:   DefaultNumEstimators,
		Seed:            DefaultSeed,
		MaxDepth:        0,
		MinSamplesSplit: DefaultMinSamplesSplit,
		MinSamplesLeaf:  DefaultMinSamplesLeaf,
		Bootstrap:       true,
		Parallelization: 0,
	}
}

// Validate runs basic validation on random forest options
func (f *ForestOptions) Validate() (*ForestOptions, error) {
	if f == nil {
		f = NewDefaultForestOptions()
	}

	if f.NumEstimators <= 0 {
		return nil, ErrNonPositiveEstimators
	}
	if f.MaxDepth < 0 {
		return nil, ErrNegativeMaxDepth
	}
	if f.MinSamplesSplit < 2 {
		return nil, ErrMinSamplesSplit
	}
	if f.MinSamplesLeaf < 1 {
		return nil, ErrMinSamplesLeaf
	}
	if f.Parallelization < 0 {
		return nil, ErrNegativeParallelism
	}
	if f.Parallelization == 0 {
		f.Parallelization = runtime.GOMAXPROCS(0)
	}
	if f.Parallelization > f.NumEstimators {
		f.Parallelization = f.NumEstimators
	}
	return f, nil
}

var _ Model = (*RandomForest)(nil)

// RandomForest averages bagged regression trees
type RandomForest struct {
	opt *ForestOptions

	numFeatures int
	trees       []Tree
	importances []float64
}

// NewRandomForest initializes a random forest ready for fitting
func NewRandomForest(opt *ForestOptions) (*RandomForest, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &RandomForest{
		opt: opt,
	}, nil
}

// Fit the forest according to the given training data
func (r *RandomForest) Fit(x, y mat.Matrix) error {
	if err := r.fitValidate(x, y); err != nil {
		return err
	}
	m, n := x.Dims()

	cols, err := mat_.Columns(x)
	if err != nil {
		return err
	}
	yArr := mat.Col(nil, 0, y)

	start := time.Now()
	trees := make([]Tree, r.opt.NumEstimators)
	gains := make([][]float64, r.opt.NumEstimators)

	sem := make(chan struct{}, r.opt.Parallelization)
	var wg sync.WaitGroup
	for i := 0; i < r.opt.NumEstimators; i++ {
		sem <- struct{}{}
		wg.Add(1)

		go r.runTree(i, cols, yArr, trees, gains, &wg, sem)
	}
	wg.Wait()

	r.numFeatures = n
	r.trees = trees
	r.importances = averageImportances(gains, n)

	slog.Debug("fit random forest",
		"trees", len(trees),
		"observations", m,
		"features", n,
		"parallelization", r.opt.Parallelization,
		"duration", time.Since(start),
	)
	return nil
}

func (r *RandomForest) fitValidate(x, y mat.Matrix) error {
	if r == nil || r.opt == nil {
		return ErrNoOptions
	}
	if x == nil {
		return ErrNoTrainingMatrix
	}
	if y == nil {
		return ErrNoTargetMatrix
	}

	m, _ := x.Dims()
	ym, _ := y.Dims()
	if ym != m {
		return fmt.Errorf("training data has %d rows and target has %d row, %w", m, ym, ErrTargetLenMismatch)
	}
	return nil
}

func (r *RandomForest) runTree(i int, cols [][]float64, y []float64, trees []Tree, gains [][]float64, wg *sync.WaitGroup, sem chan struct{}) {
	defer func() {
		wg.Done()
		<-sem
	}()

	rng := rand.New(rand.NewPCG(r.opt.Seed, uint64(i)))

	m := len(y)
	idx := make([]int, m)
	for j := range idx {
		if r.opt.Bootstrap {
			idx[j] = rng.IntN(m)
		} else {
			idx[j] = j
		}
	}

	b := newTreeBuilder(cols, y, r.opt, rng)
	trees[i] = b.build(idx)
	gains[i] = b.gain
}

// averageImportances normalizes each tree's squared error reduction to sum to one and
// averages across trees. Trees without a split contribute nothing.
func averageImportances(gains [][]float64, n int) []float64 {
	res := make([]float64, n)
	for _, g := range gains {
		total := floats.Sum(g)
		if total <= 0 {
			continue
		}
		for j, v := range g {
			res[j] += v / total
		}
	}
	total := floats.Sum(res)
	if total > 0 {
		floats.Scale(1/total, res)
	}
	return res
}

// PredictRow averages the tree outputs for a single observation
func (r *RandomForest) PredictRow(x []float64) (float64, error) {
	if r == nil || len(r.trees) == 0 {
		return 0.0, ErrUntrainedModel
	}
	if len(x) != r.numFeatures {
		return 0.0, fmt.Errorf("got %d features, but expected %d, %w", len(x), r.numFeatures, ErrFeatureLenMismatch)
	}

	// summed in tree order so results are identical across runs
	var sum float64
	for _, t := range r.trees {
		sum += t.Predict(x)
	}
	return sum / float64(len(r.trees)), nil
}

// Predict using the random forest
func (r *RandomForest) Predict(x mat.Matrix) ([]float64, error) {
	if r == nil || len(r.trees) == 0 {
		return nil, ErrUntrainedModel
	}
	if x == nil {
		return nil, ErrNoDesignMatrix
	}

	m, n := x.Dims()
	if n != r.numFeatures {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", n, r.numFeatures, ErrFeatureLenMismatch)
	}

	res := make([]float64, m)
	row := make([]float64, n)
	for i := 0; i < m; i++ {
		mat.Row(row, i, x)
		val, err := r.PredictRow(row)
		if err != nil {
			return nil, err
		}
		res[i] = val
	}
	return res, nil
}

// Score computes the coefficient of determination of the prediction
func (r *RandomForest) Score(x, y mat.Matrix) (float64, error) {
	if x == nil {
		return 0.0, ErrNoDesignMatrix
	}
	if y == nil {
		return 0.0, ErrNoTargetMatrix
	}

	m, _ := x.Dims()
	ym, _ := y.Dims()
	if m != ym {
		return 0.0, fmt.Errorf("design matrix has %d rows and target has %d rows, %w", m, ym, ErrTargetLenMismatch)
	}

	res, err := r.Predict(x)
	if err != nil {
		return 0.0, err
	}

	ySlice := mat.Col(nil, 0, y)

	score := stat.RSquaredFrom(res, ySlice, nil)
	if math.IsNaN(score) {
		score = 1.0
	}
	return score, nil
}

// NumFeatures returns the number of columns the forest was trained on
func (r *RandomForest) NumFeatures() int {
	if r == nil {
		return 0
	}
	return r.numFeatures
}

// NumTrees returns the number of fitted trees
func (r *RandomForest) NumTrees() int {
	if r == nil {
		return 0
	}
	return len(r.trees)
}

// FeatureImportances returns the normalized mean squared error reduction contributed by
// each feature column.
func (r *RandomForest) FeatureImportances() []float64 {
	if r == nil {
		return nil
	}
	res := make([]float64, len(r.importances))
	copy(res, r.importances)
	return res
}

// ForestModel is a serializable representation of a fitted random forest
type ForestModel struct {
	Options     *ForestOptions `json:"options"`
	NumFeatures int            `json:"num_features"`
	Importances []float64      `json:"importances,omitempty"`
	Trees       []Tree         `json:"trees"`
}

// MaxDepth returns the depth of the deepest tree
func (m *ForestModel) MaxDepth() int {
	if m == nil {
		return 0
	}
	var depth int
	for _, t := range m.Trees {
		depth = max(depth, t.Depth())
	}
	return depth
}

// Model returns the serializable form of the fitted forest
func (r *RandomForest) Model() (*ForestModel, error) {
	if r == nil || len(r.trees) == 0 {
		return nil, ErrUntrainedModel
	}
	opt := *r.opt
	return &ForestModel{
		Options:     &opt,
		NumFeatures: r.numFeatures,
		Importances: r.FeatureImportances(),
		Trees:       r.trees,
	}, nil
}

// NewRandomForestFromModel restores a fitted forest, checking that every tree can be
// traversed safely.
func NewRandomForestFromModel(model *ForestModel) (*RandomForest, error) {
	if model == nil || len(model.Trees) == 0 {
		return nil, ErrUntrainedModel
	}
	if model.NumFeatures <= 0 {
		return nil, fmt.Errorf("model has %d features, %w", model.NumFeatures, ErrFeatureLenMismatch)
	}
	for i, t := range model.Trees {
		if err := t.Validate(model.NumFeatures); err != nil {
			return nil, fmt.Errorf("tree %d, %w", i, err)
		}
	}
	if model.Importances != nil && len(model.Importances) != model.NumFeatures {
		return nil, fmt.Errorf("model has %d importances for %d features, %w", len(model.Importances), model.NumFeatures, ErrFeatureLenMismatch)
	}

	opt := model.Options
	if opt == nil {
		opt = NewDefaultForestOptions()
	}
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	return &RandomForest{
		opt:         opt,
		numFeatures: model.NumFeatures,
		trees:       model.Trees,
		importances: model.Importances,
	}, nil
}
