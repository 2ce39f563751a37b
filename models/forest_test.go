package models

import (
	"math"
	"testing"

	"github.com/goccy/go-json"
	mat_ "github.com/gridwatch/demandcast/mat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestForestOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt      *ForestOptions
		err      error
		expected *ForestOptions
	}{
		"nil": {
			nil, nil,
			func() *ForestOptions {
				opt := NewDefaultForestOptions()
				opt.Parallelization = 0
				return opt
			}(),
		},
		"valid": {
			&ForestOptions{
				NumEstimators:   10,
				Seed:            7,
				MaxDepth:        3,
				MinSamplesSplit: 4,
				MinSamplesLeaf:  2,
				Parallelization: 20,
			}, nil,
			&ForestOptions{
				NumEstimators:   10,
				Seed:            7,
				MaxDepth:        3,
				MinSamplesSplit: 4,
				MinSamplesLeaf:  2,
				Parallelization: 10,
			},
		},
		"zero estimators": {
			&ForestOptions{NumEstimators: 0, MinSamplesSplit: 2, MinSamplesLeaf: 1},
			ErrNonPositiveEstimators, nil,
		},
		"negative depth": {
			&ForestOptions{NumEstimators: 1, MaxDepth: -1, MinSamplesSplit: 2, MinSamplesLeaf: 1},
			ErrNegativeMaxDepth, nil,
		},
		"min samples split": {
			&ForestOptions{NumEstimators: 1, MinSamplesSplit: 1, MinSamplesLeaf: 1},
			ErrMinSamplesSplit, nil,
		},
		"min samples leaf": {
			&ForestOptions{NumEstimators: 1, MinSamplesSplit: 2, MinSamplesLeaf: 0},
			ErrMinSamplesLeaf, nil,
		},
		"negative parallelization": {
			&ForestOptions{NumEstimators: 1, MinSamplesSplit: 2, MinSamplesLeaf: 1, Parallelization: -1},
			ErrNegativeParallelism, nil,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Greater(t, opt.Parallelization, 0)
			if td.expected.Parallelization == 0 {
				// depends on GOMAXPROCS
				td.expected.Parallelization = opt.Parallelization
			}
			assert.Equal(t, td.expected, opt)
		})
	}
}

func TestDefaultForestOptions(t *testing.T) {
	opt := NewDefaultForestOptions()
	assert.Equal(t, 100, opt.NumEstimators)
	assert.Equal(t, uint64(42), opt.Seed)
	assert.Equal(t, 0, opt.MaxDepth)
	assert.True(t, opt.Bootstrap)
}

func TestRandomForestStepFunction(t *testing.T) {
	// y = 10 for x0 <= 4, 20 otherwise. x1 is noise the trees should ignore.
	x := make([][]float64, 0, 10)
	y := make([]float64, 0, 10)
	for i := 0; i < 10; i++ {
		x = append(x, []float64{float64(i), float64((i * 7) % 3)})
		if i <= 4 {
			y = append(y, 10)
		} else {
			y = append(y, 20)
		}
	}
	xMx, err := mat_.NewDenseFromArray(x)
	require.Nil(t, err)
	yMx := mat.NewDense(len(y), 1, y)

	opt := NewDefaultForestOptions()
	opt.NumEstimators = 1
	opt.Bootstrap = false
	rf, err := NewRandomForest(opt)
	require.Nil(t, err)
	require.Nil(t, rf.Fit(xMx, yMx))

	assert.Equal(t, 1, rf.NumTrees())
	assert.Equal(t, 2, rf.NumFeatures())

	tree := rf.trees[0]
	require.Len(t, tree.Nodes, 3)
	assert.Equal(t, 0, tree.Nodes[0].Feature)
	assert.Equal(t, 4.5, tree.Nodes[0].Threshold)
	assert.Equal(t, 1, tree.Depth())

	res, err := rf.Predict(xMx)
	require.Nil(t, err)
	assert.Equal(t, y, res)

	score, err := rf.Score(xMx, yMx)
	require.Nil(t, err)
	assert.InDelta(t, 1.0, score, 1e-12)

	assert.InDeltaSlice(t, []float64{1, 0}, rf.FeatureImportances(), 1e-12)

	val, err := rf.PredictRow([]float64{100, 0})
	require.Nil(t, err)
	assert.Equal(t, 20.0, val)
}

func TestRandomForestConstantTarget(t *testing.T) {
	xMx := mat.NewDense(4, 1, []float64{1, 2, 3, 4})
	yMx := mat.NewDense(4, 1, []float64{5, 5, 5, 5})

	opt := NewDefaultForestOptions()
	opt.NumEstimators = 3
	rf, err := NewRandomForest(opt)
	require.Nil(t, err)
	require.Nil(t, rf.Fit(xMx, yMx))

	for _, tree := range rf.trees {
		require.Len(t, tree.Nodes, 1)
		assert.True(t, tree.Nodes[0].IsLeaf())
	}
	val, err := rf.PredictRow([]float64{10})
	require.Nil(t, err)
	assert.Equal(t, 5.0, val)

	// no split in any tree leaves importances at zero
	assert.Equal(t, []float64{0}, rf.FeatureImportances())
}

func TestRandomForestMaxDepth(t *testing.T) {
	xMx, yMx := generateForestData(200)

	opt := NewDefaultForestOptions()
	opt.NumEstimators = 5
	opt.MaxDepth = 3
	rf, err := NewRandomForest(opt)
	require.Nil(t, err)
	require.Nil(t, rf.Fit(xMx, yMx))

	for _, tree := range rf.trees {
		assert.LessOrEqual(t, tree.Depth(), 3)
	}

	m, err := rf.Model()
	require.Nil(t, err)
	assert.Equal(t, 3, m.MaxDepth())

	var empty *ForestModel
	assert.Equal(t, 0, empty.MaxDepth())
}

func TestRandomForestMinSamplesLeaf(t *testing.T) {
	xMx, yMx := generateForestData(100)

	opt := NewDefaultForestOptions()
	opt.NumEstimators = 1
	opt.Bootstrap = false
	opt.MinSamplesLeaf = 10
	rf, err := NewRandomForest(opt)
	require.Nil(t, err)
	require.Nil(t, rf.Fit(xMx, yMx))

	// every leaf covers at least 10 rows so there can be at most 10 leaves
	leaves := 0
	for _, n := range rf.trees[0].Nodes {
		if n.IsLeaf() {
			leaves++
		}
	}
	assert.LessOrEqual(t, leaves, 10)
	assert.Greater(t, leaves, 1)
}

func TestRandomForestDeterministic(t *testing.T) {
	xMx, yMx := generateForestData(300)

	fit := func(parallel int, seed uint64) []float64 {
		opt := NewDefaultForestOptions()
		opt.NumEstimators = 12
		opt.Seed = seed
		opt.Parallelization = parallel
		rf, err := NewRandomForest(opt)
		require.Nil(t, err)
		require.Nil(t, rf.Fit(xMx, yMx))

		res, err := rf.Predict(xMx)
		require.Nil(t, err)
		return res
	}

	serial := fit(1, 42)
	assert.Equal(t, serial, fit(1, 42), "same seed")
	assert.Equal(t, serial, fit(4, 42), "parallel")
	assert.NotEqual(t, serial, fit(1, 43), "different seed")
}

func TestRandomForestErrors(t *testing.T) {
	rf, err := NewRandomForest(nil)
	require.Nil(t, err)

	_, err = rf.Predict(mat.NewDense(1, 1, []float64{1}))
	assert.ErrorIs(t, err, ErrUntrainedModel)

	_, err = rf.PredictRow([]float64{1})
	assert.ErrorIs(t, err, ErrUntrainedModel)

	_, err = rf.Model()
	assert.ErrorIs(t, err, ErrUntrainedModel)

	assert.ErrorIs(t, rf.Fit(nil, mat.NewDense(1, 1, nil)), ErrNoTrainingMatrix)
	assert.ErrorIs(t, rf.Fit(mat.NewDense(1, 1, nil), nil), ErrNoTargetMatrix)
	assert.ErrorIs(t, rf.Fit(mat.NewDense(2, 1, nil), mat.NewDense(1, 1, nil)), ErrTargetLenMismatch)

	xMx, yMx := generateForestData(20)
	require.Nil(t, rf.Fit(xMx, yMx))

	_, err = rf.Predict(mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, ErrFeatureLenMismatch)

	_, err = rf.PredictRow([]float64{1})
	assert.ErrorIs(t, err, ErrFeatureLenMismatch)

	_, err = rf.Predict(nil)
	assert.ErrorIs(t, err, ErrNoDesignMatrix)

	var nilForest *RandomForest
	assert.Equal(t, 0, nilForest.NumTrees())
	assert.ErrorIs(t, nilForest.Fit(xMx, yMx), ErrNoOptions)

	_, err = NewRandomForest(&ForestOptions{})
	assert.ErrorIs(t, err, ErrNonPositiveEstimators)
}

func TestForestModelRoundTrip(t *testing.T) {
	xMx, yMx := generateForestData(150)

	opt := NewDefaultForestOptions()
	opt.NumEstimators = 8
	rf, err := NewRandomForest(opt)
	require.Nil(t, err)
	require.Nil(t, rf.Fit(xMx, yMx))

	model, err := rf.Model()
	require.Nil(t, err)

	out, err := json.Marshal(model)
	require.Nil(t, err)

	var decoded ForestModel
	require.Nil(t, json.Unmarshal(out, &decoded))

	restored, err := NewRandomForestFromModel(&decoded)
	require.Nil(t, err)

	expected, err := rf.Predict(xMx)
	require.Nil(t, err)
	res, err := restored.Predict(xMx)
	require.Nil(t, err)
	assert.Equal(t, expected, res)
	assert.Equal(t, rf.FeatureImportances(), restored.FeatureImportances())
}

func TestNewRandomForestFromModel(t *testing.T) {
	leaf := Node{Feature: LeafFeature, Value: 1}
	testData := map[string]struct {
		model *ForestModel
		err   error
	}{
		"nil": {nil, ErrUntrainedModel},
		"no trees": {&ForestModel{NumFeatures: 1}, ErrUntrainedModel},
		"no features": {
			&ForestModel{Trees: []Tree{{Nodes: []Node{leaf}}}},
			ErrFeatureLenMismatch,
		},
		"empty tree": {
			&ForestModel{NumFeatures: 1, Trees: []Tree{{}}},
			ErrInvalidTree,
		},
		"feature out of range": {
			&ForestModel{NumFeatures: 1, Trees: []Tree{{Nodes: []Node{
				{Feature: 1, Left: 1, Right: 2}, leaf, leaf,
			}}}},
			ErrInvalidTree,
		},
		"backward child": {
			&ForestModel{NumFeatures: 1, Trees: []Tree{{Nodes: []Node{
				{Feature: 0, Left: 0, Right: 1}, leaf,
			}}}},
			ErrInvalidTree,
		},
		"child out of range": {
			&ForestModel{NumFeatures: 1, Trees: []Tree{{Nodes: []Node{
				{Feature: 0, Left: 1, Right: 5}, leaf,
			}}}},
			ErrInvalidTree,
		},
		"importance mismatch": {
			&ForestModel{NumFeatures: 2, Importances: []float64{1}, Trees: []Tree{{Nodes: []Node{leaf}}}},
			ErrFeatureLenMismatch,
		},
		"valid without options": {
			&ForestModel{NumFeatures: 1, Trees: []Tree{{Nodes: []Node{
				{Feature: 0, Threshold: 0.5, Left: 1, Right: 2},
				{Feature: LeafFeature, Value: 1},
				{Feature: LeafFeature, Value: 3},
			}}}},
			nil,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			rf, err := NewRandomForestFromModel(td.model)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)

			val, err := rf.PredictRow([]float64{0})
			require.Nil(t, err)
			assert.Equal(t, 1.0, val)

			val, err = rf.PredictRow([]float64{1})
			require.Nil(t, err)
			assert.Equal(t, 3.0, val)
		})
	}
}

func BenchmarkRandomForestFit(b *testing.B) {
	xMx, yMx := generateForestData(2000)
	opt := NewDefaultForestOptions()
	opt.NumEstimators = 10

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rf, err := NewRandomForest(opt)
		if err != nil {
			b.Fatal(err)
		}
		if err := rf.Fit(xMx, yMx); err != nil {
			b.Fatal(err)
		}
	}
}

// generateForestData builds an hourly like design with a smooth daily target
func generateForestData(nObs int) (mat.Matrix, mat.Matrix) {
	x := make([]float64, 0, nObs*2)
	y := make([]float64, 0, nObs)
	for i := 0; i < nObs; i++ {
		hour := float64(i % 24)
		day := float64((i / 24) % 7)
		x = append(x, hour, day)
		y = append(y, 100+20*math.Sin(2*math.Pi*hour/24)+5*day)
	}
	return mat.NewDense(nObs, 2, x), mat.NewDense(nObs, 1, y)
}
