package feature

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLabels(t *testing.T) {
	labels := DefaultLabels()
	require.Equal(t, 5, labels.Len())
	assert.Equal(t, []string{"hour", "dayofweek", "month", "year", "lag_1"}, labels.Names())
	assert.Equal(t, labels.Names(), Names())

	idx, exists := labels.Index(NewLag(1).String())
	assert.True(t, exists)
	assert.Equal(t, 4, idx)

	idx, exists = labels.Index(NameMonth)
	assert.True(t, exists)
	assert.Equal(t, 2, idx)

	idx, exists = labels.Index(NewLag(24).String())
	assert.False(t, exists)
	assert.Equal(t, -1, idx)
}

func TestLabelsMatch(t *testing.T) {
	testData := map[string]struct {
		names []string
		err   error
	}{
		"exact": {
			names: []string{"hour", "dayofweek", "month", "year", "lag_1"},
		},
		"reordered": {
			names: []string{"dayofweek", "hour", "month", "year", "lag_1"},
			err:   ErrFeatureMismatch,
		},
		"missing": {
			names: []string{"hour", "dayofweek", "month", "year"},
			err:   ErrFeatureMismatch,
		},
		"unknown": {
			names: []string{"hour", "dayofweek", "month", "year", "lag_24"},
			err:   ErrFeatureMismatch,
		},
		"empty": {
			names: nil,
			err:   ErrFeatureMismatch,
		},
	}

	labels := DefaultLabels()
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			err := labels.Match(td.names)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLabelsNil(t *testing.T) {
	var labels *Labels
	assert.Equal(t, 0, labels.Len())
	assert.Empty(t, labels.Names())
	_, exists := labels.Index(NameHour)
	assert.False(t, exists)
	assert.ErrorIs(t, labels.Match([]string{NameHour}), ErrFeatureMismatch)
}
