package train

import (
	"errors"
	"fmt"

	"github.com/gridwatch/demandcast/models"
)

// DefaultHoldoutSize is the number of most recent rows scored after fitting
const DefaultHoldoutSize = 1000

var ErrNonPositiveHoldout = errors.New("holdout size must be positive")

// Options configures a training run
type Options struct {
	// HoldoutSize is the number of trailing rows of the feature table kept out of the fit and
	// used to measure accuracy.
	HoldoutSize int `json:"holdout_size"`

	ForestOptions *models.ForestOptions `json:"forest_options"`
}

// NewDefaultOptions returns the standard training setup of 100 trees seeded with 42 and a
// 1000 row holdout.
func NewDefaultOptions() *Options {
	return &Options{
		HoldoutSize:   DefaultHoldoutSize,
		ForestOptions: models.NewDefaultForestOptions(),
	}
}

// Validate fills in unset options and checks the rest
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	if o.HoldoutSize <= 0 {
		return nil, fmt.Errorf("got %d, %w", o.HoldoutSize, ErrNonPositiveHoldout)
	}
	forestOpt, err := o.ForestOptions.Validate()
	if err != nil {
		return nil, fmt.Errorf("unable to validate forest options, %w", err)
	}
	o.ForestOptions = forestOpt
	return o, nil
}
