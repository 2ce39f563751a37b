package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gridwatch/demandcast"
	"github.com/gridwatch/demandcast/artifact"
	"github.com/gridwatch/demandcast/config"
	"github.com/gridwatch/demandcast/timedataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	ts := timedataset.GenerateHourlyT(time.Date(2018, 10, 1, 0, 0, 0, 0, time.UTC), 1100)
	y := timedataset.GenerateDemand(ts, timedataset.NewDefaultDemandProfile(), 2)

	var sb strings.Builder
	sb.WriteString("Datetime,DOM_MW\n")
	for i := range ts {
		fmt.Fprintf(&sb, "%s,%.1f\n", ts[i].Format(time.DateTime), y[i])
	}

	cfg := config.Default()
	cfg.DataPath = filepath.Join(dir, "history.csv")
	cfg.ModelPath = filepath.Join(dir, "model.json")
	cfg.MetricPath = filepath.Join(dir, "mae.txt")
	require.Nil(t, os.WriteFile(cfg.DataPath, []byte(sb.String()), 0o644))

	// missing artifacts fail without training
	_, err := load(cfg)
	assert.ErrorIs(t, err, artifact.ErrArtifactNotFound)

	opt := demandcast.NewDefaultOptions()
	opt.TrainOptions.ForestOptions.NumEstimators = 3
	trained, err := demandcast.New(opt)
	require.Nil(t, err)
	require.Nil(t, trained.Fit(ts, y))
	require.Nil(t, trained.Save(cfg.ModelPath, cfg.MetricPath))

	// an invalid holdout only matters when training
	cfg.HoldoutSize = 0
	f, err := load(cfg)
	require.Nil(t, err)
	assert.Equal(t, trained.MAE(), f.MAE())
	assert.Equal(t, 1100, f.History(2000).Len())
}
