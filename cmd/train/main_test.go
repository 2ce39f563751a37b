package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gridwatch/demandcast/artifact"
	"github.com/gridwatch/demandcast/timedataset"
	"github.com/gridwatch/demandcast/train"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeData(t *testing.T, path string, n int) {
	t.Helper()
	ts := timedataset.GenerateHourlyT(time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC), n)
	y := timedataset.GenerateDemand(ts, timedataset.NewDefaultDemandProfile(), 8)

	var sb strings.Builder
	sb.WriteString("Datetime\tDOM_MW\n")
	for i := range ts {
		fmt.Fprintf(&sb, "%s\t%.1f\n", ts[i].Format(time.DateTime), y[i])
	}
	require.Nil(t, os.WriteFile(path, []byte(sb.String()), 0o644))
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data.csv")
	modelPath := filepath.Join(dir, "model.json")
	metricPath := filepath.Join(dir, "mae.txt")
	writeData(t, dataPath, 1150)

	err := run([]string{
		"-data", dataPath,
		"-model", modelPath,
		"-metric", metricPath,
		"-estimators", "4",
	})
	require.Nil(t, err)

	m, err := artifact.LoadModel(modelPath)
	require.Nil(t, err)
	assert.Len(t, m.Forest.Trees, 4)
	assert.Equal(t, 149, m.NumTrain)

	mae, err := artifact.LoadMetric(metricPath)
	require.Nil(t, err)
	assert.Equal(t, m.MAE, mae)
}

func TestRunInsufficientData(t *testing.T) {
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data.csv")
	modelPath := filepath.Join(dir, "model.json")
	writeData(t, dataPath, 1000)

	err := run([]string{"-data", dataPath, "-model", modelPath, "-metric", filepath.Join(dir, "mae.txt")})
	assert.ErrorIs(t, err, train.ErrInsufficientData)

	_, err = os.Stat(modelPath)
	assert.True(t, os.IsNotExist(err))
}
