// Package artifact persists the trained demand model and its accuracy metric. Loading never
// falls back to retraining; a missing file is reported to the caller.
package artifact

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gridwatch/demandcast/train"
)

const (
	DefaultModelPath  = "model.json"
	DefaultMetricPath = "mae.txt"
)

var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrInvalidMetric    = errors.New("invalid metric value")
)

// SaveModel streams the model as JSON, replacing any existing file
func SaveModel(path string, m *train.Model) error {
	if m == nil {
		return train.ErrNoModel
	}
	err := writeFile(path, func(w io.Writer) error {
		if err := json.NewEncoder(w).Encode(m); err != nil {
			return fmt.Errorf("unable to encode model, %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to write model to %s, %w", path, err)
	}
	return nil
}

// LoadModel reads a model written by SaveModel and readies it for inference
func LoadModel(path string) (*train.Model, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m train.Model
	if err := json.NewDecoder(bufio.NewReader(f)).Decode(&m); err != nil {
		return nil, fmt.Errorf("unable to decode model from %s, %w", path, err)
	}
	return train.NewFromModel(&m)
}

// SaveMetric writes the mean absolute error as a plain decimal
func SaveMetric(path string, mae float64) error {
	err := writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, strconv.FormatFloat(mae, 'f', -1, 64))
		return err
	})
	if err != nil {
		return fmt.Errorf("unable to write metric to %s, %w", path, err)
	}
	return nil
}

// LoadMetric reads a metric written by SaveMetric
func LoadMetric(path string) (float64, error) {
	f, err := openFile(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return 0, fmt.Errorf("unable to read %s, %w", path, err)
	}
	mae, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		return 0, fmt.Errorf("unable to parse %s, %w", path, ErrInvalidMetric)
	}
	return mae, nil
}

// writeFile streams through a temporary file in the same directory so readers never see a
// partially written artifact.
func writeFile(path string, write func(w io.Writer) error) (err error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	bw := bufio.NewWriter(f)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s, %w", path, ErrArtifactNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open %s, %w", path, err)
	}
	return f, nil
}
