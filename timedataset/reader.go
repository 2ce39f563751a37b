package timedataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	DefaultTimeColumn  = "Datetime"
	DefaultValueColumn = "DOM_MW"
)

var (
	ErrNoHeader        = errors.New("no header row")
	ErrMissingColumn   = errors.New("column not found in header")
	ErrInvalidTime     = errors.New("invalid timestamp")
	ErrInvalidValue    = errors.New("invalid demand value")
	ErrUnknownFileType = errors.New("unknown data file type")
	ErrNoSheets        = errors.New("workbook has no sheets")
)

// DefaultTimeLayouts are tried in order when parsing the time column
var DefaultTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02",
}

// ReadOptions configures how historical demand rows are located and parsed
type ReadOptions struct {
	TimeColumn  string
	ValueColumn string
	TimeLayouts []string

	// Location is used for timestamps without a zone. Defaults to UTC.
	Location *time.Location
}

// NewDefaultReadOptions reads the Datetime and DOM_MW columns
func NewDefaultReadOptions() *ReadOptions {
	return &ReadOptions{
		TimeColumn:  DefaultTimeColumn,
		ValueColumn: DefaultValueColumn,
		TimeLayouts: DefaultTimeLayouts,
		Location:    time.UTC,
	}
}

func (r *ReadOptions) Validate() *ReadOptions {
	if r == nil {
		return NewDefaultReadOptions()
	}
	out := *r
	if out.TimeColumn == "" {
		out.TimeColumn = DefaultTimeColumn
	}
	if out.ValueColumn == "" {
		out.ValueColumn = DefaultValueColumn
	}
	if len(out.TimeLayouts) == 0 {
		out.TimeLayouts = DefaultTimeLayouts
	}
	if out.Location == nil {
		out.Location = time.UTC
	}
	return &out
}

// ReadFile loads the demand series at path choosing the parser from the file extension.
// .xlsx files are read from the first sheet, .csv files are tab separated when the header
// line holds a tab and comma separated otherwise, and .tsv, .txt or extensionless files are
// tab separated.
func ReadFile(path string, opt *ReadOptions) ([]time.Time, []float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ReadXLSX(f, opt)
	case ".csv":
		// exports of this dataset are often tab separated despite the extension
		br := bufio.NewReader(f)
		comma, err := sniffDelimiter(br)
		if err != nil {
			return nil, nil, err
		}
		return readDelimited(br, comma, opt)
	case ".tsv", ".txt", "":
		return ReadTSV(f, opt)
	default:
		return nil, nil, fmt.Errorf("%s, %w", path, ErrUnknownFileType)
	}
}

// ReadTSV parses a tab separated file with a header row
func ReadTSV(r io.Reader, opt *ReadOptions) ([]time.Time, []float64, error) {
	return readDelimited(r, '\t', opt)
}

// ReadCSV parses a comma separated file with a header row
func ReadCSV(r io.Reader, opt *ReadOptions) ([]time.Time, []float64, error) {
	return readDelimited(r, ',', opt)
}

func readDelimited(r io.Reader, comma rune, opt *ReadOptions) ([]time.Time, []float64, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("unable to read delimited rows, %w", err)
	}
	return parseRows(rows, opt)
}

// ReadXLSX parses the first sheet of an excel workbook with a header row
func ReadXLSX(r io.Reader, opt *ReadOptions) ([]time.Time, []float64, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open workbook, %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, ErrNoSheets
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to read rows from sheet %s, %w", sheet, err)
	}
	return parseRows(rows, opt)
}

func parseRows(rows [][]string, opt *ReadOptions) ([]time.Time, []float64, error) {
	opt = opt.Validate()

	if len(rows) == 0 {
		return nil, nil, ErrNoHeader
	}
	header := rows[0]
	timeIdx := findColumn(header, opt.TimeColumn)
	if timeIdx < 0 {
		return nil, nil, fmt.Errorf("%s, %w", opt.TimeColumn, ErrMissingColumn)
	}
	valueIdx := findColumn(header, opt.ValueColumn)
	if valueIdx < 0 {
		// a two column export has exactly one candidate for demand
		if len(header) != 2 {
			return nil, nil, fmt.Errorf("%s, %w", opt.ValueColumn, ErrMissingColumn)
		}
		valueIdx = 1 - timeIdx
	}

	t := make([]time.Time, 0, len(rows)-1)
	y := make([]float64, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		line := i + 2
		if timeIdx >= len(row) || valueIdx >= len(row) {
			return nil, nil, fmt.Errorf("row %d has %d fields, %w", line, len(row), ErrMissingColumn)
		}
		ts, err := parseTime(strings.TrimSpace(row[timeIdx]), opt)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d, %w", line, err)
		}
		val, err := strconv.ParseFloat(strings.TrimSpace(row[valueIdx]), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d value %q, %w", line, row[valueIdx], ErrInvalidValue)
		}
		t = append(t, ts)
		y = append(y, val)
	}
	if len(y) == 0 {
		return nil, nil, ErrNoTrainingData
	}
	return t, y, nil
}

func parseTime(s string, opt *ReadOptions) (time.Time, error) {
	for _, layout := range opt.TimeLayouts {
		if ts, err := time.ParseInLocation(layout, s, opt.Location); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q, %w", s, ErrInvalidTime)
}

func findColumn(header []string, name string) int {
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")), name) {
			return i
		}
	}
	return -1
}

// sniffDelimiter picks tab or comma from the header line without consuming it. Only the
// first buffer of the file is inspected.
func sniffDelimiter(br *bufio.Reader) (rune, error) {
	head, err := br.Peek(br.Size())
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("unable to read header, %w", err)
	}
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	if bytes.IndexByte(head, '\t') >= 0 {
		return '\t', nil
	}
	return ',', nil
}

func isBlank(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
