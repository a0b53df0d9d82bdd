package seriesfile

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gowave/domain/core"
	"gowave/domain/series"
	"gowave/internal"

	"github.com/xuri/excelize/v2"
)

// Table is a file read into a header row and string rows
type Table struct {
	Headers []string
	Rows    [][]string
}

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath, sheet string, logger *internal.Logger) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	if sheet == "" {
		sheet = "Sheet1"
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &DataReader{filePath: filePath, fileType: fileType, sheet: sheet, logger: logger}
}

// ReadData reads the file into a Table
func (r *DataReader) ReadData() (*Table, error) {
	r.logger.Debug("reading %s file %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, core.NewInvalidInputError("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var (
		rows [][]string
		err  error
	)
	start := time.Now()
	switch r.fileType {
	case "csv":
		rows, err = r.readCSV()
	default:
		rows, err = r.readExcel()
	}
	if err != nil {
		return nil, err
	}
	r.logger.Debug("%s read in %.2fms (%d rows)", r.filePath, float64(time.Since(start).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, core.NewInsufficientDataError("%s must have a header row and at least one data row", r.filePath)
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	return &Table{Headers: headers, Rows: rows[1:]}, nil
}

func (r *DataReader) readExcel() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(r.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.sheet, err)
	}
	return rows, nil
}

func (r *DataReader) readCSV() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// Load reads cfg.FilePath and returns one series per value column. Rows are
// sorted by date and trimmed to the window where every column has a value;
// interior blanks become NaN and are handled by cfg.Missing.
func Load(cfg Config, logger *internal.Logger) ([]*series.TimeSeries, error) {
	if cfg.DateColumn == "" {
		cfg.DateColumn = "date"
	}
	if cfg.DateLayout == "" {
		cfg.DateLayout = "2006-01-02"
	}
	reader := NewDataReader(cfg.FilePath, cfg.Sheet, logger)
	table, err := reader.ReadData()
	if err != nil {
		return nil, err
	}
	return FromTable(table, cfg)
}

type record struct {
	date   time.Time
	values []float64
}

// FromTable converts an already read table.
func FromTable(table *Table, cfg Config) ([]*series.TimeSeries, error) {
	dateIdx := indexOf(table.Headers, cfg.DateColumn)
	if dateIdx < 0 {
		return nil, core.NewInvalidInputError("date column %q not found in %v", cfg.DateColumn, table.Headers)
	}
	columns := cfg.Columns
	if len(columns) == 0 {
		for i, h := range table.Headers {
			if i != dateIdx && h != "" {
				columns = append(columns, h)
			}
		}
	}
	colIdx := make([]int, len(columns))
	for i, c := range columns {
		if colIdx[i] = indexOf(table.Headers, c); colIdx[i] < 0 {
			return nil, core.NewInvalidInputError("column %q not found", c)
		}
	}

	records := make([]record, 0, len(table.Rows))
	for line, row := range table.Rows {
		raw := cell(row, dateIdx)
		if raw == "" {
			continue
		}
		date, err := time.Parse(cfg.DateLayout, raw)
		if err != nil {
			return nil, core.NewInvalidInputError("row %d: date %q does not match layout %q", line+2, raw, cfg.DateLayout)
		}
		rec := record{date: date, values: make([]float64, len(colIdx))}
		for i, ci := range colIdx {
			v, err := parseValue(cell(row, ci))
			if err != nil {
				return nil, core.NewInvalidInputError("row %d column %q: %v", line+2, columns[i], err)
			}
			rec.values[i] = v
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].date.Before(records[j].date) })

	first, last := -1, -1
	for i, rec := range records {
		if complete(rec.values) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return nil, core.NewInsufficientDataError("no row has a value in every column")
	}
	records = records[first : last+1]

	stamps := make([]time.Time, len(records))
	for i, rec := range records {
		stamps[i] = rec.date
	}
	dt := cfg.DT
	if dt <= 0 {
		dt = InferDT(stamps)
	}

	out := make([]*series.TimeSeries, len(columns))
	for i, name := range columns {
		vals := make([]float64, len(records))
		for t, rec := range records {
			vals[t] = rec.values[i]
		}
		ts, err := series.New(name, vals, dt, series.WithTimestamps(stamps), series.WithMissingPolicy(cfg.Missing))
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		out[i] = ts
	}
	return out, nil
}

// InferDT maps the median spacing of stamps to a sampling interval in years:
// monthly, quarterly and annual data get exact fractions, anything else the
// spacing in days over 365.25.
func InferDT(stamps []time.Time) float64 {
	if len(stamps) < 2 {
		return 1
	}
	gaps := make([]float64, len(stamps)-1)
	for i := range gaps {
		gaps[i] = stamps[i+1].Sub(stamps[i]).Hours() / 24
	}
	sort.Float64s(gaps)
	days := gaps[len(gaps)/2]
	switch {
	case days >= 28 && days <= 31:
		return 1.0 / 12
	case days >= 89 && days <= 92:
		return 0.25
	case days >= 365 && days <= 366:
		return 1
	default:
		return days / 365.25
	}
}

func parseValue(s string) (float64, error) {
	switch strings.ToLower(s) {
	case "", ".", "na", "nan", "null":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
}

func complete(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func indexOf(headers []string, name string) int {
	for i, h := range headers {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}
