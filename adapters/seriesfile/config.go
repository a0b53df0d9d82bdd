package seriesfile

import (
	"gowave/domain/series"
)

// Config describes how to turn a table of dated observations into series
type Config struct {
	FilePath   string `json:"file_path" validate:"required"`
	Sheet      string `json:"sheet"`       // XLSX only; defaults to Sheet1
	DateColumn string `json:"date_column"` // defaults to "date"
	DateLayout string `json:"date_layout"` // Go time layout; defaults to 2006-01-02
	// Columns to load; empty loads every column except the date column.
	Columns []string `json:"columns"`
	// DT overrides the sampling interval, in years. Zero infers it from the dates.
	DT      float64              `json:"dt"`
	Missing series.MissingPolicy `json:"missing"`
}

// DefaultConfig returns sensible defaults for path
func DefaultConfig(path string) Config {
	return Config{
		FilePath:   path,
		Sheet:      "Sheet1",
		DateColumn: "date",
		DateLayout: "2006-01-02",
	}
}
