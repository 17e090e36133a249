// Package dataset loads historical option-chain snapshot datasets from
// CSV files into rows the backtest engine can consume.
package dataset

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	apperrors "option-backtester/internal/errors"
	"option-backtester/internal/models"
)

// Number is a float64 that tolerates the formatting found in NSE
// option chain downloads: thousands separators, "-", "N/A" and empty
// cells. Absent values decode to zero.
type Number float64

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (n *Number) UnmarshalCSV(s string) error {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	switch cleaned {
	case "", "-", "N/A", "NA":
		*n = 0
		return nil
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return err
	}
	*n = Number(value)
	return nil
}

// timestampFormats are tried in order when parsing row timestamps.
var timestampFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02-Jan-2006 15:04:05",
	"02/01/2006 15:04:05",
	"2006-01-02",
}

// parseTimestamp parses a timestamp using the known snapshot formats.
func parseTimestamp(s string) (time.Time, error) {
	trimmed := strings.TrimSpace(s)
	var lastErr error
	for _, format := range timestampFormats {
		t, err := time.Parse(format, trimmed)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// record is the raw CSV row shape. Chain columns are optional; files
// with only timestamp and spot load fine.
type record struct {
	Timestamp string `csv:"timestamp"`
	Spot      Number `csv:"spot"`
	CallOI    Number `csv:"ce_oi"`
	PutOI     Number `csv:"pe_oi"`
	CallIV    Number `csv:"ce_iv"`
	PutIV     Number `csv:"pe_iv"`
	CallLTP   Number `csv:"ce_ltp"`
	PutLTP    Number `csv:"pe_ltp"`
}

// Load reads and validates a CSV dataset from disk.
func Load(path string) ([]models.ChainRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperrors.NewDatasetError(path, 0, "open failed", err)
	}
	defer f.Close()

	return Read(f, path)
}

// Read reads and validates a CSV dataset from r. The path argument is
// used only for error reporting. Every row must carry a parseable
// timestamp and a positive spot; a malformed dataset is rejected whole
// rather than partially loaded.
func Read(r io.Reader, path string) ([]models.ChainRow, error) {
	var records []record
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, apperrors.NewDatasetError(path, 0, "parse failed", err)
	}

	if len(records) == 0 {
		return nil, apperrors.NewDatasetError(path, 0, "no data rows", apperrors.ErrEmptyDataset)
	}

	rows := make([]models.ChainRow, 0, len(records))
	for i, rec := range records {
		timestamp, err := parseTimestamp(rec.Timestamp)
		if err != nil {
			return nil, apperrors.NewDatasetError(path, i+1, "bad timestamp "+strconv.Quote(rec.Timestamp), apperrors.ErrMalformedRow)
		}
		if rec.Spot <= 0 {
			return nil, apperrors.NewDatasetError(path, i+1, "spot must be positive", apperrors.ErrMalformedRow)
		}

		rows = append(rows, models.ChainRow{
			Timestamp: timestamp,
			Spot:      float64(rec.Spot),
			CallOI:    int64(rec.CallOI),
			PutOI:     int64(rec.PutOI),
			CallIV:    float64(rec.CallIV),
			PutIV:     float64(rec.PutIV),
			CallLTP:   float64(rec.CallLTP),
			PutLTP:    float64(rec.PutLTP),
		})
	}

	return rows, nil
}
