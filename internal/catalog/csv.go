package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/errors"
)

// CSVSource reads one column of a CSV file with a header row, such as the
// Title column of a Spotify/YouTube track export.
type CSVSource struct {
	Path   string
	Column string
}

// NewCSVSource returns a CSVSource; an empty column defaults to "Title".
func NewCSVSource(path, column string) *CSVSource {
	if column == "" {
		column = "Title"
	}
	return &CSVSource{Path: path, Column: column}
}

func (s *CSVSource) Name() string {
	return "csv:" + s.Path
}

// Titles opens the file and reads the configured column.
func (s *CSVSource) Titles(ctx context.Context) ([]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog %s: %w", s.Path, err)
	}
	defer f.Close()
	return ReadCSV(ctx, f, s.Column)
}

// ReadCSV reads column from CSV data whose first record is a header. Rows
// too short to hold the column produce an empty title, which Clean drops.
func ReadCSV(ctx context.Context, r io.Reader, column string) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: catalog has no header row", apperrors.ErrEmptyCatalog)
		}
		return nil, fmt.Errorf("reading catalog header: %w", err)
	}
	col := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")), column) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%w: column %q not in header %v", apperrors.ErrInvalidInput, column, header)
	}

	titles := make([]string, 0, 1024)
	for line := 2; ; line++ {
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading catalog line %d: %w", line, err)
		}
		if col < len(record) {
			titles = append(titles, record[col])
		} else {
			titles = append(titles, "")
		}
	}
	return titles, nil
}
