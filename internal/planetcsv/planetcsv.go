package planetcsv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"planethub/internal/intake"
	"planethub/pkg/models"
)

var Header = []string{
	"name", "image", "description",
	"temperature", "mass", "volume", "atmosphere", "satellites", "missions",
	"source", "wikiLink", "distance", "discovery",
	"origin", "id",
}

// Write writes planets in Header order. Satellites and missions are joined
// with ", " so the file can be imported again.
func Write(w io.Writer, planets []models.Planet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, p := range planets {
		d := p.Details
		if err := cw.Write([]string{
			p.Name, p.Image, p.Description,
			d.Temperature, d.Mass, d.Volume, d.Atmosphere,
			strings.Join(d.Satellites, ", "), strings.Join(d.Missions, ", "),
			d.Source, d.WikiLink, d.Distance, d.Discovery,
			string(p.Origin), p.ID,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Row is one data line of an import file. Line is 1-based and counts the header.
type Row struct {
	Line   int
	Fields intake.Fields
}

// Read parses an import file. Columns are matched by header name, case
// insensitively; unknown columns are ignored and missing ones read as "".
func Read(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}

		rows = append(rows, Row{Line: line, Fields: intake.Fields{
			Name:        valueAt(header, rec, "name"),
			Image:       valueAt(header, rec, "image"),
			Description: valueAt(header, rec, "description"),
			Temperature: valueAt(header, rec, "temperature"),
			Mass:        valueAt(header, rec, "mass"),
			Volume:      valueAt(header, rec, "volume"),
			Atmosphere:  valueAt(header, rec, "atmosphere"),
			Satellites:  valueAt(header, rec, "satellites"),
			Missions:    valueAt(header, rec, "missions"),
			Source:      valueAt(header, rec, "source"),
			WikiLink:    valueAt(header, rec, "wikilink"),
			Distance:    valueAt(header, rec, "distance"),
			Discovery:   valueAt(header, rec, "discovery"),
		}})
	}
	return rows, nil
}

type Submitter interface {
	Submit(ctx context.Context, fields intake.Fields) (models.Planet, error)
}

type Result struct {
	Imported int
	Skipped  []Skipped
}

type Skipped struct {
	Line    int
	Missing []string
}

// Import submits every row through sub. Rows failing validation are skipped
// and reported; any other error stops the import.
func Import(ctx context.Context, r io.Reader, sub Submitter, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	rows, err := Read(r)
	if err != nil {
		return Result{}, err
	}

	var res Result
	for _, row := range rows {
		_, err := sub.Submit(ctx, row.Fields)
		var verr *intake.ValidationError
		switch {
		case errors.As(err, &verr):
			logger.Warn("skipping invalid row", zap.Int("line", row.Line), zap.Strings("missing", verr.Missing))
			res.Skipped = append(res.Skipped, Skipped{Line: row.Line, Missing: verr.Missing})
		case err != nil:
			return res, fmt.Errorf("line %d: %w", row.Line, err)
		default:
			res.Imported++
		}
	}
	return res, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
