package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// LoadPairCSV reads a combined close file:
//
//	date,<symbolA>,<symbolB>
//
// The header row is optional; without one the symbols default to "A" and
// "B". Dates are YYYY-MM-DD or RFC3339. An empty, "NaN" or "null" cell is a
// missing price.
func LoadPairCSV(path string) (Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return Pair{}, err
	}
	defer f.Close()

	p, err := ReadPairCSV(f)
	if err != nil {
		return Pair{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return p, nil
}

// ReadPairCSV is LoadPairCSV over an io.Reader.
func ReadPairCSV(r io.Reader) (Pair, error) {
	rows, header, err := readRows(r, 3)
	if err != nil {
		return Pair{}, err
	}

	a := Series{Symbol: "A"}
	b := Series{Symbol: "B"}
	if header != nil {
		a.Symbol = strings.TrimSpace(header[1])
		b.Symbol = strings.TrimSpace(header[2])
	}

	for _, row := range rows {
		t, err := parseDate(row.cols[0])
		if err != nil {
			return Pair{}, fmt.Errorf("line %d: %w", row.line, err)
		}
		pa, err := parsePrice(row.cols[1])
		if err != nil {
			return Pair{}, fmt.Errorf("line %d: %w", row.line, err)
		}
		pb, err := parsePrice(row.cols[2])
		if err != nil {
			return Pair{}, fmt.Errorf("line %d: %w", row.line, err)
		}
		a.Points = append(a.Points, Point{Date: t, Price: pa})
		b.Points = append(b.Points, Point{Date: t, Price: pb})
	}

	return NewPair(a, b)
}

// LoadSeriesCSV reads a single-instrument file of date,price rows.
func LoadSeriesCSV(path, symbol string) (Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return Series{}, err
	}
	defer f.Close()

	s, err := ReadSeriesCSV(f, symbol)
	if err != nil {
		return Series{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return s, nil
}

// ReadSeriesCSV is LoadSeriesCSV over an io.Reader.
func ReadSeriesCSV(r io.Reader, symbol string) (Series, error) {
	rows, _, err := readRows(r, 2)
	if err != nil {
		return Series{}, err
	}

	s := Series{Symbol: symbol}
	for _, row := range rows {
		t, err := parseDate(row.cols[0])
		if err != nil {
			return Series{}, fmt.Errorf("line %d: %w", row.line, err)
		}
		p, err := parsePrice(row.cols[1])
		if err != nil {
			return Series{}, fmt.Errorf("line %d: %w", row.line, err)
		}
		s.Points = append(s.Points, Point{Date: t, Price: p})
	}
	if err := s.Validate(); err != nil {
		return Series{}, err
	}
	return s, nil
}

// WritePairCSV writes p in the format read by ReadPairCSV.
func WritePairCSV(w io.Writer, p Pair) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", p.A.Symbol, p.B.Symbol}); err != nil {
		return err
	}
	for i := range p.A.Points {
		if err := cw.Write([]string{
			p.Date(i).Format(DateLayout),
			formatPrice(p.A.Points[i].Price),
			formatPrice(p.B.Points[i].Price),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type csvRow struct {
	line int
	cols []string
}

// readRows returns data rows with at least minCols columns. A first row
// whose first cell is "date" is returned separately as the header.
func readRows(r io.Reader, minCols int) ([]csvRow, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		rows   []csvRow
		header []string
		line   int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		line++
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(rec[0]), "date") {
			if len(rec) < minCols {
				return nil, nil, fmt.Errorf("header needs %d columns, got %d", minCols, len(rec))
			}
			header = rec
			continue
		}
		if len(rec) < minCols {
			return nil, nil, fmt.Errorf("line %d: need %d columns, got %d", line, minCols, len(rec))
		}
		rows = append(rows, csvRow{line: line, cols: rec})
	}
	return rows, header, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q", s)
	}
	return t.UTC(), nil
}

func parsePrice(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "null", "na":
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad price %q: %w", s, err)
	}
	return v, nil
}

func formatPrice(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
