package tabular

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Stdout is the path value that directs output to standard output.
const Stdout = "-"

// Write encodes header (when non-empty) and rows as TSV.
func Write(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if len(header) > 0 {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table to path through a temporary file that is renamed
// into place once fully written, so a failure never leaves a partial file.
// A path of "-" writes to stdout.
func WriteFile(path string, header []string, rows [][]string) error {
	if path == Stdout {
		w := bufio.NewWriter(os.Stdout)
		if err := Write(w, header, rows); err != nil {
			return err
		}
		return w.Flush()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "tmp-*.tsv")
	if err != nil {
		return fmt.Errorf("create temp tsv: %w", err)
	}
	w := bufio.NewWriter(tmp)
	if err := Write(w, header, rows); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp tsv: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename temp tsv: %w", err)
	}
	return nil
}

// FormatFloat renders f the way the downstream Python tooling prints floats:
// shortest round-trip digits, with a trailing ".0" on integral values.
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	if abs := math.Abs(f); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseFloat parses a numeric cell, accepting the NaN spellings pandas emits.
func ParseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "nan", "na", "null", "none":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
