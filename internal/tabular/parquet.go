package tabular

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/vanshika/sectarget/internal/domain"
)

const parquetBatchSize = 4096

// ParquetColumns returns the top-level column names of the parquet file at path.
func ParquetColumns(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}

	fields := pf.Schema().Fields()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name()
	}
	return names, nil
}

// HasColumn reports whether name is among columns.
func HasColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}

// RequireColumns fails with domain.ErrSchema when any of required is absent.
func RequireColumns(source string, columns []string, required ...string) error {
	var missing []string
	for _, name := range required {
		if !HasColumn(columns, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s missing columns %v: %w", source, missing, domain.ErrSchema)
	}
	return nil
}

// ReadParquet reads every row of the parquet file at path into T. Columns of
// the file that T does not declare are not decoded.
func ReadParquet[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[T](f)
	defer reader.Close()

	rows := make([]T, 0, reader.NumRows())
	buf := make([]T, parquetBatchSize)
	for {
		n, err := reader.Read(buf)
		rows = append(rows, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet %s: %w", path, err)
		}
		if n == 0 {
			break
		}
	}
	return rows, nil
}
