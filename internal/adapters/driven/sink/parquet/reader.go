package parquet

import (
	"fmt"

	"github.com/apache/arrow/go/v11/parquet"
	"github.com/apache/arrow/go/v11/parquet/file"
	"github.com/apache/arrow/go/v11/parquet/schema"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

// FileSummary describes a written Parquet file.
type FileSummary struct {
	Path      string
	Columns   []string
	Rows      int64
	RowGroups int

	// NonString lists columns that are not BYTE_ARRAY with a String annotation.
	NonString []string
}

// Inspect reads the metadata of a Parquet file.
func Inspect(path string) (*FileSummary, error) {
	reader, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer reader.Close()

	sch := reader.MetaData().Schema
	summary := &FileSummary{
		Path:      path,
		Columns:   make([]string, sch.NumColumns()),
		Rows:      reader.NumRows(),
		RowGroups: reader.NumRowGroups(),
	}
	for i := 0; i < sch.NumColumns(); i++ {
		col := sch.Column(i)
		summary.Columns[i] = col.Name()
		if col.PhysicalType() != parquet.Types.ByteArray || !col.LogicalType().Equals(schema.StringLogicalType{}) {
			summary.NonString = append(summary.NonString, col.Name())
		}
	}
	return summary, nil
}

// ReadTable loads a whole Parquet file written by Sink.
func ReadTable(path string) (*domain.Table, error) {
	reader, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer reader.Close()

	sch := reader.MetaData().Schema
	table := &domain.Table{Columns: make([]string, sch.NumColumns())}
	for i := range table.Columns {
		table.Columns[i] = sch.Column(i).Name()
	}

	for rg := 0; rg < reader.NumRowGroups(); rg++ {
		rgr := reader.RowGroup(rg)
		n := rgr.NumRows()
		rows := make([][]string, n)
		for i := range rows {
			rows[i] = make([]string, len(table.Columns))
		}

		for col := range table.Columns {
			cr, err := rgr.Column(col)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", table.Columns[col], err)
			}
			br, ok := cr.(*file.ByteArrayColumnChunkReader)
			if !ok {
				return nil, fmt.Errorf("column %s: %w: %s", table.Columns[col], domain.ErrUnsupportedType, cr.Type())
			}

			values := make([]parquet.ByteArray, n)
			var total int64
			for total < n && br.HasNext() {
				read, _, err := br.ReadBatch(n-total, values[total:], nil, nil)
				if err != nil {
					return nil, fmt.Errorf("column %s: %w", table.Columns[col], err)
				}
				for i := total; i < total+read; i++ {
					rows[i][col] = string(values[i])
				}
				total += read
			}
			if total != n {
				return nil, fmt.Errorf("column %s: read %d of %d values", table.Columns[col], total, n)
			}
		}
		table.Rows = append(table.Rows, rows...)
	}
	return table, nil
}
