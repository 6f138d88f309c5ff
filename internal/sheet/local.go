package sheet

import (
	"context"
	"encoding/csv"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"rollcall/internal/config"
)

// XLSX reads one worksheet of a local Excel export.
type XLSX struct {
	Path      string
	SheetName string
}

// Name returns the file and worksheet.
func (x *XLSX) Name() string {
	return x.Path + " / " + x.SheetName
}

// Fetch reads the worksheet's formatted cell values.
func (x *XLSX) Fetch(ctx context.Context) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DataSourceError{Source: config.SourceXLSX, Op: "open " + x.Path, Err: err}
	}
	f, err := excelize.OpenFile(x.Path)
	if err != nil {
		return nil, &DataSourceError{Source: config.SourceXLSX, Op: "open " + x.Path, Err: err}
	}
	defer f.Close()

	rows, err := f.GetRows(x.SheetName)
	if err != nil {
		return nil, &DataSourceError{Source: config.SourceXLSX, Op: "read worksheet " + x.SheetName, Err: err}
	}
	return FromValues(rows), nil
}

// CSV reads a local CSV export.
type CSV struct {
	Path string
}

// Name returns the file path.
func (c *CSV) Name() string {
	return c.Path
}

// Fetch parses the file. Rows may have different lengths.
func (c *CSV) Fetch(ctx context.Context) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, &DataSourceError{Source: config.SourceCSV, Op: "open " + c.Path, Err: err}
	}
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, &DataSourceError{Source: config.SourceCSV, Op: "open " + c.Path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, &DataSourceError{Source: config.SourceCSV, Op: "parse " + c.Path, Err: err}
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\ufeff")
	}
	return FromValues(records), nil
}
