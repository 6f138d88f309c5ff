package sheet

import (
	"context"
	"errors"
	"fmt"

	"rollcall/internal/config"
)

// ErrDataSource matches every data source failure via errors.Is.
var ErrDataSource = errors.New("data source error")

// DataSourceError reports a transport, auth or parse failure while fetching
// the table. It is fatal: the run stops before any delivery.
type DataSourceError struct {
	Source string // gsheets, xlsx, csv
	Op     string
	Err    error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("data source %s: %s: %v", e.Source, e.Op, e.Err)
}

func (e *DataSourceError) Unwrap() []error {
	return []error{ErrDataSource, e.Err}
}

// Source fetches the attendance table.
type Source interface {
	// Name describes the source for logs, e.g. the spreadsheet title.
	Name() string
	Fetch(ctx context.Context) (*Table, error)
}

// Open returns the source selected by cfg.Spreadsheet.Source.
func Open(ctx context.Context, cfg *config.Config) (Source, error) {
	sc := cfg.Spreadsheet
	switch sc.Source {
	case config.SourceGoogleSheets, "":
		return NewGoogleSheets(ctx, cfg.Auth, sc)
	case config.SourceXLSX:
		return &XLSX{Path: sc.File, SheetName: sc.SheetName}, nil
	case config.SourceCSV:
		return &CSV{Path: sc.File}, nil
	default:
		return nil, &DataSourceError{Source: sc.Source, Op: "open", Err: fmt.Errorf("unknown source kind")}
	}
}
