package sheet

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"rollcall/internal/config"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// GoogleSheets reads one worksheet of a Google spreadsheet, found by title
// through Drive unless its ID is known.
type GoogleSheets struct {
	title     string
	id        string
	sheetName string
	sheets    *sheets.Service
	drive     *drive.Service
}

// NewGoogleSheets authenticates with the service account in auth.
func NewGoogleSheets(ctx context.Context, auth config.AuthConfig, sc config.SpreadsheetConfig) (*GoogleSheets, error) {
	data, err := os.ReadFile(auth.CredentialsFile)
	if err != nil {
		return nil, &DataSourceError{Source: config.SourceGoogleSheets, Op: "read credentials", Err: err}
	}
	jwt, err := google.JWTConfigFromJSON(data, auth.Scopes...)
	if err != nil {
		return nil, &DataSourceError{Source: config.SourceGoogleSheets, Op: "parse credentials", Err: err}
	}
	return NewGoogleSheetsWithOptions(ctx, sc, option.WithHTTPClient(jwt.Client(ctx)))
}

// NewGoogleSheetsWithOptions builds the source from explicit client options.
func NewGoogleSheetsWithOptions(ctx context.Context, sc config.SpreadsheetConfig, opts ...option.ClientOption) (*GoogleSheets, error) {
	ss, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, &DataSourceError{Source: config.SourceGoogleSheets, Op: "sheets client", Err: err}
	}
	ds, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, &DataSourceError{Source: config.SourceGoogleSheets, Op: "drive client", Err: err}
	}
	return &GoogleSheets{
		title:     sc.Name,
		id:        sc.ID,
		sheetName: sc.SheetName,
		sheets:    ss,
		drive:     ds,
	}, nil
}

// Name returns the spreadsheet title and worksheet.
func (g *GoogleSheets) Name() string {
	name := g.title
	if name == "" {
		name = g.id
	}
	return name + " / " + g.sheetName
}

// Fetch downloads the formatted values of the worksheet.
func (g *GoogleSheets) Fetch(ctx context.Context) (*Table, error) {
	id := g.id
	if id == "" {
		found, err := g.lookup(ctx)
		if err != nil {
			return nil, err
		}
		id = found
	}

	resp, err := g.sheets.Spreadsheets.Values.Get(id, quoteSheet(g.sheetName)).
		ValueRenderOption("FORMATTED_VALUE").
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, &DataSourceError{Source: config.SourceGoogleSheets, Op: "read worksheet " + g.sheetName, Err: err}
	}

	values := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		values[i] = make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				values[i][j] = fmt.Sprint(cell)
			}
		}
	}
	return FromValues(values), nil
}

func (g *GoogleSheets) lookup(ctx context.Context) (string, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false", escapeQuery(g.title), spreadsheetMimeType)
	list, err := g.drive.Files.List().
		Q(q).
		Fields("files(id, name)").
		PageSize(10).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", &DataSourceError{Source: config.SourceGoogleSheets, Op: "find spreadsheet " + g.title, Err: err}
	}
	if len(list.Files) == 0 {
		return "", &DataSourceError{Source: config.SourceGoogleSheets, Op: "find spreadsheet " + g.title, Err: fmt.Errorf("spreadsheet not found or not shared with the service account")}
	}
	return list.Files[0].Id, nil
}

// quoteSheet turns a worksheet name into an A1 range covering the whole sheet.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
