package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Veraticus/estimatch/internal/common"
	"github.com/Veraticus/estimatch/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const reportSheet = "Matches"

// Writer exports matching results to a Google Sheets spreadsheet.
type Writer struct {
	api    *sheets.Service
	logger *slog.Logger
	config Config
}

// NewWriter validates config and connects to the Sheets API.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ts, err := tokenSource(ctx, config)
	if err != nil {
		return nil, err
	}

	api, err := sheets.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, ts)))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return newWriterWithService(api, config, logger), nil
}

func newWriterWithService(api *sheets.Service, config Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{api: api, config: config, logger: logger.With("component", "sheets")}
}

// tokenSource prefers a service account key and falls back to a refresh token.
func tokenSource(ctx context.Context, config Config) (oauth2.TokenSource, error) {
	if config.usesServiceAccount() {
		key, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("read service account key: %w", err)
		}
		jwt, err := google.JWTConfigFromJSON(key, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("parse service account key: %w", err)
		}
		return jwt.TokenSource(ctx), nil
	}

	oauth := &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{sheets.SpreadsheetsScope},
	}
	return oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: config.RefreshToken, TokenType: "Bearer"}), nil
}

// Export writes the report and returns the spreadsheet id. A configured
// spreadsheet is overwritten; otherwise a new one is created.
func (w *Writer) Export(ctx context.Context, report Report) (string, error) {
	w.logger.Info("Exporting run to sheets",
		"run_id", report.Result.RunID,
		"matches", len(report.Result.Matches))

	id, err := w.resolveSpreadsheet(ctx)
	if err != nil {
		return "", err
	}

	if _, err := w.api.Spreadsheets.Values.Clear(id, "A:Z", &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("failed to clear sheet: %w", err)
	}

	rows := prepareReportData(report)
	if err := w.retry(ctx, func() error { return w.writeRows(ctx, id, rows) }); err != nil {
		return "", fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting {
		err := w.retry(ctx, func() error {
			_, err := w.api.Spreadsheets.BatchUpdate(id, &sheets.BatchUpdateSpreadsheetRequest{
				Requests: formatRequests(len(rows)),
			}).Context(ctx).Do()
			return err
		})
		if err != nil {
			w.logger.Warn("Sheet formatting failed", "spreadsheet_id", id, "error", err)
		}
	}

	w.logger.Info("Sheets export finished", "spreadsheet_id", id, "rows", len(rows))
	return id, nil
}

func (w *Writer) retry(ctx context.Context, fn func() error) error {
	return common.WithRetry(ctx, fn, service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
	})
}

func (w *Writer) resolveSpreadsheet(ctx context.Context) (string, error) {
	if id := w.config.SpreadsheetID; id != "" {
		if _, err := w.api.Spreadsheets.Get(id).Context(ctx).Do(); err != nil {
			return "", fmt.Errorf("unable to access spreadsheet %s: %w", id, err)
		}
		return id, nil
	}

	created, err := w.api.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{{Properties: &sheets.SheetProperties{Title: reportSheet}}},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("Created spreadsheet", "id", created.SpreadsheetId, "url", created.SpreadsheetUrl)
	return created.SpreadsheetId, nil
}

// writeRows uploads rows in BatchSize chunks, one values update per chunk.
func (w *Writer) writeRows(ctx context.Context, id string, rows [][]any) error {
	for start := 0; start < len(rows); start += w.config.BatchSize {
		chunk := rows[start:min(start+w.config.BatchSize, len(rows))]
		cell := fmt.Sprintf("A%d", start+1)
		_, err := w.api.Spreadsheets.Values.Update(id, cell, &sheets.ValueRange{Values: chunk}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("write rows from %s: %w", cell, err)
		}
		w.logger.Debug("Wrote rows", "from", cell, "count", len(chunk))
	}
	return nil
}

func cells(rowFrom, rowTo, colFrom, colTo int) *sheets.GridRange {
	return &sheets.GridRange{
		StartRowIndex:    int64(rowFrom),
		EndRowIndex:      int64(rowTo),
		StartColumnIndex: int64(colFrom),
		EndColumnIndex:   int64(colTo),
	}
}

func repeat(r *sheets.GridRange, format *sheets.CellFormat, fields string) *sheets.Request {
	return &sheets.Request{RepeatCell: &sheets.RepeatCellRequest{
		Range:  r,
		Cell:   &sheets.CellData{UserEnteredFormat: format},
		Fields: fields,
	}}
}

// formatRequests styles the report title, bolds the id column, shows the
// money columns as currency and freezes the title row.
func formatRequests(rows int) []*sheets.Request {
	currency := &sheets.CellFormat{NumberFormat: &sheets.NumberFormat{Type: "CURRENCY", Pattern: "$#,##0.00"}}
	return []*sheets.Request{
		repeat(cells(0, 1, 0, 2),
			&sheets.CellFormat{TextFormat: &sheets.TextFormat{Bold: true, FontSize: 16}},
			"userEnteredFormat.textFormat"),
		repeat(cells(2, rows, 0, 1),
			&sheets.CellFormat{TextFormat: &sheets.TextFormat{Bold: true}},
			"userEnteredFormat.textFormat"),
		repeat(cells(0, rows, 3, 6), currency, "userEnteredFormat.numberFormat"),
		{AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
			Dimensions: &sheets.DimensionRange{Dimension: "COLUMNS", EndIndex: matchColumns},
		}},
		{UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
			Properties: &sheets.SheetProperties{GridProperties: &sheets.GridProperties{FrozenRowCount: 1}},
			Fields:     "gridProperties.frozenRowCount",
		}},
	}
}
