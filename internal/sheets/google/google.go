// Package google mirrors the ledger into a Google Sheets tab.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"ledgerbook/internal/core"
	"ledgerbook/internal/log"
)

// DefaultSheetName is used when Config.SheetName is empty.
const DefaultSheetName = "Ledger"

var header = []interface{}{"Title", "Amount", "Category", "Date"}

type Config struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsJSON takes precedence over CredentialsFile. With neither set,
	// the caller's options or Application Default Credentials apply.
	CredentialsJSON string
	CredentialsFile string
}

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *log.Logger
}

// NewExporter builds a Sheets service from cfg. Extra options are appended
// after the credential options.
func NewExporter(ctx context.Context, cfg Config, logger *log.Logger, opts ...goption.ClientOption) (*Exporter, error) {
	id := strings.TrimSpace(cfg.SpreadsheetID)
	if id == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheet := strings.TrimSpace(cfg.SheetName)
	if sheet == "" {
		sheet = DefaultSheetName
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentSheets)

	var clientOpts []goption.ClientOption
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		logger.InfoContext(ctx, "Using inline service account credentials")
		clientOpts = append(clientOpts, goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		logger.InfoContext(ctx, "Read service account credentials", "path", cfg.CredentialsFile)
		clientOpts = append(clientOpts, goption.WithCredentialsJSON(data))
	}
	clientOpts = append(clientOpts, goption.WithScopes(gsheet.SpreadsheetsScope))
	clientOpts = append(clientOpts, opts...)

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Exporter{svc: svc, spreadsheetID: id, sheet: sheet, logger: logger}, nil
}

func (e *Exporter) dataRange() string {
	return fmt.Sprintf("%s!A:D", e.sheet)
}

// Export replaces the sheet contents with a header row and one row per record
// in ledger order. Cells are written RAW so titles are never evaluated as
// formulas; amounts go out as exact decimal text.
func (e *Exporter) Export(ctx context.Context, records []core.ExpenseRecord) error {
	rng := e.dataRange()
	if _, err := e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}

	vr := &gsheet.ValueRange{Values: toRows(records)}
	_, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, fmt.Sprintf("%s!A1", e.sheet), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}

	e.logger.InfoContext(ctx, "Exported ledger",
		log.FieldOperation, log.OpExport,
		log.FieldCount, len(records),
		"sheet", e.sheet)
	return nil
}

// Save lets the exporter act as a worker.Sink.
func (e *Exporter) Save(ctx context.Context, records []core.ExpenseRecord) error {
	return e.Export(ctx, records)
}

// Records reads the sheet back. Rows that do not form a valid record are
// skipped.
func (e *Exporter) Records(ctx context.Context) ([]core.ExpenseRecord, error) {
	resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, e.dataRange()).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", e.dataRange(), err)
	}
	records, skipped := parseRows(resp.Values)
	if skipped > 0 {
		e.logger.WarnContext(ctx, "Skipped invalid sheet rows", log.FieldSkipped, skipped)
	}
	return records, nil
}

func toRows(records []core.ExpenseRecord) [][]interface{} {
	rows := make([][]interface{}, 0, len(records)+1)
	rows = append(rows, header)
	for _, r := range records {
		rows = append(rows, []interface{}{r.Title, r.Amount.String(), r.Category, r.Date})
	}
	return rows
}
