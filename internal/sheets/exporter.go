// Package sheets mirrors transactions to a Google Sheets export sheet. One
// transaction is one row keyed by transaction id in column A.
package sheets

import (
	"context"
	"fmt"
	"strconv"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"tally/internal/core"
)

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

func NewExporter(ctx context.Context, spreadsheetID, sheetName, credentialsFile string) (*Exporter, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("missing spreadsheet id")
	}

	var opts []goption.ClientOption
	if credentialsFile != "" {
		opts = append(opts, goption.WithCredentialsFile(credentialsFile))
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// AppendTransaction writes the transaction as a new row. An existing row with
// the same id is overwritten in place, so re-syncs do not duplicate.
func (e *Exporter) AppendTransaction(ctx context.Context, t *core.Transaction) error {
	row := []any{
		strconv.FormatInt(t.ID, 10),
		t.Date.Format("2006-01-02"),
		t.Description,
		t.Amount.String(),
		string(t.Currency),
		string(t.Category),
		string(t.Status),
		string(t.Type),
	}

	if rowNum, err := e.findRow(ctx, t.ID); err != nil {
		return err
	} else if rowNum > 0 {
		rng := fmt.Sprintf("%s!A%d:H%d", e.sheetName, rowNum, rowNum)
		_, err := e.svc.Spreadsheets.Values.Update(e.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{row}}).
			ValueInputOption("USER_ENTERED").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update row %d in sheet %s: %w", rowNum, e.sheetName, err)
		}
		return nil
	}

	rng := fmt.Sprintf("%s!A:H", e.sheetName)
	_, err := e.svc.Spreadsheets.Values.Append(e.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{row}}).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", e.sheetName, err)
	}
	return nil
}

// RemoveTransaction clears the row holding the transaction id. A missing row
// is not an error: the delete may race the sync that would have written it.
func (e *Exporter) RemoveTransaction(ctx context.Context, id int64) error {
	rowNum, err := e.findRow(ctx, id)
	if err != nil {
		return err
	}
	if rowNum == 0 {
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:H%d", e.sheetName, rowNum, rowNum)
	_, err = e.svc.Spreadsheets.Values.Clear(e.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear row %d in sheet %s: %w", rowNum, e.sheetName, err)
	}
	return nil
}

// findRow scans the id column for the transaction, returning the 1-based row
// number or 0 when absent.
func (e *Exporter) findRow(ctx context.Context, id int64) (int, error) {
	rng := fmt.Sprintf("%s!A:A", e.sheetName)
	resp, err := e.svc.Spreadsheets.Values.Get(e.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read id column of sheet %s: %w", e.sheetName, err)
	}

	want := strconv.FormatInt(id, 10)
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if cell, ok := row[0].(string); ok && cell == want {
			return i + 1, nil
		}
	}
	return 0, nil
}
