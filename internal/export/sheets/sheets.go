// Package sheets appends ledger operations to a Google Sheets journal.
package sheets

import (
	"context"
	"errors"
	"fmt"

	"kopilka/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Writer is what the export worker needs from the journal sink.
type Writer interface {
	AppendOperation(ctx context.Context, op core.Operation) error
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ Writer = (*Client)(nil)

// NewClient builds a Sheets client from service account credentials.
func NewClient(ctx context.Context, credentialsFile, spreadsheetID, sheetName string) (*Client, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if sheetName == "" {
		return nil, errors.New("missing sheet name")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsFile(credentialsFile),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// AppendOperation writes one journal row per item:
// date, kind, account, item, amount, category id, subcategory, operation id.
func (c *Client) AppendOperation(ctx context.Context, op core.Operation) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rows := make([][]any, 0, len(op.Items))
	for _, it := range op.Items {
		var categoryID any
		if it.CategoryID != nil {
			categoryID = *it.CategoryID
		}
		rows = append(rows, []any{
			op.CreatedAt.Format("2006-01-02"),
			string(op.Kind),
			string(op.AccountHint),
			it.Name,
			it.Amount.Rubles(),
			categoryID,
			it.Subcategory,
			op.ID,
		})
	}
	if len(rows) == 0 {
		rows = append(rows, []any{
			op.CreatedAt.Format("2006-01-02"),
			string(op.Kind),
			string(op.AccountHint),
			"",
			op.TotalAmount.Rubles(),
			nil,
			"",
			op.ID,
		})
	}

	rng := fmt.Sprintf("%s!A:H", c.sheetName)
	vr := &gsheet.ValueRange{Values: rows}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}
	return nil
}
