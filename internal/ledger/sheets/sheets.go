// Package sheets implements the lead ledger on a Google Sheets spreadsheet.
// The spreadsheet is resolved by document name through the Drive API, the
// phone column is read in full for dedup lookups, and completed leads are
// appended one row at a time.
package sheets

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/cryverse/telegram-30leads-bot-new/internal/domain"
)

const (
	// phoneColumnRange covers the whole phone column (ledger column 5).
	phoneColumnRange = "E:E"

	// appendRange is the table extent rows are appended under.
	appendRange = "A:G"

	spreadsheetMIME = "application/vnd.google-apps.spreadsheet"
)

// Client is a domain.Ledger backed by one spreadsheet. It is safe for
// concurrent use; every method is a blocking network call bounded by the
// caller's context.
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
}

// New authenticates with the service-account JSON blob, resolves sheetName
// to a spreadsheet ID via the Drive API, and returns a ready client. All
// failures here are startup failures: the process should refuse to run
// without a reachable ledger document.
func New(ctx context.Context, credentialsJSON []byte, sheetName string) (*Client, error) {
	svc, err := sheetsapi.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(sheetsapi.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	driveSvc, err := drive.NewService(ctx,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(drive.DriveMetadataReadonlyScope),
	)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	id, err := resolveSpreadsheetID(ctx, driveSvc, sheetName)
	if err != nil {
		return nil, err
	}

	return &Client{svc: svc, spreadsheetID: id}, nil
}

// IsPhoneRegistered reads the full phone-column extent and looks for an
// exact string match. It reflects rows written by any prior session, not
// just this process; the column read and a later append are not atomic
// together.
func (c *Client) IsPhoneRegistered(ctx context.Context, phone string) (bool, error) {
	resp, err := c.svc.Spreadsheets.Values.
		Get(c.spreadsheetID, phoneColumnRange).
		Context(ctx).
		Do()
	if err != nil {
		return false, fmt.Errorf("read phone column: %w", err)
	}
	return containsPhone(resp.Values, phone), nil
}

// AppendLead appends the lead as one row in ledger column order. The Sheets
// append call is atomic per row: on error no partial row is written.
func (c *Client) AppendLead(ctx context.Context, lead domain.Lead) error {
	vr := &sheetsapi.ValueRange{Values: [][]interface{}{rowCells(lead)}}
	_, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, appendRange, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append lead row: %w", err)
	}
	return nil
}

// resolveSpreadsheetID finds the spreadsheet the service account can see
// under the given document name.
func resolveSpreadsheetID(ctx context.Context, svc *drive.Service, name string) (string, error) {
	query := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQueryValue(name), spreadsheetMIME)

	resp, err := svc.Files.List().
		Q(query).
		Fields("files(id, name)").
		PageSize(2).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("look up spreadsheet %q: %w", name, err)
	}
	if len(resp.Files) == 0 {
		return "", fmt.Errorf("spreadsheet %q not found or not shared with the service account", name)
	}
	return resp.Files[0].Id, nil
}

// containsPhone scans a values matrix for an exact match in the first cell
// of any row.
func containsPhone(values [][]interface{}, phone string) bool {
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		if cellString(row[0]) == phone {
			return true
		}
	}
	return false
}

// rowCells converts the lead's row projection into Sheets cells.
func rowCells(lead domain.Lead) []interface{} {
	row := lead.Row()
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}

// cellString renders a Sheets cell as a trimmed string. The API returns
// interface{} values; anything non-string is formatted with %v.
func cellString(v interface{}) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprintf("%v", v))
}

// escapeQueryValue escapes single quotes for a Drive query literal.
func escapeQueryValue(s string) string {
	return strings.ReplaceAll(s, `'`, `\'`)
}
