// Package sheets implements the row sink on the Google Sheets API.
package sheets

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string // empty = application default credentials
	Logger          *slog.Logger
}

// Client implements domain.RowSink against one sheet of one spreadsheet.
type Client struct {
	svc           *sheetsapi.Service
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger
}

func New(ctx context.Context, cfg Config) (*Client, error) {
	opts := []option.ClientOption{option.WithScopes(sheetsapi.SpreadsheetsScope)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	svc, err := sheetsapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service init: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		logger:        cfg.Logger,
	}, nil
}

func (c *Client) ReadHeaderMap(ctx context.Context) (map[string]int, error) {
	values, err := c.readRange(ctx, c.sheetName+"!1:1")
	if err != nil {
		return nil, err
	}
	if len(values) == 0 || len(values[0]) == 0 {
		return nil, fmt.Errorf("sheet %s has an empty header row", c.sheetName)
	}
	header := make(map[string]int, len(values[0]))
	for i, cell := range values[0] {
		header[fmt.Sprint(cell)] = i
	}
	c.logger.Info("sheet header read", "sheet", c.sheetName, "columns", len(header))
	return header, nil
}

func (c *Client) AppendRow(ctx context.Context, values map[string]string, header map[string]int) error {
	row, err := LayoutRow(values, header)
	if err != nil {
		return err
	}
	body := &sheetsapi.ValueRange{Values: [][]interface{}{row}}
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.sheetName, body).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}
	return nil
}

func (c *Client) ReadRowsForCache(ctx context.Context) ([]map[string]string, error) {
	values, err := c.readRange(ctx, c.sheetName)
	if err != nil {
		return nil, err
	}
	if len(values) < 2 {
		return nil, nil
	}

	headers := make([]string, len(values[0]))
	for i, cell := range values[0] {
		headers[i] = fmt.Sprint(cell)
	}

	rows := make([]map[string]string, 0, len(values)-1)
	for _, rowValues := range values[1:] {
		row := make(map[string]string, len(headers))
		for i, name := range headers {
			if i < len(rowValues) {
				row[name] = fmt.Sprint(rowValues[i])
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c *Client) readRange(ctx context.Context, rangeName string) ([][]interface{}, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rangeName).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", rangeName, err)
	}
	return resp.Values, nil
}

// LayoutRow places each named value at its header position; unnamed
// columns stay blank. A value for a column missing from the header is an
// error, not silent loss.
func LayoutRow(values map[string]string, header map[string]int) ([]interface{}, error) {
	row := make([]interface{}, len(header))
	for i := range row {
		row[i] = ""
	}
	for name, value := range values {
		idx, ok := header[name]
		if !ok {
			return nil, fmt.Errorf("column %q not present in sheet header", name)
		}
		if idx < 0 || idx >= len(row) {
			return nil, fmt.Errorf("column %q has position %d outside the header row", name, idx)
		}
		row[idx] = value
	}
	return row, nil
}
