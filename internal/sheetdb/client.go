// Package sheetdb is the transport to the remote spreadsheet API. It
// performs no retries: retry policy belongs to the caller, and for this
// application every retry is a manual user action.
package sheetdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/samhvw8/finance-tracking/internal/log"
	"github.com/samhvw8/finance-tracking/internal/payload"
)

// Sheet names on the remote spreadsheet. "Setup Finanace" carries a typo
// that exists in the spreadsheet itself; do not fix it here.
const (
	LedgerSheet     = "Giao Dịch"
	InvestmentSheet = "Giao Dich Investment"
	SetupSheet      = "Setup Finanace"
	AccountSheet    = "Investment Account"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *log.Logger
}

// New builds a client against the given API base URL. A nil httpClient
// falls back to http.DefaultClient and its default timeout behavior.
func New(baseURL string, tokens TokenSource, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		tokens:     tokens,
		logger:     logger,
	}
}

type createRequest struct {
	Data  []payload.Row `json:"data"`
	Sheet string        `json:"sheet"`
}

// CreateOne appends a single record to the named sheet.
func (c *Client) CreateOne(ctx context.Context, row payload.Row, sheet string) error {
	return c.CreateBatch(ctx, []payload.Row{row}, sheet)
}

// CreateBatch appends every record in one call; the API accepts multi-row
// batches natively, so there is no client-side chunking.
func (c *Client) CreateBatch(ctx context.Context, rows []payload.Row, sheet string) error {
	body, err := json.Marshal(createRequest{Data: rows, Sheet: sheet})
	if err != nil {
		return fmt.Errorf("marshal create request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if err := c.do(req); err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "Rows created on remote sheet", "sheet", sheet, "count", len(rows))
	return nil
}

// FetchAll returns every row of the named sheet.
func (c *Client) FetchAll(ctx context.Context, sheet string) ([]payload.Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"?sheet="+url.QueryEscape(sheet), nil)
	if err != nil {
		return nil, fmt.Errorf("build fetch request: %w", err)
	}

	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	// SheetDB hands back loosely-typed JSON objects; everything is
	// normalized to strings since sheet cells are text to this system.
	var raw []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode sheet rows: %w", err)
	}

	rows := make([]payload.Row, len(raw))
	for i, r := range raw {
		row := make(payload.Row, len(r))
		for k, v := range r {
			row[k] = stringify(v)
		}
		rows[i] = row
	}
	return rows, nil
}

// CreateLinkedPair writes an investment record and its linked main-ledger
// entry in sequence. The two creates are NOT atomic: when the ledger
// write fails after the investment write succeeded, the remote is left
// with an investment row lacking its cash-movement entry and the error
// says so. No automatic compensation is attempted.
func (c *Client) CreateLinkedPair(ctx context.Context, investment, ledger payload.Row, investmentSheet, ledgerSheet string) error {
	return c.CreateLinkedBatch(ctx, []payload.Row{investment}, []payload.Row{ledger}, investmentSheet, ledgerSheet)
}

// CreateLinkedBatch is the batch form of CreateLinkedPair.
func (c *Client) CreateLinkedBatch(ctx context.Context, investments, ledger []payload.Row, investmentSheet, ledgerSheet string) error {
	if err := c.CreateBatch(ctx, investments, investmentSheet); err != nil {
		return err
	}
	if err := c.CreateBatch(ctx, ledger, ledgerSheet); err != nil {
		return fmt.Errorf("%d investment row(s) were written but the linked ledger entries were not: %w",
			len(investments), err)
	}
	return nil
}

// do sends a request that needs no response body.
func (c *Client) do(req *http.Request) error {
	resp, err := c.send(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

// send attaches auth headers and performs the round trip.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	token, err := c.tokens.Token(req.Context())
	if err != nil {
		return nil, fmt.Errorf("resolve api token: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	return resp, nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &RemoteError{StatusCode: resp.StatusCode, Body: string(body)}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
