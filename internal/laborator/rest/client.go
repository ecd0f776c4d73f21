// Package rest implements the laborator Source against a PostgREST endpoint
// such as the one fronting a hosted Supabase database.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labdent/labexport/internal/laborator"
)

// Client issues filtered table reads.
type Client struct {
	baseURL    string
	apiKey     string
	schema     laborator.Schema
	httpClient *http.Client
}

// NewClient constructs a new client. baseURL is the project URL without the
// /rest/v1 suffix.
func NewClient(baseURL, apiKey string, schema laborator.Schema) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		schema:  schema,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithHTTPClient swaps the transport, used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// apiError is the PostgREST error body.
type apiError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *apiError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s (code %s, status %d)", msg, e.Code, e.Status)
	}
	return fmt.Sprintf("%s (status %d)", msg, e.Status)
}

type row map[string]json.RawMessage

func (c *Client) selectRows(ctx context.Context, table string, filters url.Values) ([]row, error) {
	q := url.Values{}
	q.Set("select", "*")
	for key, values := range filters {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	endpoint := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, url.PathEscape(table), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		apiErr := &apiError{Status: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		return nil, apiErr
	}
	var rows []row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode %s rows: %w", table, err)
	}
	return rows, nil
}

func inFilter(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "in.(" + strings.Join(parts, ",") + ")"
}

// FinalizedOrders returns finalized orders completed inside the range.
func (c *Client) FinalizedOrders(ctx context.Context, r laborator.DateRange) ([]laborator.Order, error) {
	o := c.schema.Orders
	filters := url.Values{}
	filters.Set(o.Status, "eq."+laborator.StatusFinalized)
	if r.Start != nil {
		filters.Add(o.CompletedAt, "gte."+r.Start.UTC().Format(time.RFC3339Nano))
	}
	if r.End != nil {
		filters.Add(o.CompletedAt, "lte."+r.End.UTC().Format(time.RFC3339Nano))
	}
	filters.Set("order", o.ID+".asc")
	rows, err := c.selectRows(ctx, o.Table, filters)
	if err != nil {
		return nil, &laborator.LookupError{Collection: o.Table, Err: err}
	}
	out := make([]laborator.Order, 0, len(rows))
	for _, rw := range rows {
		order := laborator.Order{
			ID:        rw.intCol(o.ID),
			DoctorID:  rw.intCol(o.DoctorID),
			PatientID: rw.intCol(o.PatientID),
			Status:    rw.strCol(o.Status),
		}
		if t, ok := rw.timeCol(o.CompletedAt); ok {
			order.CompletedAt = &t
		}
		out = append(out, order)
	}
	return out, nil
}

func (c *Client) Patients(ctx context.Context, ids []int64) ([]laborator.Patient, error) {
	p := c.schema.Patients
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := c.selectRows(ctx, p.Table, url.Values{p.ID: {inFilter(ids)}})
	if err != nil {
		return nil, &laborator.LookupError{Collection: p.Table, Err: err}
	}
	out := make([]laborator.Patient, 0, len(rows))
	for _, rw := range rows {
		out = append(out, laborator.Patient{ID: rw.intCol(p.ID), Name: rw.strCol(p.Name), DoctorID: rw.intCol(p.DoctorID)})
	}
	return out, nil
}

func (c *Client) Doctors(ctx context.Context, ids []int64) ([]laborator.Doctor, error) {
	d := c.schema.Doctors
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := c.selectRows(ctx, d.Table, url.Values{d.ID: {inFilter(ids)}})
	if err != nil {
		return nil, &laborator.LookupError{Collection: d.Table, Err: err}
	}
	out := make([]laborator.Doctor, 0, len(rows))
	for _, rw := range rows {
		out = append(out, laborator.Doctor{ID: rw.intCol(d.ID), Name: rw.strCol(d.Name)})
	}
	return out, nil
}

func (c *Client) OrderProducts(ctx context.Context, orderIDs []int64) ([]laborator.OrderProduct, error) {
	op := c.schema.OrderProducts
	if len(orderIDs) == 0 {
		return nil, nil
	}
	rows, err := c.selectRows(ctx, op.Table, url.Values{
		op.OrderID: {inFilter(orderIDs)},
		"order":    {op.ID + ".asc"},
	})
	if err != nil {
		return nil, &laborator.LookupError{Collection: op.Table, Err: err}
	}
	out := make([]laborator.OrderProduct, 0, len(rows))
	for _, rw := range rows {
		out = append(out, laborator.OrderProduct{
			ID:        rw.intCol(op.ID),
			OrderID:   rw.intCol(op.OrderID),
			ProductID: rw.intCol(op.ProductID),
			Quantity:  rw.floatCol(op.Quantity),
		})
	}
	return out, nil
}

func (c *Client) Products(ctx context.Context, ids []int64) ([]laborator.Product, error) {
	p := c.schema.Products
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := c.selectRows(ctx, p.Table, url.Values{p.ID: {inFilter(ids)}})
	if err != nil {
		return nil, &laborator.LookupError{Collection: p.Table, Err: err}
	}
	out := make([]laborator.Product, 0, len(rows))
	for _, rw := range rows {
		out = append(out, laborator.Product{ID: rw.intCol(p.ID), Name: rw.strCol(p.Name), Price: rw.floatCol(p.Price)})
	}
	return out, nil
}

// Numeric columns may arrive as JSON numbers or strings (numeric/bigint).
func (r row) floatCol(col string) float64 {
	raw, ok := r[col]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return 0
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		f, _ := n.Float64()
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f
	}
	return 0
}

// Ids are bigint; decode them as integers so values above 2^53 stay exact.
func (r row) intCol(col string) int64 {
	raw, ok := r[col]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return 0
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return i
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return i
		}
	}
	return int64(r.floatCol(col))
}

func (r row) strCol(col string) string {
	raw, ok := r[col]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func (r row) timeCol(col string) (time.Time, bool) {
	s := r.strCol(col)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
