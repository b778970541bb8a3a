package supabase

import (
	"context"
	"strconv"
	"strings"
)

// Insert writes one row through PostgREST without reading it back.
func (c *Client) Insert(ctx context.Context, table string, row any) error {
	var apiErr apiError

	resp, err := c.rest.R().
		SetContext(ctx).
		SetPathParam("table", table).
		SetHeader("Prefer", "return=minimal").
		SetBody(row).
		SetError(&apiErr).
		Post("/rest/v1/{table}")
	if err != nil {
		return transportError("insert", err)
	}
	if resp.IsError() {
		return classifyRest("insert", resp, &apiErr)
	}
	return nil
}

// SelectEq runs GET /rest/v1/<table>?select=<cols>&<column>=eq.<value>&limit=<n>.
func (c *Client) SelectEq(ctx context.Context, table string, columns []string, column, value string, limit int) ([]map[string]any, error) {
	var rows []map[string]any
	var apiErr apiError

	req := c.rest.R().
		SetContext(ctx).
		SetPathParam("table", table).
		SetQueryParam(column, "eq."+value).
		SetResult(&rows).
		SetError(&apiErr)
	if len(columns) > 0 {
		req.SetQueryParam("select", strings.Join(columns, ","))
	}
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}

	resp, err := req.Get("/rest/v1/{table}")
	if err != nil {
		return nil, transportError("select", err)
	}
	if resp.IsError() {
		return nil, classifyRest("select", resp, &apiErr)
	}
	return rows, nil
}
