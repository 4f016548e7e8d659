// Package supabase implements the remote store client and identity provider
// against a hosted Supabase project (PostgREST + GoTrue).
package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/escolabr/escola/core"
	"github.com/escolabr/escola/store"
)

// sendFunc is swapped out in tests.
var sendFunc = rest.Send

// Client is a store.Client speaking PostgREST. It authenticates with the
// project service key; row-level security is not relied upon server-side.
type Client struct {
	baseURL string
	apiKey  string
}

var _ store.Client = (*Client)(nil) // interface compliance check

func NewClient(conf *core.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(conf.Supabase.URL, "/"),
		apiKey:  conf.Supabase.ServiceKey,
	}
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"apikey":        c.apiKey,
		"Authorization": "Bearer " + c.apiKey,
		"Content-Type":  "application/json",
		"Prefer":        "return=representation",
	}
}

func (c *Client) send(ctx context.Context, method rest.Method, table string, params map[string]string, body interface{}) ([]byte, error) {
	req := rest.Request{
		Method:      method,
		BaseURL:     c.baseURL + "/rest/v1/" + table,
		Headers:     c.headers(),
		QueryParams: params,
	}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "encoding request body")
		}
		req.Body = data
	}

	res, err := sendFunc(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, table)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, errors.Errorf("%s %s: status %d: %s", method, table, res.StatusCode, res.Body)
	}
	_ = ctx // rest.Send has no context support; requests run to completion
	return []byte(res.Body), nil
}

func (c *Client) Select(ctx context.Context, table string, filter store.Filter) ([]store.Row, error) {
	params := filterParams(filter)
	params["select"] = "*"
	data, err := c.send(ctx, rest.Get, table, params, nil)
	if err != nil {
		return nil, err
	}
	return decodeRows(data)
}

func (c *Client) Insert(ctx context.Context, table string, rows []store.Row) ([]store.Row, error) {
	data, err := c.send(ctx, rest.Post, table, nil, rows)
	if err != nil {
		return nil, err
	}
	return decodeRows(data)
}

func (c *Client) Update(ctx context.Context, table string, patch store.Row, filter store.Filter) error {
	_, err := c.send(ctx, rest.Patch, table, filterParams(filter), patch)
	return err
}

func (c *Client) Delete(ctx context.Context, table string, filter store.Filter) error {
	_, err := c.send(ctx, rest.Delete, table, filterParams(filter), nil)
	return err
}

func decodeRows(data []byte) ([]store.Row, error) {
	var rows []store.Row
	if len(data) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, errors.Wrap(err, "decoding rows")
	}
	return rows, nil
}

// filterParams renders a store.Filter as PostgREST horizontal-filter params.
func filterParams(filter store.Filter) map[string]string {
	params := make(map[string]string)
	for col, val := range filter.Eq {
		if isNull(val) {
			params[col] = "is.null"
			continue
		}
		params[col] = "eq." + literal(val)
	}
	for col, vals := range filter.In {
		quoted := make([]string, len(vals))
		for i, val := range vals {
			quoted[i] = `"` + val + `"`
		}
		sort.Strings(quoted)
		params[col] = "in.(" + strings.Join(quoted, ",") + ")"
	}
	return params
}

func isNull(v interface{}) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(*string); ok {
		return s == nil
	}
	return false
}

func literal(v interface{}) string {
	if s, ok := v.(*string); ok {
		return *s
	}
	return fmt.Sprint(v)
}
