package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// ============================================================
// HTTP helpers for GET, POST, PATCH
// ============================================================

func (c *Client) doGet(ctx context.Context, path string, out any) (bool, error) {
	body, err := c.doRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return false, err
	}
	if body == nil || string(body) == "[]" {
		return false, nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}

func (c *Client) doPost(ctx context.Context, table string, row any) ([]byte, error) {
	return c.doRequest(ctx, http.MethodPost, table, row, "return=representation")
}

// doUpsert inserts row or merges it into the existing row on conflict.
func (c *Client) doUpsert(ctx context.Context, table, conflictColumn string, row any) error {
	path := fmt.Sprintf("%s?on_conflict=%s", table, conflictColumn)
	_, err := c.doRequest(ctx, http.MethodPost, path, row, "resolution=merge-duplicates,return=minimal")
	return err
}

func (c *Client) doPatch(ctx context.Context, path string, data map[string]any) error {
	_, err := c.doRequest(ctx, http.MethodPatch, path, data, "return=minimal")
	return err
}

// eq builds a PostgREST equality filter with an escaped value.
func eq(column, value string) string {
	return column + "=eq." + url.QueryEscape(value)
}

func readBody(resp *http.Response) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
