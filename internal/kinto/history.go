package kinto

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/valyala/fasthttp"
)

// ListHistory lists the history entries of a bucket, newest first by default
func (c *Client) ListHistory(ctx context.Context, bid string, opts ListOptions) (*ListResponse, error) {
	if opts.Sort == "" {
		opts.Sort = "-last_modified"
	}
	return c.list(ctx, historyPath(bid), opts)
}

// ListPermissions lists every object the current user holds a permission on
func (c *Client) ListPermissions(ctx context.Context) ([]PermissionEntry, error) {
	resp, err := c.execute(ctx, request{method: fasthttp.MethodGet, path: permissionsPath()})
	if err != nil {
		return nil, err
	}

	var entries []PermissionEntry
	for {
		var page struct {
			Data []PermissionEntry `json:"data"`
		}
		if err := json.Unmarshal(resp.body, &page); err != nil {
			return nil, fmt.Errorf("decode permissions: %w", err)
		}
		entries = append(entries, page.Data...)
		if resp.nextPage == "" {
			return entries, nil
		}
		resp, err = c.execute(ctx, request{method: fasthttp.MethodGet, path: resp.nextPage})
		if err != nil {
			return nil, err
		}
	}
}
