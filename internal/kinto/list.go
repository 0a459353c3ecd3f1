package kinto

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/valyala/fasthttp"
)

// AllPages makes a list call follow every Next-Page link
const AllPages = -1

// ListOptions are the query parameters of plural endpoints
type ListOptions struct {
	Sort    string
	Limit   int
	Since   string
	Before  string
	Fields  []string
	Filters map[string]string
	// Pages is the number of pages to fetch; 0 means one, AllPages means all.
	Pages int
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	for k, v := range o.Filters {
		q.Set(k, v)
	}
	if o.Sort != "" {
		q.Set("_sort", o.Sort)
	}
	if o.Limit > 0 {
		q.Set("_limit", strconv.Itoa(o.Limit))
	}
	if o.Since != "" {
		q.Set("_since", o.Since)
	}
	if o.Before != "" {
		q.Set("_before", o.Before)
	}
	if len(o.Fields) > 0 {
		q.Set("_fields", strings.Join(o.Fields, ","))
	}
	return q
}

func decodeList(resp *response) (*ListResponse, error) {
	var list ListResponse
	if err := json.Unmarshal(resp.body, &list); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if list.Data == nil {
		list.Data = []Resource{}
	}
	list.NextPage = resp.nextPage
	list.TotalRecords = resp.totalRecords
	return &list, nil
}

func (c *Client) list(ctx context.Context, path string, opts ListOptions) (*ListResponse, error) {
	resp, err := c.execute(ctx, request{method: fasthttp.MethodGet, path: path, query: opts.query()})
	if err != nil {
		return nil, err
	}
	list, err := decodeList(resp)
	if err != nil {
		return nil, err
	}

	for page := 1; list.HasNextPage() && (opts.Pages == AllPages || page < opts.Pages); page++ {
		next, err := c.NextPage(ctx, list.NextPage)
		if err != nil {
			return nil, err
		}
		list.Data = append(list.Data, next.Data...)
		list.NextPage = next.NextPage
	}
	return list, nil
}

// NextPage fetches the page behind a Next-Page URL
func (c *Client) NextPage(ctx context.Context, nextURL string) (*ListResponse, error) {
	if nextURL == "" {
		return &ListResponse{Data: []Resource{}}, nil
	}
	resp, err := c.execute(ctx, request{method: fasthttp.MethodGet, path: nextURL})
	if err != nil {
		return nil, err
	}
	return decodeList(resp)
}
