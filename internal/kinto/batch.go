package kinto

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/valyala/fasthttp"
)

// BatchRequest is one sub-request of POST /batch. Path is relative to the server root.
type BatchRequest struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Body    interface{}       `json:"body,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// BatchResponse is the answer to one sub-request
type BatchResponse struct {
	Status  int               `json:"status"`
	Path    string            `json:"path"`
	Body    json.RawMessage   `json:"body"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Err returns the ServerError of a failed sub-request
func (r BatchResponse) Err() error {
	if r.Status < 400 {
		return nil
	}
	return newServerError(r.Status, r.Body)
}

// Object decodes a single object body
func (r BatchResponse) Object() (*ObjectResponse, error) {
	if err := r.Err(); err != nil {
		return nil, err
	}
	return decodeObject(r.Body)
}

// List decodes a plural body
func (r BatchResponse) List() (*ListResponse, error) {
	if err := r.Err(); err != nil {
		return nil, err
	}
	list, err := decodeList(&response{body: r.Body})
	if err != nil {
		return nil, err
	}
	list.NextPage = r.Headers["Next-Page"]
	return list, nil
}

// Batch sends the requests in chunks of the server's batch_max_requests.
// Responses are returned in request order; sub-request failures are not errors.
func (c *Client) Batch(ctx context.Context, reqs []BatchRequest) ([]BatchResponse, error) {
	if len(reqs) == 0 {
		return []BatchResponse{}, nil
	}
	size := c.batchMaxRequests(ctx)

	out := make([]BatchResponse, 0, len(reqs))
	for start := 0; start < len(reqs); start += size {
		end := start + size
		if end > len(reqs) {
			end = len(reqs)
		}
		resp, err := c.execute(ctx, request{
			method: fasthttp.MethodPost,
			path:   batchPath(),
			body:   map[string]interface{}{"requests": reqs[start:end]},
		})
		if err != nil {
			return nil, err
		}
		var chunk struct {
			Responses []BatchResponse `json:"responses"`
		}
		if err := json.Unmarshal(resp.body, &chunk); err != nil {
			return nil, fmt.Errorf("decode batch: %w", err)
		}
		if len(chunk.Responses) != end-start {
			return nil, fmt.Errorf("batch: got %d responses for %d requests", len(chunk.Responses), end-start)
		}
		out = append(out, chunk.Responses...)
	}
	return out, nil
}

// BatchBuilder accumulates sub-requests
type BatchBuilder struct {
	requests []BatchRequest
}

// NewBatch starts an empty batch
func NewBatch() *BatchBuilder {
	return &BatchBuilder{}
}

// Requests returns the accumulated sub-requests
func (b *BatchBuilder) Requests() []BatchRequest {
	return b.requests
}

// Len returns the number of sub-requests
func (b *BatchBuilder) Len() int {
	return len(b.requests)
}

func (b *BatchBuilder) add(method, path string, body interface{}, headers map[string]string) *BatchBuilder {
	b.requests = append(b.requests, BatchRequest{Method: method, Path: path, Body: body, Headers: headers})
	return b
}

// ListCollections queues a collection listing
func (b *BatchBuilder) ListCollections(bid string, opts ListOptions) *BatchBuilder {
	path := collectionsPath(bid)
	if q := opts.query(); len(q) > 0 {
		path += "?" + q.Encode()
	}
	return b.add(http.MethodGet, path, nil, nil)
}

// CreateRecord queues a record creation
func (b *BatchBuilder) CreateRecord(bid, cid string, data Resource, perms Permissions) *BatchBuilder {
	body := objectBody{Data: data, Permissions: perms}
	if id := data.ID(); id != "" {
		return b.add(http.MethodPut, recordPath(bid, cid, id), body, WriteOptions{Safe: true}.headers())
	}
	return b.add(http.MethodPost, recordsPath(bid, cid), body, nil)
}

// UpdateRecord queues a record replacement
func (b *BatchBuilder) UpdateRecord(bid, cid, rid string, data Resource, wo WriteOptions) *BatchBuilder {
	return b.add(http.MethodPut, recordPath(bid, cid, rid), objectBody{Data: withID(data, rid)}, wo.headers())
}

// DeleteRecord queues a record deletion
func (b *BatchBuilder) DeleteRecord(bid, cid, rid string, wo WriteOptions) *BatchBuilder {
	return b.add(http.MethodDelete, recordPath(bid, cid, rid), nil, wo.headers())
}

// BatchFailure pairs a failed sub-request with its error
type BatchFailure struct {
	Path  string       `json:"path"`
	Sent  BatchRequest `json:"sent"`
	Error *ServerError `json:"-"`
}

// BatchResult groups batch responses by outcome
type BatchResult struct {
	Published []Resource
	Errors    []BatchFailure
	Skipped   []Resource
	Conflicts []BatchFailure
}

// AggregateBatch sorts responses into published, skipped (404), conflicts (412) and errors
func AggregateBatch(reqs []BatchRequest, resps []BatchResponse) BatchResult {
	result := BatchResult{
		Published: []Resource{},
		Errors:    []BatchFailure{},
		Skipped:   []Resource{},
		Conflicts: []BatchFailure{},
	}
	for i, resp := range resps {
		var sent BatchRequest
		if i < len(reqs) {
			sent = reqs[i]
		}
		switch {
		case resp.Status >= 200 && resp.Status < 400:
			obj, err := decodeObject(resp.Body)
			if err != nil {
				obj = &ObjectResponse{Data: Resource{}}
			}
			result.Published = append(result.Published, obj.Data)
		case resp.Status == http.StatusNotFound:
			skipped := Resource{"path": resp.Path}
			if se := newServerError(resp.Status, resp.Body); se.Details != nil {
				for k, v := range se.Details {
					skipped[k] = v
				}
			}
			result.Skipped = append(result.Skipped, skipped)
		case resp.Status == http.StatusPreconditionFailed:
			result.Conflicts = append(result.Conflicts, BatchFailure{Path: resp.Path, Sent: sent, Error: newServerError(resp.Status, resp.Body)})
		default:
			result.Errors = append(result.Errors, BatchFailure{Path: resp.Path, Sent: sent, Error: newServerError(resp.Status, resp.Body)})
		}
	}
	return result
}
