package kinto

import (
	"context"

	"github.com/valyala/fasthttp"
)

// ListRecords lists the records of a collection
func (c *Client) ListRecords(ctx context.Context, bid, cid string, opts ListOptions) (*ListResponse, error) {
	return c.list(ctx, recordsPath(bid, cid), opts)
}

// GetTotalRecords returns the Total-Records count of a collection for the given filters
func (c *Client) GetTotalRecords(ctx context.Context, bid, cid string, filters map[string]string) (int, error) {
	resp, err := c.execute(ctx, request{
		method: fasthttp.MethodHead,
		path:   recordsPath(bid, cid),
		query:  ListOptions{Filters: filters}.query(),
	})
	if err != nil {
		return 0, err
	}
	return resp.totalRecords, nil
}

// GetRecord fetches a record with its permissions
func (c *Client) GetRecord(ctx context.Context, bid, cid, rid string) (*ObjectResponse, error) {
	return c.getObject(ctx, recordPath(bid, cid, rid))
}

// CreateRecord creates a record. When data carries an id the record is
// created at that id and the call fails if it exists.
func (c *Client) CreateRecord(ctx context.Context, bid, cid string, data Resource, perms Permissions) (*ObjectResponse, error) {
	body := objectBody{Data: data, Permissions: perms}
	if id := data.ID(); id != "" {
		return c.writeObject(ctx, fasthttp.MethodPut, recordPath(bid, cid, id), body, WriteOptions{Safe: true})
	}
	if body.Data == nil {
		body.Data = Resource{}
	}
	return c.writeObject(ctx, fasthttp.MethodPost, recordsPath(bid, cid), body, WriteOptions{})
}

// UpdateRecord replaces the record data, and its permissions when perms is not nil
func (c *Client) UpdateRecord(ctx context.Context, bid, cid, rid string, data Resource, perms Permissions, wo WriteOptions) (*ObjectResponse, error) {
	body := withID(data, rid)
	delete(body, "last_modified")
	return c.writeObject(ctx, fasthttp.MethodPut, recordPath(bid, cid, rid), objectBody{Data: body, Permissions: perms}, wo)
}

// SetRecordPermissions replaces the record permissions
func (c *Client) SetRecordPermissions(ctx context.Context, bid, cid, rid string, perms Permissions, wo WriteOptions) (*ObjectResponse, error) {
	return c.writeObject(ctx, fasthttp.MethodPatch, recordPath(bid, cid, rid), objectBody{Permissions: nonNilPermissions(perms)}, wo)
}

// DeleteRecord deletes a record
func (c *Client) DeleteRecord(ctx context.Context, bid, cid, rid string, wo WriteOptions) error {
	return c.deleteObject(ctx, recordPath(bid, cid, rid), wo)
}
