package kinto

import (
	"context"

	"github.com/valyala/fasthttp"
)

// ListCollections lists the collections of a bucket
func (c *Client) ListCollections(ctx context.Context, bid string, opts ListOptions) (*ListResponse, error) {
	return c.list(ctx, collectionsPath(bid), opts)
}

// GetCollection fetches a collection with its permissions
func (c *Client) GetCollection(ctx context.Context, bid, cid string) (*ObjectResponse, error) {
	return c.getObject(ctx, collectionPath(bid, cid))
}

// CreateCollection creates a collection. An empty cid lets the server pick one.
func (c *Client) CreateCollection(ctx context.Context, bid, cid string, data Resource, perms Permissions) (*ObjectResponse, error) {
	body := objectBody{Data: withID(data, cid), Permissions: perms}
	if cid == "" {
		return c.writeObject(ctx, fasthttp.MethodPost, collectionsPath(bid), body, WriteOptions{})
	}
	return c.writeObject(ctx, fasthttp.MethodPut, collectionPath(bid, cid), body, WriteOptions{Safe: true})
}

// UpdateCollection replaces the collection attributes
func (c *Client) UpdateCollection(ctx context.Context, bid, cid string, data Resource, wo WriteOptions) (*ObjectResponse, error) {
	return c.writeObject(ctx, fasthttp.MethodPut, collectionPath(bid, cid), objectBody{Data: withID(data, cid)}, wo)
}

// SetCollectionPermissions replaces the collection permissions
func (c *Client) SetCollectionPermissions(ctx context.Context, bid, cid string, perms Permissions, wo WriteOptions) (*ObjectResponse, error) {
	return c.writeObject(ctx, fasthttp.MethodPatch, collectionPath(bid, cid), objectBody{Permissions: nonNilPermissions(perms)}, wo)
}

// DeleteCollection deletes a collection and its records
func (c *Client) DeleteCollection(ctx context.Context, bid, cid string, wo WriteOptions) error {
	return c.deleteObject(ctx, collectionPath(bid, cid), wo)
}
