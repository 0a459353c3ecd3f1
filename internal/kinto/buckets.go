package kinto

import (
	"context"

	"github.com/valyala/fasthttp"
)

// ListBuckets lists the buckets readable by the current user
func (c *Client) ListBuckets(ctx context.Context, opts ListOptions) (*ListResponse, error) {
	return c.list(ctx, bucketsPath(), opts)
}

// GetBucket fetches a bucket with its permissions
func (c *Client) GetBucket(ctx context.Context, bid string) (*ObjectResponse, error) {
	return c.getObject(ctx, bucketPath(bid))
}

// CreateBucket creates a bucket, failing if it already exists
func (c *Client) CreateBucket(ctx context.Context, bid string, data Resource, perms Permissions) (*ObjectResponse, error) {
	return c.writeObject(ctx, fasthttp.MethodPut, bucketPath(bid), objectBody{Data: withID(data, bid), Permissions: perms}, WriteOptions{Safe: true})
}

// UpdateBucket replaces the bucket attributes
func (c *Client) UpdateBucket(ctx context.Context, bid string, data Resource, wo WriteOptions) (*ObjectResponse, error) {
	return c.writeObject(ctx, fasthttp.MethodPut, bucketPath(bid), objectBody{Data: withID(data, bid)}, wo)
}

// SetBucketPermissions replaces the bucket permissions, leaving attributes untouched
func (c *Client) SetBucketPermissions(ctx context.Context, bid string, perms Permissions, wo WriteOptions) (*ObjectResponse, error) {
	return c.writeObject(ctx, fasthttp.MethodPatch, bucketPath(bid), objectBody{Permissions: nonNilPermissions(perms)}, wo)
}

// DeleteBucket deletes a bucket and everything it contains
func (c *Client) DeleteBucket(ctx context.Context, bid string, wo WriteOptions) error {
	return c.deleteObject(ctx, bucketPath(bid), wo)
}

func withID(data Resource, id string) Resource {
	out := Resource{}
	for k, v := range data {
		out[k] = v
	}
	if id != "" {
		out["id"] = id
	}
	return out
}

func nonNilPermissions(p Permissions) Permissions {
	if p == nil {
		return Permissions{}
	}
	return p
}
