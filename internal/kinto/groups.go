package kinto

import (
	"context"

	"github.com/valyala/fasthttp"
)

// ListGroups lists the groups of a bucket
func (c *Client) ListGroups(ctx context.Context, bid string, opts ListOptions) (*ListResponse, error) {
	return c.list(ctx, groupsPath(bid), opts)
}

// GetGroup fetches a group with its permissions
func (c *Client) GetGroup(ctx context.Context, bid, gid string) (*ObjectResponse, error) {
	return c.getObject(ctx, groupPath(bid, gid))
}

// CreateGroup creates a group with the given members
func (c *Client) CreateGroup(ctx context.Context, bid, gid string, members []string, data Resource, perms Permissions) (*ObjectResponse, error) {
	body := withID(data, gid)
	if members == nil {
		members = []string{}
	}
	body["members"] = members
	return c.writeObject(ctx, fasthttp.MethodPut, groupPath(bid, gid), objectBody{Data: body, Permissions: perms}, WriteOptions{Safe: true})
}

// UpdateGroup replaces the group attributes, members included
func (c *Client) UpdateGroup(ctx context.Context, bid, gid string, data Resource, wo WriteOptions) (*ObjectResponse, error) {
	body := withID(data, gid)
	if _, ok := body["members"]; !ok {
		body["members"] = []string{}
	}
	return c.writeObject(ctx, fasthttp.MethodPut, groupPath(bid, gid), objectBody{Data: body}, wo)
}

// SetGroupPermissions replaces the group permissions
func (c *Client) SetGroupPermissions(ctx context.Context, bid, gid string, perms Permissions, wo WriteOptions) (*ObjectResponse, error) {
	return c.writeObject(ctx, fasthttp.MethodPatch, groupPath(bid, gid), objectBody{Permissions: nonNilPermissions(perms)}, wo)
}

// DeleteGroup deletes a group
func (c *Client) DeleteGroup(ctx context.Context, bid, gid string, wo WriteOptions) error {
	return c.deleteObject(ctx, groupPath(bid, gid), wo)
}
