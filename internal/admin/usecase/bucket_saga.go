package usecase

import (
	"context"
	"fmt"

	"kinto-admin/internal/admin/domain/action"
	"kinto-admin/internal/kinto"

	"go.uber.org/zap"
)

// CreateBucket creates a bucket and opens its edition page
func (c *Coordinator) CreateBucket(ctx context.Context, bid string, data kinto.Resource) {
	if bid == "" {
		bid = data.ID()
	}
	c.put(ctx, action.BucketBusyFlag(true))
	defer c.put(ctx, action.BucketBusyFlag(false))

	remote, err := c.client()
	if err == nil {
		_, err = remote.CreateBucket(ctx, bid, withoutKeys(data, "id", "last_modified"), nil)
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't create bucket.", err)
		return
	}
	c.log.Info("Bucket created", zap.String("bucket", bid))
	c.put(ctx, action.UpdatePath(fmt.Sprintf("/buckets/%s/edit", bid)))
	c.notifySuccess(ctx, "Bucket created.")
	c.ListBuckets(ctx)
}

// UpdateBucket replaces either the attributes or the permissions of a bucket
func (c *Coordinator) UpdateBucket(ctx context.Context, m action.Mutation) {
	c.put(ctx, action.BucketBusyFlag(true))
	defer c.put(ctx, action.BucketBusyFlag(false))

	var (
		resp    *kinto.ObjectResponse
		message string
	)
	remote, err := c.client()
	if err == nil {
		wo := safeWrite(m.LastModified)
		if m.IsPermissions() {
			resp, err = remote.SetBucketPermissions(ctx, m.Bucket, m.Permissions, wo)
			message = "Bucket permissions updated."
		} else {
			resp, err = remote.UpdateBucket(ctx, m.Bucket, withoutKeys(m.Data, "last_modified"), wo)
			message = "Bucket attributes updated."
		}
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't update bucket.", err)
		return
	}
	c.put(ctx, action.BucketLoadSucceeded(m.Bucket, objectOf(resp)))
	c.notifySuccess(ctx, message)
}

// DeleteBucket deletes a bucket and goes back home
func (c *Coordinator) DeleteBucket(ctx context.Context, bid string) {
	c.put(ctx, action.BucketBusyFlag(true))
	defer c.put(ctx, action.BucketBusyFlag(false))

	remote, err := c.client()
	if err == nil {
		err = remote.DeleteBucket(ctx, bid, kinto.WriteOptions{})
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't delete bucket.", err)
		return
	}
	c.log.Info("Bucket deleted", zap.String("bucket", bid))
	c.put(ctx, action.UpdatePath("/"))
	c.notifySuccess(ctx, "Bucket deleted.")
	c.ListBuckets(ctx)
}

// LoadBucket fetches a bucket attributes and permissions
func (c *Coordinator) LoadBucket(ctx context.Context, bid string) {
	c.put(ctx, action.BucketBusyFlag(true))
	defer c.put(ctx, action.BucketBusyFlag(false))

	var resp *kinto.ObjectResponse
	remote, err := c.client()
	if err == nil {
		resp, err = remote.GetBucket(ctx, bid)
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't load bucket.", err)
		return
	}
	c.put(ctx, action.BucketLoadSucceeded(bid, objectOf(resp)))
}

// ListBucketCollections fetches the first page of the collections of a bucket
func (c *Coordinator) ListBucketCollections(ctx context.Context, bid string) {
	c.put(ctx, action.BucketBusyFlag(true))
	defer c.put(ctx, action.BucketBusyFlag(false))

	var list *kinto.ListResponse
	remote, err := c.client()
	if err == nil {
		list, err = remote.ListCollections(ctx, bid, kinto.ListOptions{Sort: "-last_modified", Limit: c.pageSize()})
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't list collections.", err)
		return
	}
	c.put(ctx, action.BucketCollectionsSucceeded(pageOf(list, false)))
}

// ListBucketGroups fetches every group of a bucket
func (c *Coordinator) ListBucketGroups(ctx context.Context, bid string) {
	c.put(ctx, action.BucketBusyFlag(true))
	defer c.put(ctx, action.BucketBusyFlag(false))

	var list *kinto.ListResponse
	remote, err := c.client()
	if err == nil {
		list, err = remote.ListGroups(ctx, bid, kinto.ListOptions{Pages: kinto.AllPages})
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't list groups.", err)
		return
	}
	c.put(ctx, action.BucketGroupsSucceeded(list.Data))
}

// ListBucketHistory fetches the first page of a bucket history
func (c *Coordinator) ListBucketHistory(ctx context.Context, bid string, filters map[string]string) {
	if !c.state().Session.ServerInfo.HasCapability("history") {
		c.put(ctx, action.BucketHistorySucceeded(action.Page{Entries: []kinto.Resource{}}))
		c.notifyInfo(ctx, "History is not enabled on this server.")
		return
	}

	c.put(ctx, action.BucketBusyFlag(true))
	defer c.put(ctx, action.BucketBusyFlag(false))

	var list *kinto.ListResponse
	remote, err := c.client()
	if err == nil {
		list, err = remote.ListHistory(ctx, bid, kinto.ListOptions{Filters: filters, Limit: c.pageSize()})
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't list bucket history.", err)
		return
	}
	c.put(ctx, action.BucketHistorySucceeded(pageOf(list, false)))
}

// ListBucketNextHistory appends the next page of the current bucket history
func (c *Coordinator) ListBucketNextHistory(ctx context.Context) {
	next := c.state().Bucket.History.NextPage
	if next == "" {
		return
	}
	c.put(ctx, action.BucketBusyFlag(true))
	defer c.put(ctx, action.BucketBusyFlag(false))

	var list *kinto.ListResponse
	remote, err := c.client()
	if err == nil {
		list, err = remote.NextPage(ctx, next)
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't list bucket history.", err)
		return
	}
	c.put(ctx, action.BucketHistorySucceeded(pageOf(list, true)))
}
