package usecase

import (
	"context"

	"kinto-admin/internal/admin/domain/action"
	"kinto-admin/internal/admin/domain/model"
	"kinto-admin/internal/kinto"

	"go.uber.org/zap"
)

// LoadCollection fetches a collection attributes and permissions
func (c *Coordinator) LoadCollection(ctx context.Context, bid, cid string) {
	c.put(ctx, action.CollectionBusyFlag(true))
	defer c.put(ctx, action.CollectionBusyFlag(false))

	var resp *kinto.ObjectResponse
	remote, err := c.client()
	if err == nil {
		resp, err = remote.GetCollection(ctx, bid, cid)
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't load collection.", err)
		return
	}
	c.put(ctx, action.CollectionLoadSucceeded(bid, cid, objectOf(resp)))
}

// CreateCollection creates a collection named after data["name"] (or its id)
func (c *Coordinator) CreateCollection(ctx context.Context, bid string, data kinto.Resource) {
	cid, _ := data["name"].(string)
	if cid == "" {
		cid = data.ID()
	}

	c.put(ctx, action.CollectionBusyFlag(true))
	defer c.put(ctx, action.CollectionBusyFlag(false))

	var resp *kinto.ObjectResponse
	remote, err := c.client()
	if err == nil {
		resp, err = remote.CreateCollection(ctx, bid, cid, withoutKeys(data, "name", "id", "last_modified"), nil)
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't create collection.", err)
		return
	}
	if cid == "" && resp != nil {
		cid = resp.Data.ID()
	}
	c.log.Info("Collection created", zap.String("bucket", bid), zap.String("collection", cid))
	c.put(ctx, action.UpdatePath(collectionPath(bid, cid)))
	c.notifySuccess(ctx, "Collection created.")
	c.ListBuckets(ctx)
}

// UpdateCollection replaces either the attributes or the permissions of a collection
func (c *Coordinator) UpdateCollection(ctx context.Context, m action.Mutation) {
	c.put(ctx, action.CollectionBusyFlag(true))
	defer c.put(ctx, action.CollectionBusyFlag(false))

	var (
		resp    *kinto.ObjectResponse
		message string
	)
	remote, err := c.client()
	if err == nil {
		wo := safeWrite(m.LastModified)
		if m.IsPermissions() {
			resp, err = remote.SetCollectionPermissions(ctx, m.Bucket, m.Collection, m.Permissions, wo)
			message = "Collection permissions updated."
		} else {
			resp, err = remote.UpdateCollection(ctx, m.Bucket, m.Collection, withoutKeys(m.Data, "last_modified"), wo)
			message = "Collection properties updated."
		}
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't update collection.", err)
		return
	}
	c.put(ctx, action.CollectionLoadSucceeded(m.Bucket, m.Collection, objectOf(resp)))
	c.notifySuccess(ctx, message)
}

// DeleteCollection deletes a collection and goes back home
func (c *Coordinator) DeleteCollection(ctx context.Context, bid, cid string) {
	c.put(ctx, action.CollectionBusyFlag(true))
	defer c.put(ctx, action.CollectionBusyFlag(false))

	remote, err := c.client()
	if err == nil {
		err = remote.DeleteCollection(ctx, bid, cid, kinto.WriteOptions{})
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't delete collection.", err)
		return
	}
	c.log.Info("Collection deleted", zap.String("bucket", bid), zap.String("collection", cid))
	c.put(ctx, action.UpdatePath(""))
	c.notifySuccess(ctx, "Collection deleted.")
	c.ListBuckets(ctx)
}

// ListRecords fetches the first page of records with the given sort, then
// keeps the ones matching the where expression.
func (c *Coordinator) ListRecords(ctx context.Context, q action.RecordsQuery) {
	sort := q.Sort
	if sort == "" {
		sort = c.state().Collection.CurrentSort
	}
	if sort == "" {
		sort = model.DefaultSort
	}

	c.put(ctx, action.CollectionBusyFlag(true))
	defer c.put(ctx, action.CollectionBusyFlag(false))

	var list *kinto.ListResponse
	remote, err := c.client()
	if err == nil {
		list, err = remote.ListRecords(ctx, q.Bucket, q.Collection, kinto.ListOptions{
			Sort:    sort,
			Limit:   c.pageSize(),
			Filters: q.Filters,
		})
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't list records.", err)
		return
	}
	records, err := c.filterRecords(q.Where, list.Data)
	if err != nil {
		c.notifyError(ctx, "Invalid record filter.", err)
		return
	}

	page := pageOf(list, false)
	page.Entries = records
	c.put(ctx, action.RecordsSucceeded(action.RecordsPage{Page: page, Sort: sort, Where: q.Where}))

	total, err := remote.GetTotalRecords(ctx, q.Bucket, q.Collection, q.Filters)
	if err != nil {
		c.log.Warn("Failed to count records", zap.Error(err))
		return
	}
	c.put(ctx, action.TotalRecords(total))
}

// ListNextRecords appends the next page of the current records listing
func (c *Coordinator) ListNextRecords(ctx context.Context) {
	current := c.state().Collection
	if current.NextRecords == "" {
		return
	}

	c.put(ctx, action.CollectionBusyFlag(true))
	defer c.put(ctx, action.CollectionBusyFlag(false))

	var list *kinto.ListResponse
	remote, err := c.client()
	if err == nil {
		list, err = remote.NextPage(ctx, current.NextRecords)
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't list records.", err)
		return
	}
	records, err := c.filterRecords(current.Where, list.Data)
	if err != nil {
		c.notifyError(ctx, "Invalid record filter.", err)
		return
	}

	page := pageOf(list, true)
	page.Entries = records
	c.put(ctx, action.RecordsSucceeded(action.RecordsPage{Page: page, Sort: current.CurrentSort, Where: current.Where}))
}

func (c *Coordinator) filterRecords(where string, records []kinto.Resource) ([]kinto.Resource, error) {
	if c.filter == nil || where == "" {
		return records, nil
	}
	return c.filter.Filter(where, records)
}
