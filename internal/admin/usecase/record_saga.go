package usecase

import (
	"context"
	"fmt"

	"kinto-admin/internal/admin/domain/action"
	"kinto-admin/internal/kinto"

	"go.uber.org/zap"
)

// LoadRecord fetches a record data and permissions
func (c *Coordinator) LoadRecord(ctx context.Context, bid, cid, rid string) {
	c.put(ctx, action.RecordBusyFlag(true))
	defer c.put(ctx, action.RecordBusyFlag(false))

	var resp *kinto.ObjectResponse
	remote, err := c.client()
	if err == nil {
		resp, err = remote.GetRecord(ctx, bid, cid, rid)
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't load record.", err)
		return
	}
	c.put(ctx, action.RecordLoadSucceeded(objectOf(resp)))
}

// CreateRecord creates a record, uploading its attachment when one is given
func (c *Coordinator) CreateRecord(ctx context.Context, m action.Mutation) {
	c.put(ctx, action.RecordBusyFlag(true))
	defer c.put(ctx, action.RecordBusyFlag(false))

	remote, err := c.client()
	if err == nil {
		data := withoutKeys(m.Data, "last_modified")
		if m.Attachment != nil {
			rid := m.Record
			if rid == "" {
				rid = data.ID()
			}
			_, err = remote.AddAttachment(ctx, m.Bucket, m.Collection, rid, *m.Attachment, withoutKeys(data, "id"), m.Permissions)
		} else {
			_, err = remote.CreateRecord(ctx, m.Bucket, m.Collection, data, m.Permissions)
		}
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't create record.", err)
		return
	}
	c.put(ctx, action.UpdatePath(collectionPath(m.Bucket, m.Collection)))
	c.notifySuccess(ctx, "Record added.")
}

// UpdateRecord replaces the data, the attachment or the permissions of a record
func (c *Coordinator) UpdateRecord(ctx context.Context, m action.Mutation) {
	c.put(ctx, action.RecordBusyFlag(true))
	defer c.put(ctx, action.RecordBusyFlag(false))

	var (
		resp    *kinto.ObjectResponse
		message = "Record updated."
	)
	remote, err := c.client()
	if err == nil {
		wo := safeWrite(m.LastModified)
		switch {
		case m.IsPermissions():
			resp, err = remote.SetRecordPermissions(ctx, m.Bucket, m.Collection, m.Record, m.Permissions, wo)
			message = "Record permissions updated."
		case m.Attachment != nil:
			resp, err = remote.AddAttachment(ctx, m.Bucket, m.Collection, m.Record, *m.Attachment, withoutKeys(m.Data, "id", "last_modified", "attachment"), nil)
		default:
			resp, err = remote.UpdateRecord(ctx, m.Bucket, m.Collection, m.Record, m.Data, nil, wo)
		}
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't update record.", err)
		return
	}
	c.put(ctx, action.RecordLoadSucceeded(objectOf(resp)))
	c.put(ctx, action.UpdatePath(collectionPath(m.Bucket, m.Collection)))
	c.notifySuccess(ctx, message)
}

// DeleteRecord deletes a record and refreshes the records listing
func (c *Coordinator) DeleteRecord(ctx context.Context, m action.Mutation) {
	c.put(ctx, action.RecordBusyFlag(true))
	defer c.put(ctx, action.RecordBusyFlag(false))

	remote, err := c.client()
	if err == nil {
		err = remote.DeleteRecord(ctx, m.Bucket, m.Collection, m.Record, safeWrite(m.LastModified))
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't delete record.", err)
		return
	}
	c.log.Info("Record deleted", zap.String("bucket", m.Bucket), zap.String("collection", m.Collection), zap.String("record", m.Record))
	c.put(ctx, action.UpdatePath(collectionPath(m.Bucket, m.Collection)))
	c.notifySuccess(ctx, "Record deleted.")
	c.put(ctx, action.ListRecords(action.RecordsQuery{
		Target: action.Target{Bucket: m.Bucket, Collection: m.Collection},
		Sort:   c.state().Collection.CurrentSort,
	}))
}

// BulkCreateRecords creates many records in batch requests. Any failed
// sub-request makes the whole operation reported as failed.
func (c *Coordinator) BulkCreateRecords(ctx context.Context, bid, cid string, records []kinto.Resource) {
	c.put(ctx, action.CollectionBusyFlag(true))
	defer c.put(ctx, action.CollectionBusyFlag(false))

	batch := kinto.NewBatch()
	for _, r := range records {
		batch.CreateRecord(bid, cid, withoutKeys(r, "last_modified"), nil)
	}

	var responses []kinto.BatchResponse
	remote, err := c.client()
	if err == nil {
		responses, err = remote.Batch(ctx, batch.Requests())
	}
	if err != nil {
		c.notifyError(ctx, "Some records could not be created.", err)
		return
	}

	result := kinto.AggregateBatch(batch.Requests(), responses)
	failures := append(append([]kinto.BatchFailure{}, result.Errors...), result.Conflicts...)
	if len(failures) > 0 || len(result.Skipped) > 0 {
		details := make([]string, 0, len(failures)+len(result.Skipped))
		for _, f := range failures {
			details = append(details, fmt.Sprintf("%s: %s", f.Path, ErrorDetails(f.Error)[0]))
		}
		for _, s := range result.Skipped {
			details = append(details, fmt.Sprintf("%v: not found", s["path"]))
		}
		c.notifyErrorDetails(ctx, "Some records could not be created.", details)
		return
	}

	c.log.Info("Records created", zap.Int("count", len(result.Published)))
	c.put(ctx, action.UpdatePath(collectionPath(bid, cid)))
	c.notifySuccess(ctx, fmt.Sprintf("%d records created.", len(result.Published)))
}

// DeleteAttachment removes the file attached to a record and reloads it
func (c *Coordinator) DeleteAttachment(ctx context.Context, bid, cid, rid string) {
	c.put(ctx, action.RecordBusyFlag(true))
	defer c.put(ctx, action.RecordBusyFlag(false))

	var resp *kinto.ObjectResponse
	remote, err := c.client()
	if err == nil {
		err = remote.RemoveAttachment(ctx, bid, cid, rid)
	}
	if err == nil {
		resp, err = remote.GetRecord(ctx, bid, cid, rid)
	}
	if err != nil {
		c.notifyError(ctx, "Couldn't delete attachment.", err)
		return
	}
	c.put(ctx, action.RecordLoadSucceeded(objectOf(resp)))
	c.put(ctx, action.UpdatePath(fmt.Sprintf("%s/records/%s/attributes", collectionPath(bid, cid), rid)))
	c.notifySuccess(ctx, "Attachment deleted.")
}
