package usecase

import (
	"context"
	"fmt"

	"kinto-admin/internal/admin/domain/action"
	authmodel "kinto-admin/internal/auth/domain/model"
	apperrors "kinto-admin/internal/shared/errors"
)

// Saga handles one request action
type Saga func(ctx context.Context, a action.Action) error

func invalidPayload(a action.Action) error {
	return apperrors.NewValidationError(fmt.Sprintf("Invalid payload for %s", a.Type)).
		WithDetail("payload", fmt.Sprintf("%T", a.Payload))
}

func withAuth(run func(context.Context, authmodel.AuthData)) Saga {
	return func(ctx context.Context, a action.Action) error {
		auth, ok := a.Payload.(authmodel.AuthData)
		if !ok {
			return invalidPayload(a)
		}
		run(ctx, auth)
		return nil
	}
}

func withTarget(run func(context.Context, action.Target)) Saga {
	return func(ctx context.Context, a action.Action) error {
		t, ok := a.Payload.(action.Target)
		if !ok {
			return invalidPayload(a)
		}
		run(ctx, t)
		return nil
	}
}

func withMutation(run func(context.Context, action.Mutation)) Saga {
	return func(ctx context.Context, a action.Action) error {
		m, ok := a.Payload.(action.Mutation)
		if !ok {
			return invalidPayload(a)
		}
		run(ctx, m)
		return nil
	}
}

func withoutPayload(run func(context.Context)) Saga {
	return func(ctx context.Context, a action.Action) error {
		run(ctx)
		return nil
	}
}

// Sagas maps each request action type to the saga handling it
func (c *Coordinator) Sagas() map[action.Type]Saga {
	return map[action.Type]Saga{
		action.SessionSetupRequest:      withAuth(c.SetupSession),
		action.SessionServerInfoRequest: withAuth(c.GetServerInfo),
		action.SessionLogoutRequest:     withoutPayload(c.Logout),
		action.SessionBucketsRequest:    withoutPayload(c.ListBuckets),

		action.BucketCreateRequest: withMutation(func(ctx context.Context, m action.Mutation) {
			c.CreateBucket(ctx, m.Bucket, m.Data)
		}),
		action.BucketUpdateRequest: withMutation(c.UpdateBucket),
		action.BucketDeleteRequest: withTarget(func(ctx context.Context, t action.Target) {
			c.DeleteBucket(ctx, t.Bucket)
		}),
		action.BucketLoadRequest: withTarget(func(ctx context.Context, t action.Target) {
			c.LoadBucket(ctx, t.Bucket)
		}),
		action.BucketCollectionsRequest: withTarget(func(ctx context.Context, t action.Target) {
			c.ListBucketCollections(ctx, t.Bucket)
		}),
		action.BucketGroupsRequest: withTarget(func(ctx context.Context, t action.Target) {
			c.ListBucketGroups(ctx, t.Bucket)
		}),
		action.BucketHistoryRequest: func(ctx context.Context, a action.Action) error {
			q, ok := a.Payload.(action.HistoryQuery)
			if !ok {
				return invalidPayload(a)
			}
			c.ListBucketHistory(ctx, q.Bucket, q.Filters)
			return nil
		},
		action.BucketHistoryNextRequest: withoutPayload(c.ListBucketNextHistory),

		action.CollectionLoadRequest: withTarget(func(ctx context.Context, t action.Target) {
			c.LoadCollection(ctx, t.Bucket, t.Collection)
		}),
		action.CollectionCreateRequest: withMutation(func(ctx context.Context, m action.Mutation) {
			c.CreateCollection(ctx, m.Bucket, m.Data)
		}),
		action.CollectionUpdateRequest: withMutation(c.UpdateCollection),
		action.CollectionDeleteRequest: withTarget(func(ctx context.Context, t action.Target) {
			c.DeleteCollection(ctx, t.Bucket, t.Collection)
		}),
		action.CollectionRecordsRequest: func(ctx context.Context, a action.Action) error {
			q, ok := a.Payload.(action.RecordsQuery)
			if !ok {
				return invalidPayload(a)
			}
			c.ListRecords(ctx, q)
			return nil
		},
		action.CollectionNextRecordsRequest: withoutPayload(c.ListNextRecords),

		action.GroupLoadRequest: withTarget(func(ctx context.Context, t action.Target) {
			c.LoadGroup(ctx, t.Bucket, t.Group)
		}),
		action.GroupCreateRequest: withMutation(c.CreateGroup),
		action.GroupUpdateRequest: withMutation(c.UpdateGroup),
		action.GroupDeleteRequest: withTarget(func(ctx context.Context, t action.Target) {
			c.DeleteGroup(ctx, t.Bucket, t.Group)
		}),

		action.RecordLoadRequest: withTarget(func(ctx context.Context, t action.Target) {
			c.LoadRecord(ctx, t.Bucket, t.Collection, t.Record)
		}),
		action.RecordCreateRequest: withMutation(c.CreateRecord),
		action.RecordUpdateRequest: withMutation(c.UpdateRecord),
		action.RecordDeleteRequest: withMutation(c.DeleteRecord),
		action.RecordBulkCreateRequest: func(ctx context.Context, a action.Action) error {
			b, ok := a.Payload.(action.BulkRecords)
			if !ok {
				return invalidPayload(a)
			}
			c.BulkCreateRecords(ctx, b.Bucket, b.Collection, b.Records)
			return nil
		},
		action.AttachmentDeleteRequest: withTarget(func(ctx context.Context, t action.Target) {
			c.DeleteAttachment(ctx, t.Bucket, t.Collection, t.Record)
		}),

		action.ServerHistoryClearRequest: withoutPayload(c.ClearHistory),
	}
}
