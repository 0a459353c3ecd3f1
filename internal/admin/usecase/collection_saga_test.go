package usecase

import (
	"context"
	"net/http"
	"testing"

	"kinto-admin/internal/admin/domain/action"
	"kinto-admin/internal/admin/domain/model"
	"kinto-admin/internal/kinto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCollection_Success(t *testing.T) {
	c, d, srv := newTestCoordinator(t)
	seed(t, srv).bucket("b1").collection("b1", "c1", kinto.Resource{"displayFields": []interface{}{"title"}})

	c.LoadCollection(context.Background(), "b1", "c1")

	assert.Equal(t, []action.Type{
		action.CollectionBusy,
		action.CollectionLoadSuccess,
		action.CollectionBusy,
	}, d.Types())
	actions := d.Actions()
	assert.Equal(t, true, actions[0].Payload)
	assert.Equal(t, false, actions[2].Payload)

	state := d.GetState().Collection
	assert.False(t, state.Busy)
	assert.Equal(t, "c1", state.ID)
	assert.Equal(t, "b1", state.Bucket)
	assert.Equal(t, "b1/c1", state.Label)
	assert.Equal(t, []interface{}{"title"}, state.Data["displayFields"])
	assert.Contains(t, state.Permissions["write"], "account:tom")
}

func TestLoadCollection_Failure(t *testing.T) {
	c, d, srv := newTestCoordinator(t)
	seed(t, srv).bucket("b1")

	c.LoadCollection(context.Background(), "b1", "missing")

	assert.Equal(t, []action.Type{
		action.CollectionBusy,
		action.NotificationAdded,
		action.CollectionBusy,
	}, d.Types())
	notifications := d.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, model.NotificationError, notifications[0].Type)
	assert.Equal(t, "Couldn't load collection.", notifications[0].Message)
	assert.True(t, notifications[0].Persistent)
	assert.NotEmpty(t, notifications[0].Details)
	assert.False(t, d.GetState().Collection.Busy)
}

func TestLoadCollection_WithoutClient(t *testing.T) {
	c, d, _ := newTestCoordinator(t)
	c.resetClient()

	c.LoadCollection(context.Background(), "b1", "c1")

	notifications := d.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, []string{"Client is not configured."}, notifications[0].Details)
	assert.False(t, d.GetState().Collection.Busy)
}

func TestCreateCollection(t *testing.T) {
	c, d, srv := newTestCoordinator(t)
	seed(t, srv).bucket("b1")

	c.CreateCollection(context.Background(), "b1", kinto.Resource{
		"name":          "articles",
		"displayFields": []interface{}{"title"},
	})

	assert.Equal(t, []action.Type{
		action.CollectionBusy,
		action.RouteUpdated,
		action.NotificationAdded,
		action.SessionBusy,
		action.SessionBucketsSuccess,
		action.SessionBusy,
		action.CollectionBusy,
	}, d.Types())
	assert.Equal(t, []string{"/buckets/b1/collections/articles"}, d.Routes())
	assert.Equal(t, "Collection created.", d.Notifications()[0].Message)

	stored := srv.Data("/buckets/b1/collections/articles")
	require.NotNil(t, stored)
	assert.NotContains(t, stored, "name")
	assert.Equal(t, []interface{}{"title"}, stored["displayFields"])

	buckets := d.GetState().Buckets
	require.Len(t, buckets, 1)
	require.Len(t, buckets[0].Collections, 1)
	assert.Equal(t, "articles", buckets[0].Collections[0].ID)
}

func TestCreateCollection_MissingBucket(t *testing.T) {
	c, d, _ := newTestCoordinator(t)

	c.CreateCollection(context.Background(), "nope", kinto.Resource{"name": "articles"})

	assert.Equal(t, []action.Type{
		action.CollectionBusy,
		action.NotificationAdded,
		action.CollectionBusy,
	}, d.Types())
	assert.Equal(t, "Couldn't create collection.", d.Notifications()[0].Message)
	assert.Empty(t, d.Routes())
}

func TestUpdateCollection(t *testing.T) {
	t.Run("properties", func(t *testing.T) {
		c, d, srv := newTestCoordinator(t)
		seed(t, srv).bucket("b1").collection("b1", "c1", kinto.Resource{})

		c.UpdateCollection(context.Background(), action.Mutation{
			Target: action.Target{Bucket: "b1", Collection: "c1"},
			Data:   kinto.Resource{"displayFields": []interface{}{"name"}},
		})

		assert.Equal(t, []action.Type{
			action.CollectionBusy,
			action.CollectionLoadSuccess,
			action.NotificationAdded,
			action.CollectionBusy,
		}, d.Types())
		assert.Equal(t, "Collection properties updated.", d.Notifications()[0].Message)
		assert.Equal(t, []interface{}{"name"}, srv.Data("/buckets/b1/collections/c1")["displayFields"])
		assert.Equal(t, []interface{}{"name"}, d.GetState().Collection.Data["displayFields"])
	})

	t.Run("permissions", func(t *testing.T) {
		c, d, srv := newTestCoordinator(t)
		seed(t, srv).bucket("b1").collection("b1", "c1", kinto.Resource{})

		c.UpdateCollection(context.Background(), action.Mutation{
			Target:      action.Target{Bucket: "b1", Collection: "c1"},
			Permissions: kinto.Permissions{"read": {"system.Everyone"}, "write": {"account:tom"}},
		})

		assert.Equal(t, "Collection permissions updated.", d.Notifications()[0].Message)
		assert.Equal(t, []string{"system.Everyone"}, srv.Permissions("/buckets/b1/collections/c1")["read"])
		assert.Equal(t, []string{"system.Everyone"}, d.GetState().Collection.Permissions["read"])
	})

	t.Run("conflict", func(t *testing.T) {
		c, d, srv := newTestCoordinator(t)
		seed(t, srv).bucket("b1").collection("b1", "c1", kinto.Resource{})

		c.UpdateCollection(context.Background(), action.Mutation{
			Target:       action.Target{Bucket: "b1", Collection: "c1"},
			Data:         kinto.Resource{"displayFields": []interface{}{}},
			LastModified: 1,
		})

		assert.Equal(t, []action.Type{
			action.CollectionBusy,
			action.NotificationAdded,
			action.CollectionBusy,
		}, d.Types())
		assert.Equal(t, "Couldn't update collection.", d.Notifications()[0].Message)
	})
}

func TestDeleteCollection(t *testing.T) {
	c, d, srv := newTestCoordinator(t)
	seed(t, srv).bucket("b1").collection("b1", "c1", kinto.Resource{})

	c.DeleteCollection(context.Background(), "b1", "c1")

	assert.Equal(t, []action.Type{
		action.CollectionBusy,
		action.RouteUpdated,
		action.NotificationAdded,
		action.SessionBusy,
		action.SessionBucketsSuccess,
		action.SessionBusy,
		action.CollectionBusy,
	}, d.Types())
	assert.Equal(t, []string{""}, d.Routes())
	assert.Equal(t, "Collection deleted.", d.Notifications()[0].Message)
	assert.False(t, srv.Exists("/buckets/b1/collections/c1"))
	assert.Empty(t, d.GetState().Buckets[0].Collections)
}

func TestListRecords(t *testing.T) {
	c, d, srv := newTestCoordinator(t)
	s := seed(t, srv).bucket("b1").collection("b1", "c1", kinto.Resource{})
	for _, rank := range []float64{2, 3, 1} {
		s.record("b1", "c1", kinto.Resource{"rank": rank})
	}

	c.ListRecords(context.Background(), action.RecordsQuery{
		Target: action.Target{Bucket: "b1", Collection: "c1"},
		Sort:   "rank",
	})

	assert.Equal(t, []action.Type{
		action.CollectionBusy,
		action.CollectionRecordsSuccess,
		action.CollectionTotalRecords,
		action.CollectionBusy,
	}, d.Types())

	state := d.GetState().Collection
	require.Len(t, state.Records, 3)
	assert.Equal(t, float64(1), state.Records[0]["rank"])
	assert.Equal(t, float64(3), state.Records[2]["rank"])
	assert.Equal(t, "rank", state.CurrentSort)
	assert.True(t, state.RecordsLoaded)
	assert.False(t, state.HasNextRecords)
	assert.Equal(t, 3, state.TotalRecords)
}

func TestListRecords_Where(t *testing.T) {
	c, d, srv := newTestCoordinator(t)
	s := seed(t, srv).bucket("b1").collection("b1", "c1", kinto.Resource{})
	for _, rank := range []float64{2, 3, 1} {
		s.record("b1", "c1", kinto.Resource{"rank": rank})
	}

	c.ListRecords(context.Background(), action.RecordsQuery{
		Target: action.Target{Bucket: "b1", Collection: "c1"},
		Sort:   "-rank",
		Where:  "record.rank >= 2.0",
	})

	state := d.GetState().Collection
	require.Len(t, state.Records, 2)
	assert.Equal(t, float64(3), state.Records[0]["rank"])
	assert.Equal(t, "record.rank >= 2.0", state.Where)
}

func TestListRecords_InvalidWhere(t *testing.T) {
	c, d, srv := newTestCoordinator(t)
	seed(t, srv).bucket("b1").collection("b1", "c1", kinto.Resource{})

	c.ListRecords(context.Background(), action.RecordsQuery{
		Target: action.Target{Bucket: "b1", Collection: "c1"},
		Where:  "record.rank >=",
	})

	assert.Equal(t, []action.Type{
		action.CollectionBusy,
		action.NotificationAdded,
		action.CollectionBusy,
	}, d.Types())
	assert.Equal(t, "Invalid record filter.", d.Notifications()[0].Message)
}

func TestListRecords_Failure(t *testing.T) {
	c, d, srv := newTestCoordinator(t)
	seed(t, srv).bucket("b1").collection("b1", "c1", kinto.Resource{})
	srv.FailNext(http.MethodGet, "/buckets/b1/collections/c1/records", http.StatusServiceUnavailable, "Service unavailable")

	c.ListRecords(context.Background(), action.RecordsQuery{Target: action.Target{Bucket: "b1", Collection: "c1"}})

	notifications := d.Notifications()
	require.Len(t, notifications, 1)
	assert.Equal(t, "Couldn't list records.", notifications[0].Message)
	assert.Contains(t, notifications[0].Details, "Service unavailable")
	assert.False(t, d.GetState().Collection.RecordsLoaded)
}

func TestListNextRecords(t *testing.T) {
	c, d, srv := newTestCoordinator(t)
	c.cfg.RecordsPageSize = 2
	s := seed(t, srv).bucket("b1").collection("b1", "c1", kinto.Resource{})
	for _, rank := range []float64{1, 2, 3} {
		s.record("b1", "c1", kinto.Resource{"rank": rank})
	}

	c.ListRecords(context.Background(), action.RecordsQuery{
		Target: action.Target{Bucket: "b1", Collection: "c1"},
		Sort:   "rank",
	})
	first := d.GetState().Collection
	require.Len(t, first.Records, 2)
	assert.True(t, first.HasNextRecords)

	d.Reset()
	c.ListNextRecords(context.Background())

	assert.Equal(t, []action.Type{
		action.CollectionBusy,
		action.CollectionRecordsSuccess,
		action.CollectionBusy,
	}, d.Types())
	state := d.GetState().Collection
	require.Len(t, state.Records, 3)
	assert.Equal(t, float64(3), state.Records[2]["rank"])
	assert.False(t, state.HasNextRecords)

	d.Reset()
	c.ListNextRecords(context.Background())
	assert.Empty(t, d.Types())
}
