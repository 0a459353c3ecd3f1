package usecase

import (
	"testing"

	"kinto-admin/internal/admin/domain/action"
	"kinto-admin/internal/admin/domain/model"
	authmodel "kinto-admin/internal/auth/domain/model"
	"kinto-admin/internal/kinto"
	"kinto-admin/internal/kinto/kintotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reduceAll(actions ...action.Action) model.State {
	s := model.InitialState()
	for _, a := range actions {
		s = Reduce(s, a)
	}
	return s
}

func TestReduceNotifications(t *testing.T) {
	info := NewNotification(model.NotificationInfo, "info", model.NotifyOptions{})
	failure := NewNotification(model.NotificationError, "failure", model.NotifyOptions{Persistent: true})

	t.Run("clear keeps persistent notifications", func(t *testing.T) {
		s := reduceAll(action.AddNotification(info), action.AddNotification(failure), action.ClearNotificationsAction(false))
		require.Len(t, s.Notifications, 1)
		assert.Equal(t, failure.ID, s.Notifications[0].ID)
	})

	t.Run("forced clear removes everything", func(t *testing.T) {
		s := reduceAll(action.AddNotification(info), action.AddNotification(failure), action.ClearNotificationsAction(true))
		assert.Empty(t, s.Notifications)
		assert.NotNil(t, s.Notifications)
	})

	t.Run("route change keeps persistent notifications", func(t *testing.T) {
		s := reduceAll(action.AddNotification(info), action.AddNotification(failure), action.UpdatePath("/buckets/b1"))
		require.Len(t, s.Notifications, 1)
		assert.Equal(t, failure.ID, s.Notifications[0].ID)
		assert.Equal(t, "/buckets/b1", s.Route.Path)
		assert.False(t, s.Route.UpdatedAt.IsZero())
	})

	t.Run("remove by id", func(t *testing.T) {
		s := reduceAll(action.AddNotification(info), action.AddNotification(failure), action.RemoveNotification(info.ID))
		require.Len(t, s.Notifications, 1)
		assert.Equal(t, "failure", s.Notifications[0].Message)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		s := reduceAll(action.AddNotification(info), action.RemoveNotification("nope"))
		assert.Len(t, s.Notifications, 1)
	})
}

func TestReduceSession(t *testing.T) {
	info := kinto.ServerInfo{
		URL:          kintotest.URL,
		Capabilities: map[string]interface{}{"history": map[string]interface{}{}},
		User:         &kinto.User{ID: "account:tom"},
	}
	auth := authmodel.AuthData{Server: kintotest.URL, AuthType: authmodel.MethodAccount, Email: "tom@example.com"}

	s := reduceAll(action.Authenticating(auth))
	assert.True(t, s.Session.Authenticating)
	assert.Equal(t, kintotest.URL, s.Session.Server)

	s = Reduce(s, action.Redirect("https://auth.example.com"))
	assert.Equal(t, "https://auth.example.com", s.Session.RedirectURL)

	s = Reduce(s, action.SessionSetupCompleted(auth, info))
	assert.False(t, s.Session.Authenticating)
	assert.True(t, s.Session.Authenticated)
	assert.Equal(t, "tom@example.com", s.Session.Email)
	assert.Empty(t, s.Session.RedirectURL)
	assert.True(t, s.Session.ServerInfo.HasCapability("history"))

	s = Reduce(s, action.ServerChange())
	assert.False(t, s.Session.ServerInfo.HasCapability("history"))
	assert.True(t, s.Session.Authenticated)
}

func TestReduceLogoutResetsEverything(t *testing.T) {
	s := reduceAll(
		action.SessionSetupCompleted(testAuth, kinto.DefaultServerInfo()),
		action.BucketsSuccess([]model.BucketEntry{{ID: "b1"}}),
		action.BucketLoadSucceeded("b1", action.Object{Data: kinto.Resource{"id": "b1"}}),
		action.CollectionLoadSucceeded("b1", "c1", action.Object{Data: kinto.Resource{"id": "c1"}}),
		action.GroupLoadSucceeded(action.Object{Data: kinto.Resource{"id": "g1"}}),
		action.RecordLoadSucceeded(action.Object{Data: kinto.Resource{"id": "r1"}}),
		action.LoggedOut(),
	)

	initial := model.InitialState()
	assert.False(t, s.Session.Authenticated)
	assert.Empty(t, s.Session.Server)
	assert.Equal(t, initial.Buckets, s.Buckets)
	assert.Equal(t, initial.Bucket, s.Bucket)
	assert.Equal(t, initial.Collection, s.Collection)
	assert.Equal(t, initial.Group, s.Group)
	assert.Equal(t, initial.Record, s.Record)
}

func TestReduceBucketLoadResetsOnNewID(t *testing.T) {
	s := reduceAll(
		action.BucketLoadSucceeded("b1", action.Object{Data: kinto.Resource{"id": "b1"}}),
		action.BucketGroupsSucceeded([]kinto.Resource{{"id": "g1"}}),
	)
	require.Len(t, s.Bucket.Groups, 1)

	s = Reduce(s, action.BucketLoadSucceeded("b1", action.Object{Data: kinto.Resource{"id": "b1", "a": 1}}))
	assert.Len(t, s.Bucket.Groups, 1, "reloading the same bucket keeps its lists")

	s = Reduce(s, action.BucketLoadSucceeded("b2", action.Object{}))
	assert.Equal(t, "b2", s.Bucket.ID)
	assert.Empty(t, s.Bucket.Groups)
	assert.NotNil(t, s.Bucket.Data)
	assert.NotNil(t, s.Bucket.Permissions)
}

func TestReduceCollection(t *testing.T) {
	s := reduceAll(
		action.CollectionBusyFlag(true),
		action.CollectionLoadSucceeded("b1", "c1", action.Object{Data: kinto.Resource{"id": "c1"}}),
		action.RecordsSucceeded(action.RecordsPage{Page: action.Page{Entries: []kinto.Resource{{"id": "r1"}}}}),
	)
	assert.Equal(t, "b1/c1", s.Collection.Label)
	assert.True(t, s.Collection.Busy)
	require.Len(t, s.Collection.Records, 1)

	t.Run("append keeps previous records", func(t *testing.T) {
		next := Reduce(s, action.RecordsSucceeded(action.RecordsPage{
			Page: action.Page{Entries: []kinto.Resource{{"id": "r2"}}, Append: true, HasNextPage: true, NextPage: "next"},
		}))
		require.Len(t, next.Collection.Records, 2)
		assert.Equal(t, "r2", next.Collection.Records[1].ID())
		assert.True(t, next.Collection.HasNextRecords)
		assert.Equal(t, "next", next.Collection.NextRecords)
		assert.Len(t, s.Collection.Records, 1, "previous state is untouched")
	})

	t.Run("request records the sort and filter", func(t *testing.T) {
		next := Reduce(s, action.ListRecords(action.RecordsQuery{Sort: "title", Where: "record.x > 1"}))
		assert.False(t, next.Collection.RecordsLoaded)
		assert.Equal(t, "title", next.Collection.CurrentSort)
		assert.Equal(t, "record.x > 1", next.Collection.Where)
	})

	t.Run("loading another collection resets it", func(t *testing.T) {
		next := Reduce(s, action.CollectionLoadSucceeded("b1", "c2", action.Object{}))
		assert.Equal(t, "c2", next.Collection.ID)
		assert.Empty(t, next.Collection.Records)
		assert.True(t, next.Collection.Busy)
		assert.Equal(t, model.DefaultSort, next.Collection.CurrentSort)
	})

	t.Run("total records", func(t *testing.T) {
		next := Reduce(s, action.TotalRecords(42))
		assert.Equal(t, 42, next.Collection.TotalRecords)
	})
}

func TestReduceHistory(t *testing.T) {
	s := reduceAll(action.HistoryLoaded([]string{"a", "b"}))
	assert.Equal(t, []string{"a", "b"}, s.History)

	s = Reduce(s, action.HistoryLoaded(nil))
	assert.Equal(t, []string{}, s.History)
}

func TestReduceBucketHistoryPages(t *testing.T) {
	s := reduceAll(
		action.ListBucketHistory("b1", nil),
		action.BucketHistorySucceeded(action.Page{Entries: []kinto.Resource{{"id": "h1"}}, HasNextPage: true}),
		action.BucketHistorySucceeded(action.Page{Entries: []kinto.Resource{{"id": "h2"}}, Append: true}),
	)
	assert.True(t, s.Bucket.History.Loaded)
	assert.False(t, s.Bucket.History.HasNextPage)
	assert.Len(t, s.Bucket.History.Entries, 2)

	s = Reduce(s, action.ListBucketHistory("b1", nil))
	assert.False(t, s.Bucket.History.Loaded)
	assert.Empty(t, s.Bucket.History.Entries)
}
