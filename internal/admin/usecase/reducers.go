package usecase

import (
	"time"

	"kinto-admin/internal/admin/domain/action"
	"kinto-admin/internal/admin/domain/model"
	authmodel "kinto-admin/internal/auth/domain/model"
	"kinto-admin/internal/kinto"
)

// Reducer computes the next state of a console from an action.
type Reducer func(state model.State, a action.Action) model.State

// Reduce is the root reducer of a console
func Reduce(s model.State, a action.Action) model.State {
	s.Session = reduceSession(s.Session, a)
	s.Buckets = reduceBuckets(s.Buckets, a)
	s.Bucket = reduceBucket(s.Bucket, a)
	s.Collection = reduceCollection(s.Collection, a)
	s.Group = reduceGroup(s.Group, a)
	s.Record = reduceRecord(s.Record, a)
	s.Notifications = reduceNotifications(s.Notifications, a)
	s.Route = reduceRoute(s.Route, a)
	s.History = reduceHistory(s.History, a)
	return s
}

func reduceSession(s model.SessionState, a action.Action) model.SessionState {
	switch a.Type {
	case action.SessionBusy:
		s.Busy, _ = a.Payload.(bool)
	case action.SessionAuthenticating:
		if auth, ok := a.Payload.(authmodel.AuthData); ok {
			s.Authenticating = true
			s.Server = auth.Server
			s.AuthType = auth.AuthType
		}
	case action.SessionSetupComplete:
		if ready, ok := a.Payload.(action.SessionReady); ok {
			s.Authenticating = false
			s.Authenticated = true
			s.Server = ready.Auth.Server
			s.AuthType = ready.Auth.AuthType
			s.Email = ready.Auth.Email
			s.RedirectURL = ""
			s.ServerInfo = ready.ServerInfo
		}
	case action.SessionServerInfoSuccess:
		if info, ok := a.Payload.(kinto.ServerInfo); ok {
			s.ServerInfo = info
		}
	case action.SessionServerChange:
		s.ServerInfo = kinto.DefaultServerInfo()
	case action.SessionRedirect:
		s.RedirectURL, _ = a.Payload.(string)
	case action.SessionPermissions:
		s.Permissions, _ = a.Payload.([]kinto.PermissionEntry)
	case action.SessionSetupFailed:
		// keep the attempted server so the login form can show it
		s.Authenticating = false
		s.Authenticated = false
		s.Email = ""
		s.Permissions = nil
	case action.SessionLogout:
		return model.SessionState{ServerInfo: kinto.DefaultServerInfo()}
	}
	return s
}

func reduceBuckets(b []model.BucketEntry, a action.Action) []model.BucketEntry {
	switch a.Type {
	case action.SessionBucketsSuccess:
		if entries, ok := a.Payload.([]model.BucketEntry); ok {
			return entries
		}
	case action.SessionLogout, action.SessionSetupFailed:
		return []model.BucketEntry{}
	}
	return b
}

func reduceBucket(b model.BucketState, a action.Action) model.BucketState {
	switch a.Type {
	case action.BucketBusy:
		b.Busy, _ = a.Payload.(bool)
	case action.BucketLoadSuccess:
		if loaded, ok := a.Payload.(action.BucketLoaded); ok {
			if loaded.ID != b.ID {
				b = model.InitialBucketState()
			}
			b.ID = loaded.ID
			b.Data = nonNilResource(loaded.Data)
			b.Permissions = nonNilPermissions(loaded.Permissions)
		}
	case action.BucketCollectionsRequest:
		b.Collections = model.ListState{Entries: []kinto.Resource{}}
	case action.BucketCollectionsSuccess:
		if page, ok := a.Payload.(action.Page); ok {
			b.Collections = toListState(b.Collections, page)
		}
	case action.BucketGroupsSuccess:
		if groups, ok := a.Payload.([]kinto.Resource); ok {
			b.Groups = groups
		}
	case action.BucketHistoryRequest:
		b.History = model.ListState{Entries: []kinto.Resource{}}
	case action.BucketHistorySuccess:
		if page, ok := a.Payload.(action.Page); ok {
			b.History = toListState(b.History, page)
		}
	case action.BucketReset, action.SessionLogout, action.SessionSetupFailed:
		return model.InitialBucketState()
	}
	return b
}

func reduceCollection(c model.CollectionState, a action.Action) model.CollectionState {
	switch a.Type {
	case action.CollectionBusy:
		c.Busy, _ = a.Payload.(bool)
	case action.CollectionLoadSuccess:
		if loaded, ok := a.Payload.(action.CollectionLoaded); ok {
			if loaded.ID != c.ID || loaded.Bucket != c.Bucket {
				busy := c.Busy
				c = model.InitialCollectionState()
				c.Busy = busy
			}
			c.ID = loaded.ID
			c.Bucket = loaded.Bucket
			c.Label = loaded.Label
			c.Data = nonNilResource(loaded.Data)
			c.Permissions = nonNilPermissions(loaded.Permissions)
		}
	case action.CollectionRecordsRequest:
		c.RecordsLoaded = false
		if q, ok := a.Payload.(action.RecordsQuery); ok {
			if q.Sort != "" {
				c.CurrentSort = q.Sort
			}
			c.Where = q.Where
		}
	case action.CollectionRecordsSuccess:
		if page, ok := a.Payload.(action.RecordsPage); ok {
			if page.Append {
				c.Records = append(append([]kinto.Resource{}, c.Records...), page.Entries...)
			} else {
				c.Records = nonNilResources(page.Entries)
			}
			c.RecordsLoaded = true
			c.HasNextRecords = page.HasNextPage
			c.NextRecords = page.NextPage
			if page.Sort != "" {
				c.CurrentSort = page.Sort
			}
			c.Where = page.Where
		}
	case action.CollectionTotalRecords:
		c.TotalRecords, _ = a.Payload.(int)
	case action.CollectionReset, action.SessionLogout, action.SessionSetupFailed:
		return model.InitialCollectionState()
	}
	return c
}

func reduceGroup(g model.GroupState, a action.Action) model.GroupState {
	switch a.Type {
	case action.GroupBusy:
		g.Busy, _ = a.Payload.(bool)
	case action.GroupLoadSuccess:
		if obj, ok := a.Payload.(action.Object); ok {
			g.Data = nonNilResource(obj.Data)
			g.Permissions = nonNilPermissions(obj.Permissions)
		}
	case action.GroupReset, action.SessionLogout, action.SessionSetupFailed:
		return model.GroupState{Data: kinto.Resource{}, Permissions: kinto.Permissions{}}
	}
	return g
}

func reduceRecord(r model.RecordState, a action.Action) model.RecordState {
	switch a.Type {
	case action.RecordBusy:
		r.Busy, _ = a.Payload.(bool)
	case action.RecordLoadSuccess:
		if obj, ok := a.Payload.(action.Object); ok {
			r.Data = nonNilResource(obj.Data)
			r.Permissions = nonNilPermissions(obj.Permissions)
		}
	case action.RecordReset, action.SessionLogout, action.SessionSetupFailed:
		return model.RecordState{Data: kinto.Resource{}, Permissions: kinto.Permissions{}}
	}
	return r
}

func reduceNotifications(n []model.Notification, a action.Action) []model.Notification {
	switch a.Type {
	case action.NotificationAdded:
		if notif, ok := a.Payload.(model.Notification); ok {
			return append(append([]model.Notification{}, n...), notif)
		}
	case action.NotificationRemoved:
		id, _ := a.Payload.(string)
		return filterNotifications(n, func(x model.Notification) bool { return x.ID != id })
	case action.NotificationClear:
		req, _ := a.Payload.(action.ClearNotifications)
		if req.Force {
			return []model.Notification{}
		}
		return persistentOnly(n)
	case action.RouteUpdated:
		return persistentOnly(n)
	}
	return n
}

func reduceRoute(r model.Route, a action.Action) model.Route {
	if a.Type == action.RouteUpdated {
		path, _ := a.Payload.(string)
		return model.Route{Path: path, UpdatedAt: time.Now().UTC()}
	}
	return r
}

func reduceHistory(h []string, a action.Action) []string {
	if a.Type == action.ServerHistoryLoaded {
		if history, ok := a.Payload.([]string); ok && history != nil {
			return history
		}
		return []string{}
	}
	return h
}

func persistentOnly(n []model.Notification) []model.Notification {
	return filterNotifications(n, func(x model.Notification) bool { return x.Persistent })
}

func filterNotifications(n []model.Notification, keep func(model.Notification) bool) []model.Notification {
	out := make([]model.Notification, 0, len(n))
	for _, x := range n {
		if keep(x) {
			out = append(out, x)
		}
	}
	return out
}

func toListState(prev model.ListState, page action.Page) model.ListState {
	entries := nonNilResources(page.Entries)
	if page.Append {
		entries = append(append([]kinto.Resource{}, prev.Entries...), page.Entries...)
	}
	return model.ListState{
		Entries:     entries,
		Loaded:      true,
		HasNextPage: page.HasNextPage,
		NextPage:    page.NextPage,
	}
}

func nonNilResource(r kinto.Resource) kinto.Resource {
	if r == nil {
		return kinto.Resource{}
	}
	return r
}

func nonNilResources(r []kinto.Resource) []kinto.Resource {
	if r == nil {
		return []kinto.Resource{}
	}
	return r
}

func nonNilPermissions(p kinto.Permissions) kinto.Permissions {
	if p == nil {
		return kinto.Permissions{}
	}
	return p
}
