package usecase

import (
	"context"
	"sort"

	"kinto-admin/internal/admin/domain/action"
	"kinto-admin/internal/admin/domain/model"
	authmodel "kinto-admin/internal/auth/domain/model"
	"kinto-admin/internal/kinto"

	"go.uber.org/zap"
)

// SetupSession connects the console to a server with the given credentials.
// Non anonymous sessions must be recognized by the server.
func (c *Coordinator) SetupSession(ctx context.Context, auth authmodel.AuthData) {
	c.log.Info("Setting up session",
		zap.String("server", auth.Server),
		zap.String("auth_type", string(auth.AuthType)))

	c.put(ctx, action.SessionBusyFlag(true))
	defer c.put(ctx, action.SessionBusyFlag(false))

	c.put(ctx, action.Authenticating(auth))
	c.setClient(auth)

	info, ok := c.fetchServerInfo(ctx)
	if !ok {
		c.setupFailed(ctx)
		return
	}
	if auth.AuthType != authmodel.MethodAnonymous && (info.User == nil || info.User.ID == "") {
		c.notifyError(ctx, "Authentication failed.", nil)
		c.setupFailed(ctx)
		return
	}

	if c.sessions != nil {
		if err := c.sessions.SaveSession(ctx, c.sessionID, c.clientID, auth); err != nil {
			c.log.Warn("Failed to persist session", zap.Error(err))
		}
	}
	c.recordServer(ctx, auth.Server)

	c.put(ctx, action.SessionSetupCompleted(auth, info))
	c.ListBuckets(ctx)
}

// setupFailed drops the client and any previous session: a console that
// failed to log in is not authenticated anymore.
func (c *Coordinator) setupFailed(ctx context.Context) {
	c.resetClient()
	c.put(ctx, action.SessionSetupFailure())
	if c.sessions != nil {
		if err := c.sessions.DeleteSession(ctx, c.sessionID); err != nil {
			c.log.Warn("Failed to delete stored session", zap.Error(err))
		}
	}
}

// GetServerInfo points the console at a server and fetches its root document
func (c *Coordinator) GetServerInfo(ctx context.Context, auth authmodel.AuthData) {
	c.put(ctx, action.SessionBusyFlag(true))
	defer c.put(ctx, action.SessionBusyFlag(false))

	c.setClient(auth)
	c.fetchServerInfo(ctx)
}

func (c *Coordinator) fetchServerInfo(ctx context.Context) (kinto.ServerInfo, bool) {
	remote, err := c.client()
	if err != nil {
		c.notifyError(ctx, "Could not reach server", err)
		return kinto.DefaultServerInfo(), false
	}
	info, err := remote.FetchServerInfo(ctx)
	if err != nil {
		c.notifyError(ctx, "Could not reach server", err)
		c.put(ctx, action.ServerInfoSuccess(kinto.DefaultServerInfo()))
		return kinto.DefaultServerInfo(), false
	}
	c.put(ctx, action.ServerInfoSuccess(info))
	c.put(ctx, action.ClearNotificationsAction(true))
	return info, true
}

// Logout forgets the client and the stored session
func (c *Coordinator) Logout(ctx context.Context) {
	c.log.Info("Logging out")
	c.resetClient()
	c.put(ctx, action.LoggedOut())
	c.put(ctx, action.UpdatePath("/"))
	c.notifySuccess(ctx, "Logged out.", model.NotifyOptions{Persistent: true})

	if c.sessions != nil {
		if err := c.sessions.DeleteSession(ctx, c.sessionID); err != nil {
			c.log.Warn("Failed to delete stored session", zap.Error(err))
		}
	}
}

// ListBuckets refreshes the bucket sidebar: buckets, their collections in a
// single batch, and the objects only reachable through the permissions endpoint.
func (c *Coordinator) ListBuckets(ctx context.Context) {
	c.put(ctx, action.SessionBusyFlag(true))
	defer c.put(ctx, action.SessionBusyFlag(false))

	entries, err := c.listBuckets(ctx)
	if err != nil {
		c.notifyError(ctx, "Couldn't list buckets.", err)
		return
	}
	c.put(ctx, action.BucketsSuccess(entries))
}

func (c *Coordinator) listBuckets(ctx context.Context) ([]model.BucketEntry, error) {
	remote, err := c.client()
	if err != nil {
		return nil, err
	}
	buckets, err := remote.ListBuckets(ctx, kinto.ListOptions{Pages: kinto.AllPages})
	if err != nil {
		return nil, err
	}

	batch := kinto.NewBatch()
	for _, b := range buckets.Data {
		batch.ListCollections(b.ID(), kinto.ListOptions{})
	}
	responses, err := remote.Batch(ctx, batch.Requests())
	if err != nil {
		return nil, err
	}
	collections := make(map[string][]kinto.Resource, len(buckets.Data))
	for i, b := range buckets.Data {
		if i >= len(responses) {
			break
		}
		list, err := responses[i].List()
		if err != nil {
			c.log.Debug("Skipping collections of bucket", zap.String("bucket", b.ID()), zap.Error(err))
			continue
		}
		collections[b.ID()] = list.Data
	}

	var permissions []kinto.PermissionEntry
	withPermissions := c.state().Session.ServerInfo.HasCapability("permissions_endpoint")
	if withPermissions {
		permissions, err = remote.ListPermissions(ctx)
		if err != nil {
			return nil, err
		}
		c.put(ctx, action.PermissionsSuccess(permissions))
	}
	return BuildBucketEntries(buckets.Data, collections, permissions, withPermissions), nil
}

// BuildBucketEntries assembles the sidebar listing. When withPermissions is
// set, buckets and collections only known through permissions are added and
// read-only flags are computed from the granted permissions.
func BuildBucketEntries(buckets []kinto.Resource, collections map[string][]kinto.Resource, permissions []kinto.PermissionEntry, withPermissions bool) []model.BucketEntry {
	byID := map[string]*model.BucketEntry{}
	order := []string{}
	bucket := func(id string) *model.BucketEntry {
		if b, ok := byID[id]; ok {
			return b
		}
		b := &model.BucketEntry{ID: id, Permissions: []string{}, Collections: []model.CollectionEntry{}, CanCreate: !withPermissions}
		byID[id] = b
		order = append(order, id)
		return b
	}
	collection := func(b *model.BucketEntry, id string) *model.CollectionEntry {
		for i := range b.Collections {
			if b.Collections[i].ID == id {
				return &b.Collections[i]
			}
		}
		b.Collections = append(b.Collections, model.CollectionEntry{ID: id, Permissions: []string{}})
		return &b.Collections[len(b.Collections)-1]
	}

	for _, r := range buckets {
		b := bucket(r.ID())
		b.LastModified = r.LastModified()
		for _, col := range collections[r.ID()] {
			entry := collection(b, col.ID())
			entry.LastModified = col.LastModified()
		}
	}

	if withPermissions {
		for _, p := range permissions {
			switch p.ResourceName {
			case "bucket":
				b := bucket(p.BucketID)
				b.Permissions = p.Permissions
			case "collection":
				b := bucket(p.BucketID)
				entry := collection(b, p.CollectionID)
				entry.Permissions = p.Permissions
			}
		}
	}

	out := make([]model.BucketEntry, 0, len(order))
	for _, id := range order {
		b := byID[id]
		if withPermissions {
			b.ReadOnly = !contains(b.Permissions, "write")
			b.CanCreate = !b.ReadOnly || contains(b.Permissions, "collection:create")
			for i := range b.Collections {
				b.Collections[i].ReadOnly = b.ReadOnly && !contains(b.Collections[i].Permissions, "write")
			}
		}
		sort.Slice(b.Collections, func(i, j int) bool { return b.Collections[i].ID < b.Collections[j].ID })
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

// LoadServerHistory publishes the servers this client connected to
func (c *Coordinator) LoadServerHistory(ctx context.Context) {
	if c.history == nil {
		return
	}
	history, err := c.history.Get(ctx, c.clientID)
	if err != nil {
		c.log.Warn("Failed to load server history", zap.Error(err))
		return
	}
	c.put(ctx, action.HistoryLoaded(history))
}

// ClearHistory forgets the servers this client connected to
func (c *Coordinator) ClearHistory(ctx context.Context) {
	if c.history == nil {
		c.put(ctx, action.HistoryLoaded(nil))
		return
	}
	if err := c.history.Clear(ctx, c.clientID); err != nil {
		c.notifyError(ctx, "Couldn't clear server history.", err)
		return
	}
	c.put(ctx, action.HistoryLoaded(nil))
}

func (c *Coordinator) recordServer(ctx context.Context, server string) {
	if c.history == nil {
		return
	}
	history, err := c.history.Add(ctx, c.clientID, server)
	if err != nil {
		c.log.Warn("Failed to record server in history", zap.Error(err))
		return
	}
	c.put(ctx, action.HistoryLoaded(history))
}
