package client

import (
	"context"

	"kinto-admin/internal/kinto"
)

// RemoteStore is the part of the Kinto API the coordinators use
type RemoteStore interface {
	Remote() string
	FetchServerInfo(ctx context.Context) (kinto.ServerInfo, error)

	ListBuckets(ctx context.Context, opts kinto.ListOptions) (*kinto.ListResponse, error)
	GetBucket(ctx context.Context, bid string) (*kinto.ObjectResponse, error)
	CreateBucket(ctx context.Context, bid string, data kinto.Resource, perms kinto.Permissions) (*kinto.ObjectResponse, error)
	UpdateBucket(ctx context.Context, bid string, data kinto.Resource, wo kinto.WriteOptions) (*kinto.ObjectResponse, error)
	SetBucketPermissions(ctx context.Context, bid string, perms kinto.Permissions, wo kinto.WriteOptions) (*kinto.ObjectResponse, error)
	DeleteBucket(ctx context.Context, bid string, wo kinto.WriteOptions) error

	ListCollections(ctx context.Context, bid string, opts kinto.ListOptions) (*kinto.ListResponse, error)
	GetCollection(ctx context.Context, bid, cid string) (*kinto.ObjectResponse, error)
	CreateCollection(ctx context.Context, bid, cid string, data kinto.Resource, perms kinto.Permissions) (*kinto.ObjectResponse, error)
	UpdateCollection(ctx context.Context, bid, cid string, data kinto.Resource, wo kinto.WriteOptions) (*kinto.ObjectResponse, error)
	SetCollectionPermissions(ctx context.Context, bid, cid string, perms kinto.Permissions, wo kinto.WriteOptions) (*kinto.ObjectResponse, error)
	DeleteCollection(ctx context.Context, bid, cid string, wo kinto.WriteOptions) error

	ListGroups(ctx context.Context, bid string, opts kinto.ListOptions) (*kinto.ListResponse, error)
	GetGroup(ctx context.Context, bid, gid string) (*kinto.ObjectResponse, error)
	CreateGroup(ctx context.Context, bid, gid string, members []string, data kinto.Resource, perms kinto.Permissions) (*kinto.ObjectResponse, error)
	UpdateGroup(ctx context.Context, bid, gid string, data kinto.Resource, wo kinto.WriteOptions) (*kinto.ObjectResponse, error)
	SetGroupPermissions(ctx context.Context, bid, gid string, perms kinto.Permissions, wo kinto.WriteOptions) (*kinto.ObjectResponse, error)
	DeleteGroup(ctx context.Context, bid, gid string, wo kinto.WriteOptions) error

	ListRecords(ctx context.Context, bid, cid string, opts kinto.ListOptions) (*kinto.ListResponse, error)
	GetTotalRecords(ctx context.Context, bid, cid string, filters map[string]string) (int, error)
	GetRecord(ctx context.Context, bid, cid, rid string) (*kinto.ObjectResponse, error)
	CreateRecord(ctx context.Context, bid, cid string, data kinto.Resource, perms kinto.Permissions) (*kinto.ObjectResponse, error)
	UpdateRecord(ctx context.Context, bid, cid, rid string, data kinto.Resource, perms kinto.Permissions, wo kinto.WriteOptions) (*kinto.ObjectResponse, error)
	SetRecordPermissions(ctx context.Context, bid, cid, rid string, perms kinto.Permissions, wo kinto.WriteOptions) (*kinto.ObjectResponse, error)
	DeleteRecord(ctx context.Context, bid, cid, rid string, wo kinto.WriteOptions) error
	AddAttachment(ctx context.Context, bid, cid, rid string, att kinto.Attachment, data kinto.Resource, perms kinto.Permissions) (*kinto.ObjectResponse, error)
	RemoveAttachment(ctx context.Context, bid, cid, rid string) error

	ListHistory(ctx context.Context, bid string, opts kinto.ListOptions) (*kinto.ListResponse, error)
	ListPermissions(ctx context.Context) ([]kinto.PermissionEntry, error)
	NextPage(ctx context.Context, nextURL string) (*kinto.ListResponse, error)
	Batch(ctx context.Context, reqs []kinto.BatchRequest) ([]kinto.BatchResponse, error)
}

// Factory builds a RemoteStore for a server and an Authorization header value
type Factory func(server, authorization string) RemoteStore

var _ RemoteStore = (*kinto.Client)(nil)
