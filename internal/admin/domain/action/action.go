package action

import (
	"kinto-admin/internal/admin/domain/model"
	authmodel "kinto-admin/internal/auth/domain/model"
	"kinto-admin/internal/kinto"
)

// Action is something that happened in a console, reduced into its state
// and published to the coordinators.
type Action struct {
	Type    Type        `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// New creates an action
func New(t Type, payload interface{}) Action {
	return Action{Type: t, Payload: payload}
}

// Target addresses a bucket, collection, group or record
type Target struct {
	Bucket     string `json:"bid,omitempty"`
	Collection string `json:"cid,omitempty"`
	Group      string `json:"gid,omitempty"`
	Record     string `json:"rid,omitempty"`
}

// Label is "bid/cid" for collections, "bid" otherwise
func (t Target) Label() string {
	if t.Collection != "" {
		return t.Bucket + "/" + t.Collection
	}
	return t.Bucket
}

// Mutation carries either new attributes or new permissions for a resource.
// When Permissions is set the request is a permissions update.
type Mutation struct {
	Target
	Data         kinto.Resource    `json:"data,omitempty"`
	Permissions  kinto.Permissions `json:"permissions,omitempty"`
	Members      []string          `json:"members,omitempty"`
	Attachment   *kinto.Attachment `json:"-"`
	LastModified int64             `json:"last_modified,omitempty"`
}

// IsPermissions reports whether the mutation updates permissions
func (m Mutation) IsPermissions() bool {
	return m.Permissions != nil && m.Data == nil
}

// RecordsQuery lists records of a collection
type RecordsQuery struct {
	Target
	Sort    string            `json:"sort,omitempty"`
	Where   string            `json:"where,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
}

// BulkRecords creates many records at once
type BulkRecords struct {
	Target
	Records []kinto.Resource `json:"records"`
}

// HistoryQuery lists the history entries of a bucket
type HistoryQuery struct {
	Target
	Filters map[string]string `json:"filters,omitempty"`
}

// Object is a loaded resource
type Object struct {
	Data        kinto.Resource    `json:"data"`
	Permissions kinto.Permissions `json:"permissions"`
}

// CollectionLoaded is a loaded collection with its bucket and label
type CollectionLoaded struct {
	Object
	Bucket string `json:"bucket"`
	ID     string `json:"id"`
	Label  string `json:"label"`
}

// BucketLoaded is a loaded bucket
type BucketLoaded struct {
	Object
	ID string `json:"id"`
}

// Page is one or more pages of a plural endpoint
type Page struct {
	Entries     []kinto.Resource `json:"entries"`
	HasNextPage bool             `json:"hasNextPage"`
	NextPage    string           `json:"-"`
	Append      bool             `json:"append"`
}

// RecordsPage is a page of records with the query that produced it
type RecordsPage struct {
	Page
	Sort  string `json:"sort"`
	Where string `json:"where,omitempty"`
}

// SessionReady is the outcome of a session setup
type SessionReady struct {
	Auth       authmodel.AuthData `json:"-"`
	ServerInfo kinto.ServerInfo   `json:"serverInfo"`
}

// ClearNotifications removes notifications; Force also drops persistent ones
type ClearNotifications struct {
	Force bool `json:"force"`
}

// Session

func SetupSession(auth authmodel.AuthData) Action { return New(SessionSetupRequest, auth) }
func SessionSetupCompleted(auth authmodel.AuthData, info kinto.ServerInfo) Action {
	return New(SessionSetupComplete, SessionReady{Auth: auth, ServerInfo: info})
}
func SessionSetupFailure() Action { return New(SessionSetupFailed, nil) }
func SessionBusyFlag(busy bool) Action { return New(SessionBusy, busy) }
func Authenticating(auth authmodel.AuthData) Action { return New(SessionAuthenticating, auth) }
func GetServerInfo(auth authmodel.AuthData) Action { return New(SessionServerInfoRequest, auth) }
func ServerInfoSuccess(info kinto.ServerInfo) Action {
	return New(SessionServerInfoSuccess, info)
}
func ServerChange() Action { return New(SessionServerChange, nil) }
func Redirect(url string) Action { return New(SessionRedirect, url) }
func Logout() Action { return New(SessionLogoutRequest, nil) }
func LoggedOut() Action { return New(SessionLogout, nil) }
func ListBuckets() Action { return New(SessionBucketsRequest, nil) }
func BucketsSuccess(b []model.BucketEntry) Action { return New(SessionBucketsSuccess, b) }
func PermissionsSuccess(p []kinto.PermissionEntry) Action {
	return New(SessionPermissions, p)
}

// Buckets

func CreateBucket(bid string, data kinto.Resource) Action {
	return New(BucketCreateRequest, Mutation{Target: Target{Bucket: bid}, Data: data})
}
func UpdateBucket(m Mutation) Action { return New(BucketUpdateRequest, m) }
func DeleteBucket(bid string) Action {
	return New(BucketDeleteRequest, Target{Bucket: bid})
}
func LoadBucket(bid string) Action { return New(BucketLoadRequest, Target{Bucket: bid}) }
func BucketBusyFlag(busy bool) Action { return New(BucketBusy, busy) }
func BucketLoadSucceeded(bid string, obj Object) Action {
	return New(BucketLoadSuccess, BucketLoaded{Object: obj, ID: bid})
}
func ResetBucket() Action { return New(BucketReset, nil) }
func ListBucketCollections(bid string) Action {
	return New(BucketCollectionsRequest, Target{Bucket: bid})
}
func BucketCollectionsSucceeded(p Page) Action { return New(BucketCollectionsSuccess, p) }
func ListBucketGroups(bid string) Action {
	return New(BucketGroupsRequest, Target{Bucket: bid})
}
func BucketGroupsSucceeded(groups []kinto.Resource) Action {
	return New(BucketGroupsSuccess, groups)
}
func ListBucketHistory(bid string, filters map[string]string) Action {
	return New(BucketHistoryRequest, HistoryQuery{Target: Target{Bucket: bid}, Filters: filters})
}
func ListBucketNextHistory() Action { return New(BucketHistoryNextRequest, nil) }
func BucketHistorySucceeded(p Page) Action { return New(BucketHistorySuccess, p) }

// Collections

func LoadCollection(bid, cid string) Action {
	return New(CollectionLoadRequest, Target{Bucket: bid, Collection: cid})
}
func CreateCollection(bid string, data kinto.Resource) Action {
	return New(CollectionCreateRequest, Mutation{Target: Target{Bucket: bid}, Data: data})
}
func UpdateCollection(m Mutation) Action { return New(CollectionUpdateRequest, m) }
func DeleteCollection(bid, cid string) Action {
	return New(CollectionDeleteRequest, Target{Bucket: bid, Collection: cid})
}
func CollectionBusyFlag(busy bool) Action { return New(CollectionBusy, busy) }
func CollectionLoadSucceeded(bid, cid string, obj Object) Action {
	t := Target{Bucket: bid, Collection: cid}
	return New(CollectionLoadSuccess, CollectionLoaded{Object: obj, Bucket: bid, ID: cid, Label: t.Label()})
}
func ResetCollection() Action { return New(CollectionReset, nil) }
func ListRecords(q RecordsQuery) Action {
	return New(CollectionRecordsRequest, q)
}
func ListNextRecords() Action { return New(CollectionNextRecordsRequest, nil) }
func RecordsSucceeded(p RecordsPage) Action { return New(CollectionRecordsSuccess, p) }
func TotalRecords(n int) Action { return New(CollectionTotalRecords, n) }

// Groups

func LoadGroup(bid, gid string) Action {
	return New(GroupLoadRequest, Target{Bucket: bid, Group: gid})
}
func CreateGroup(bid, gid string, members []string, data kinto.Resource) Action {
	return New(GroupCreateRequest, Mutation{Target: Target{Bucket: bid, Group: gid}, Members: members, Data: data})
}
func UpdateGroup(m Mutation) Action { return New(GroupUpdateRequest, m) }
func DeleteGroup(bid, gid string) Action {
	return New(GroupDeleteRequest, Target{Bucket: bid, Group: gid})
}
func GroupBusyFlag(busy bool) Action { return New(GroupBusy, busy) }
func GroupLoadSucceeded(obj Object) Action { return New(GroupLoadSuccess, obj) }
func ResetGroup() Action { return New(GroupReset, nil) }

// Records

func LoadRecord(bid, cid, rid string) Action {
	return New(RecordLoadRequest, Target{Bucket: bid, Collection: cid, Record: rid})
}
func CreateRecord(m Mutation) Action { return New(RecordCreateRequest, m) }
func UpdateRecord(m Mutation) Action { return New(RecordUpdateRequest, m) }
func DeleteRecord(bid, cid, rid string, lastModified int64) Action {
	return New(RecordDeleteRequest, Mutation{Target: Target{Bucket: bid, Collection: cid, Record: rid}, LastModified: lastModified})
}
func BulkCreateRecords(bid, cid string, records []kinto.Resource) Action {
	return New(RecordBulkCreateRequest, BulkRecords{Target: Target{Bucket: bid, Collection: cid}, Records: records})
}
func DeleteAttachment(bid, cid, rid string) Action {
	return New(AttachmentDeleteRequest, Target{Bucket: bid, Collection: cid, Record: rid})
}
func RecordBusyFlag(busy bool) Action { return New(RecordBusy, busy) }
func RecordLoadSucceeded(obj Object) Action { return New(RecordLoadSuccess, obj) }
func ResetRecord() Action { return New(RecordReset, nil) }

// Notifications, route and history

func AddNotification(n model.Notification) Action { return New(NotificationAdded, n) }
func RemoveNotification(id string) Action { return New(NotificationRemoved, id) }
func ClearNotificationsAction(force bool) Action {
	return New(NotificationClear, ClearNotifications{Force: force})
}
func UpdatePath(path string) Action { return New(RouteUpdated, path) }
func HistoryLoaded(history []string) Action { return New(ServerHistoryLoaded, history) }
func ClearHistory() Action { return New(ServerHistoryClearRequest, nil) }
