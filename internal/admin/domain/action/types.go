package action

// Type identifies an action
type Type string

// Session
const (
	SessionSetupRequest      Type = "SESSION_SETUP_REQUEST"
	SessionSetupComplete     Type = "SESSION_SETUP_COMPLETE"
	SessionSetupFailed       Type = "SESSION_SETUP_FAILED"
	SessionBusy              Type = "SESSION_BUSY"
	SessionAuthenticating    Type = "SESSION_AUTHENTICATING"
	SessionServerInfoRequest Type = "SESSION_SERVERINFO_REQUEST"
	SessionServerInfoSuccess Type = "SESSION_SERVERINFO_SUCCESS"
	SessionServerChange      Type = "SESSION_SERVER_CHANGE"
	SessionRedirect          Type = "SESSION_REDIRECT"
	SessionLogoutRequest     Type = "SESSION_LOGOUT_REQUEST"
	SessionLogout            Type = "SESSION_LOGOUT"
	SessionBucketsRequest    Type = "SESSION_BUCKETS_REQUEST"
	SessionBucketsSuccess    Type = "SESSION_BUCKETS_SUCCESS"
	SessionPermissions       Type = "SESSION_PERMISSIONS_SUCCESS"
)

// Buckets
const (
	BucketCreateRequest      Type = "BUCKET_CREATE_REQUEST"
	BucketUpdateRequest      Type = "BUCKET_UPDATE_REQUEST"
	BucketDeleteRequest      Type = "BUCKET_DELETE_REQUEST"
	BucketLoadRequest        Type = "BUCKET_LOAD_REQUEST"
	BucketBusy               Type = "BUCKET_BUSY"
	BucketLoadSuccess        Type = "BUCKET_LOAD_SUCCESS"
	BucketReset              Type = "BUCKET_RESET"
	BucketCollectionsRequest Type = "BUCKET_COLLECTIONS_REQUEST"
	BucketCollectionsSuccess Type = "BUCKET_COLLECTIONS_SUCCESS"
	BucketGroupsRequest      Type = "BUCKET_GROUPS_REQUEST"
	BucketGroupsSuccess      Type = "BUCKET_GROUPS_SUCCESS"
	BucketHistoryRequest     Type = "BUCKET_HISTORY_REQUEST"
	BucketHistoryNextRequest Type = "BUCKET_HISTORY_NEXT_REQUEST"
	BucketHistorySuccess     Type = "BUCKET_HISTORY_SUCCESS"
)

// Collections
const (
	CollectionLoadRequest        Type = "COLLECTION_LOAD_REQUEST"
	CollectionCreateRequest      Type = "COLLECTION_CREATE_REQUEST"
	CollectionUpdateRequest      Type = "COLLECTION_UPDATE_REQUEST"
	CollectionDeleteRequest      Type = "COLLECTION_DELETE_REQUEST"
	CollectionBusy               Type = "COLLECTION_BUSY"
	CollectionLoadSuccess        Type = "COLLECTION_LOAD_SUCCESS"
	CollectionReset              Type = "COLLECTION_RESET"
	CollectionRecordsRequest     Type = "COLLECTION_RECORDS_REQUEST"
	CollectionNextRecordsRequest Type = "COLLECTION_RECORDS_NEXT_REQUEST"
	CollectionRecordsSuccess     Type = "COLLECTION_RECORDS_SUCCESS"
	CollectionTotalRecords       Type = "COLLECTION_TOTAL_RECORDS"
)

// Groups
const (
	GroupLoadRequest   Type = "GROUP_LOAD_REQUEST"
	GroupCreateRequest Type = "GROUP_CREATE_REQUEST"
	GroupUpdateRequest Type = "GROUP_UPDATE_REQUEST"
	GroupDeleteRequest Type = "GROUP_DELETE_REQUEST"
	GroupBusy          Type = "GROUP_BUSY"
	GroupLoadSuccess   Type = "GROUP_LOAD_SUCCESS"
	GroupReset         Type = "GROUP_RESET"
)

// Records
const (
	RecordLoadRequest       Type = "RECORD_LOAD_REQUEST"
	RecordCreateRequest     Type = "RECORD_CREATE_REQUEST"
	RecordUpdateRequest     Type = "RECORD_UPDATE_REQUEST"
	RecordDeleteRequest     Type = "RECORD_DELETE_REQUEST"
	RecordBulkCreateRequest Type = "RECORD_BULK_CREATE_REQUEST"
	AttachmentDeleteRequest Type = "ATTACHMENT_DELETE_REQUEST"
	RecordBusy              Type = "RECORD_BUSY"
	RecordLoadSuccess       Type = "RECORD_LOAD_SUCCESS"
	RecordReset             Type = "RECORD_RESET"
)

// Notifications, route and server history
const (
	NotificationAdded         Type = "NOTIFICATION_ADDED"
	NotificationRemoved       Type = "NOTIFICATION_REMOVED"
	NotificationClear         Type = "NOTIFICATION_CLEAR"
	RouteUpdated              Type = "ROUTE_UPDATED"
	ServerHistoryLoaded       Type = "SERVER_HISTORY_LOADED"
	ServerHistoryClearRequest Type = "SERVER_HISTORY_CLEAR_REQUEST"
)

// RequestTypes are the actions handled by coordinators
var RequestTypes = []Type{
	SessionSetupRequest, SessionServerInfoRequest, SessionLogoutRequest, SessionBucketsRequest,
	BucketCreateRequest, BucketUpdateRequest, BucketDeleteRequest, BucketLoadRequest,
	BucketCollectionsRequest, BucketGroupsRequest, BucketHistoryRequest, BucketHistoryNextRequest,
	CollectionLoadRequest, CollectionCreateRequest, CollectionUpdateRequest, CollectionDeleteRequest,
	CollectionRecordsRequest, CollectionNextRecordsRequest,
	GroupLoadRequest, GroupCreateRequest, GroupUpdateRequest, GroupDeleteRequest,
	RecordLoadRequest, RecordCreateRequest, RecordUpdateRequest, RecordDeleteRequest,
	RecordBulkCreateRequest, AttachmentDeleteRequest,
	ServerHistoryClearRequest,
}

// IsRequest reports whether t is handled by a coordinator
func (t Type) IsRequest() bool {
	for _, r := range RequestTypes {
		if r == t {
			return true
		}
	}
	return false
}
