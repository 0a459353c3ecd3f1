package model

import (
	"time"

	authmodel "kinto-admin/internal/auth/domain/model"
	"kinto-admin/internal/kinto"
)

// State is the console state of one session
type State struct {
	Session       SessionState    `json:"session"`
	Buckets       []BucketEntry   `json:"buckets"`
	Bucket        BucketState     `json:"bucket"`
	Collection    CollectionState `json:"collection"`
	Group         GroupState      `json:"group"`
	Record        RecordState     `json:"record"`
	Notifications []Notification  `json:"notifications"`
	Route         Route           `json:"route"`
	History       []string        `json:"history"`
}

// SessionState is what the console knows about the current server and user
type SessionState struct {
	Busy           bool                    `json:"busy"`
	Authenticating bool                    `json:"authenticating"`
	Authenticated  bool                    `json:"authenticated"`
	Server         string                  `json:"server,omitempty"`
	AuthType       authmodel.Method        `json:"authType,omitempty"`
	Email          string                  `json:"email,omitempty"`
	RedirectURL    string                  `json:"redirectURL,omitempty"`
	ServerInfo     kinto.ServerInfo        `json:"serverInfo"`
	Permissions    []kinto.PermissionEntry `json:"permissions,omitempty"`
}

// BucketEntry is a bucket in the sidebar listing, with its collections
type BucketEntry struct {
	ID           string            `json:"id"`
	LastModified int64             `json:"last_modified,omitempty"`
	Permissions  []string          `json:"permissions"`
	ReadOnly     bool              `json:"readonly"`
	CanCreate    bool              `json:"canCreateCollection"`
	Collections  []CollectionEntry `json:"collections"`
}

// CollectionEntry is a collection in the sidebar listing
type CollectionEntry struct {
	ID           string   `json:"id"`
	LastModified int64    `json:"last_modified,omitempty"`
	Permissions  []string `json:"permissions"`
	ReadOnly     bool     `json:"readonly"`
}

// ListState is a paginated list of objects
type ListState struct {
	Entries     []kinto.Resource `json:"entries"`
	Loaded      bool             `json:"loaded"`
	HasNextPage bool             `json:"hasNextPage"`
	NextPage    string           `json:"-"`
}

// BucketState is the currently displayed bucket
type BucketState struct {
	Busy        bool              `json:"busy"`
	ID          string            `json:"id,omitempty"`
	Data        kinto.Resource    `json:"data"`
	Permissions kinto.Permissions `json:"permissions"`
	Collections ListState         `json:"collections"`
	Groups      []kinto.Resource  `json:"groups"`
	History     ListState         `json:"history"`
}

// CollectionState is the currently displayed collection and its records
type CollectionState struct {
	Busy           bool              `json:"busy"`
	ID             string            `json:"id,omitempty"`
	Bucket         string            `json:"bucket,omitempty"`
	Label          string            `json:"label,omitempty"`
	Data           kinto.Resource    `json:"data"`
	Permissions    kinto.Permissions `json:"permissions"`
	Records        []kinto.Resource  `json:"records"`
	RecordsLoaded  bool              `json:"recordsLoaded"`
	HasNextRecords bool              `json:"hasNextRecords"`
	NextRecords    string            `json:"-"`
	CurrentSort    string            `json:"currentSort"`
	Where          string            `json:"where,omitempty"`
	TotalRecords   int               `json:"totalRecords"`
}

// GroupState is the currently displayed group
type GroupState struct {
	Busy        bool              `json:"busy"`
	Data        kinto.Resource    `json:"data"`
	Permissions kinto.Permissions `json:"permissions"`
}

// RecordState is the currently displayed record
type RecordState struct {
	Busy        bool              `json:"busy"`
	Data        kinto.Resource    `json:"data"`
	Permissions kinto.Permissions `json:"permissions"`
}

// Route is the location the console navigated to
type Route struct {
	Path      string    `json:"path"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultSort is the records ordering used until the user picks one
const DefaultSort = "-last_modified"

// InitialState is the state of a fresh console
func InitialState() State {
	return State{
		Session: SessionState{
			ServerInfo: kinto.DefaultServerInfo(),
		},
		Buckets:       []BucketEntry{},
		Bucket:        InitialBucketState(),
		Collection:    InitialCollectionState(),
		Group:         GroupState{Data: kinto.Resource{}, Permissions: kinto.Permissions{}},
		Record:        RecordState{Data: kinto.Resource{}, Permissions: kinto.Permissions{}},
		Notifications: []Notification{},
		History:       []string{},
	}
}

// InitialBucketState is an empty bucket
func InitialBucketState() BucketState {
	return BucketState{
		Data:        kinto.Resource{},
		Permissions: kinto.Permissions{},
		Collections: ListState{Entries: []kinto.Resource{}},
		Groups:      []kinto.Resource{},
		History:     ListState{Entries: []kinto.Resource{}},
	}
}

// InitialCollectionState is an empty collection
func InitialCollectionState() CollectionState {
	return CollectionState{
		Data:        kinto.Resource{},
		Permissions: kinto.Permissions{},
		Records:     []kinto.Resource{},
		CurrentSort: DefaultSort,
	}
}
