package kinto

import (
	"encoding/json"
	"strconv"
)

// Resource is a Kinto object (bucket, collection, group, record) as returned in "data".
type Resource map[string]interface{}

// ID returns the object id
func (r Resource) ID() string {
	id, _ := r["id"].(string)
	return id
}

// LastModified returns the object timestamp, 0 when absent
func (r Resource) LastModified() int64 {
	switch v := r["last_modified"].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

// Clone returns a shallow copy
func (r Resource) Clone() Resource {
	out := make(Resource, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Permissions maps a permission name ("read", "write", "record:create"...) to principals.
type Permissions map[string][]string

// ObjectResponse is the body of a single object endpoint
type ObjectResponse struct {
	Data        Resource    `json:"data"`
	Permissions Permissions `json:"permissions,omitempty"`
}

// ListResponse is one or more pages of a plural endpoint
type ListResponse struct {
	Data         []Resource `json:"data"`
	NextPage     string     `json:"-"`
	TotalRecords int        `json:"-"`
}

// HasNextPage reports whether the server announced another page
func (l *ListResponse) HasNextPage() bool {
	return l.NextPage != ""
}

// Settings are the public server settings relevant to clients
type Settings struct {
	BatchMaxRequests int  `json:"batch_max_requests"`
	Readonly         bool `json:"readonly"`
}

// User is the authenticated principal as reported by the server root
type User struct {
	ID         string   `json:"id"`
	Bucket     string   `json:"bucket,omitempty"`
	Principals []string `json:"principals,omitempty"`
}

// ServerInfo is the body of GET /
type ServerInfo struct {
	URL            string                 `json:"url"`
	ProjectName    string                 `json:"project_name"`
	ProjectVersion string                 `json:"project_version,omitempty"`
	ProjectDocs    string                 `json:"project_docs"`
	HTTPAPIVersion string                 `json:"http_api_version,omitempty"`
	Settings       Settings               `json:"settings"`
	Capabilities   map[string]interface{} `json:"capabilities"`
	User           *User                  `json:"user,omitempty"`
}

// DefaultBatchMaxRequests is used when the server does not announce a limit
const DefaultBatchMaxRequests = 25

// DefaultServerInfo is the server info used before any server answered
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		ProjectName:  "Kinto",
		Settings:     Settings{BatchMaxRequests: DefaultBatchMaxRequests},
		Capabilities: map[string]interface{}{},
	}
}

// HasCapability reports whether the server exposes the named capability
func (s ServerInfo) HasCapability(name string) bool {
	_, ok := s.Capabilities[name]
	return ok
}

// OpenIDProvider describes one entry of capabilities.openid.providers
type OpenIDProvider struct {
	Name             string `json:"name"`
	Issuer           string `json:"issuer,omitempty"`
	AuthPath         string `json:"auth_path"`
	ClientID         string `json:"client_id,omitempty"`
	HeaderType       string `json:"header_type"`
	UserinfoEndpoint string `json:"userinfo_endpoint,omitempty"`
}

// OpenIDProviders lists the OpenID providers the server announces
func (s ServerInfo) OpenIDProviders() []OpenIDProvider {
	capability, ok := s.Capabilities["openid"]
	if !ok {
		return nil
	}
	raw, err := json.Marshal(capability)
	if err != nil {
		return nil
	}
	var parsed struct {
		Providers []OpenIDProvider `json:"providers"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil
	}
	return parsed.Providers
}

// PermissionEntry is one item of GET /permissions
type PermissionEntry struct {
	ID           string   `json:"id"`
	ResourceName string   `json:"resource_name"`
	URI          string   `json:"uri"`
	BucketID     string   `json:"bucket_id,omitempty"`
	CollectionID string   `json:"collection_id,omitempty"`
	GroupID      string   `json:"group_id,omitempty"`
	RecordID     string   `json:"record_id,omitempty"`
	Permissions  []string `json:"permissions"`
}
