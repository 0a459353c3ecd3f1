package contextkeys

import "context"

// Key is the type of every value the console stores in a context.Context
type Key string

func (k Key) String() string {
	return "kinto-admin/" + string(k)
}

const (
	// SessionIDKey is the console session bound to the request
	SessionIDKey = Key("session_id")
	// ClientIDKey identifies the browser owning the session and its server history
	ClientIDKey = Key("client_id")
	// ServerKey is the Kinto server URL the session talks to
	ServerKey = Key("server")
	// RequestIDKey correlates log lines of one HTTP request
	RequestIDKey = Key("request_id")
)

// All lists the keys in the order they are rendered in log entries
var All = []Key{SessionIDKey, ClientIDKey, ServerKey, RequestIDKey}

// Lookup returns the string stored under key, if any
func Lookup(ctx context.Context, key Key) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(key).(string)
	return v, ok && v != ""
}
