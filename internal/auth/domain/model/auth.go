package model

import (
	"encoding/base64"
	"fmt"

	"kinto-admin/internal/kinto"
)

// Method is an authentication method supported by Kinto servers
type Method string

const (
	MethodAnonymous Method = "anonymous"
	MethodBasicAuth Method = "basicauth"
	MethodAccount   Method = "account"
	MethodFxA       Method = "fxa"
	MethodLDAP      Method = "ldap"
	MethodPortier   Method = "portier"
	MethodOpenID    Method = "openid"
)

// KnownMethods lists the non-anonymous methods in the order they are offered
var KnownMethods = []Method{MethodBasicAuth, MethodAccount, MethodFxA, MethodLDAP, MethodPortier, MethodOpenID}

var labels = map[Method]string{
	MethodAnonymous: "Anonymous",
	MethodBasicAuth: "Basic Auth",
	MethodAccount:   "Kinto Account Auth",
	MethodFxA:       "Firefox Account",
	MethodLDAP:      "LDAP",
	MethodPortier:   "Portier",
	MethodOpenID:    "OpenID",
}

// Label returns the human readable name of the method
func (m Method) Label() string {
	if l, ok := labels[m]; ok {
		return l
	}
	return string(m)
}

// Valid reports whether m is a known method
func (m Method) Valid() bool {
	_, ok := labels[m]
	return ok
}

// UsesCredentials reports whether the method authenticates with a username and password
func (m Method) UsesCredentials() bool {
	return m == MethodBasicAuth || m == MethodAccount || m == MethodLDAP
}

// IsExternal reports whether the method requires a redirect to the server
func (m Method) IsExternal() bool {
	return m == MethodFxA || m == MethodPortier || m == MethodOpenID
}

// Credentials are the username and password of credential based methods
type Credentials struct {
	Username string `json:"username" bson:"username"`
	Password string `json:"password" bson:"password"`
}

// AuthData is what the console knows about how to authenticate against a server
type AuthData struct {
	Server      string       `json:"server"`
	AuthType    Method       `json:"authType"`
	Credentials *Credentials `json:"credentials,omitempty"`
	Email       string       `json:"email,omitempty"`
	Provider    string       `json:"provider,omitempty"`
	Token       string       `json:"token,omitempty"`
	TokenType   string       `json:"tokenType,omitempty"`
	RedirectURL string       `json:"redirectURL,omitempty"`
	ExpiresAt   int64        `json:"expiresAt,omitempty"`
}

// AnonymousAuthData returns anonymous auth data for a server
func AnonymousAuthData(server string) AuthData {
	return AuthData{Server: server, AuthType: MethodAnonymous}
}

// AuthorizationHeader returns the Authorization header value for the
// remote server, or "" for anonymous access.
func (a AuthData) AuthorizationHeader() string {
	switch a.AuthType {
	case MethodBasicAuth, MethodAccount, MethodLDAP:
		if a.Credentials == nil {
			return ""
		}
		raw := a.Credentials.Username + ":" + a.Credentials.Password
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
	case MethodFxA:
		if a.Token == "" {
			return ""
		}
		return "Bearer " + a.Token
	case MethodPortier:
		if a.Token == "" {
			return ""
		}
		return "Portier " + a.Token
	case MethodOpenID:
		if a.Token == "" {
			return ""
		}
		tokenType := a.TokenType
		if tokenType == "" {
			tokenType = "Bearer"
		}
		return fmt.Sprintf("%s %s", tokenType, a.Token)
	}
	return ""
}

// DecisionKind tells the console what to do with a submitted auth form
type DecisionKind string

const (
	// DecisionSetup means a session can be set up right away
	DecisionSetup DecisionKind = "setup"
	// DecisionExternal means the browser must go through the server login (fxa, portier)
	DecisionExternal DecisionKind = "external"
	// DecisionOpenID means the browser must go through an OpenID provider
	DecisionOpenID DecisionKind = "openid"
)

// SubmitDecision is the outcome of resolving a submitted auth form
type SubmitDecision struct {
	Kind       DecisionKind          `json:"kind"`
	AuthData   AuthData              `json:"authData"`
	RedirectTo string                `json:"redirectTo,omitempty"`
	Provider   *kinto.OpenIDProvider `json:"provider,omitempty"`
}

// MethodInfo describes a supported method for display
type MethodInfo struct {
	Method Method `json:"method"`
	Label  string `json:"label"`
}
