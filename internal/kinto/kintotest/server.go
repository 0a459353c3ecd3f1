// Package kintotest provides an in-memory Kinto server for tests.
package kintotest

import (
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

// URL is the server root the fake answers on
const URL = "http://kinto.test/v1"

const prefix = "/v1"

type object struct {
	kind         string
	parent       string
	data         map[string]interface{}
	permissions  map[string][]string
	lastModified int64
}

type failure struct {
	status  int
	errno   int
	message string
}

// Server is an in-memory Kinto server reachable through Doer()
type Server struct {
	app *fiber.App
	ln  *fasthttputil.InmemoryListener

	mu          sync.Mutex
	objects     map[string]*object
	history     map[string][]map[string]interface{}
	accounts    map[string]string
	extraPerms  []map[string]interface{}
	failures    map[string][]failure
	requests    []string
	clock       int64
	requireAuth bool

	Info          map[string]interface{}
	BatchMaxItems int
}

// Option configures the fake server
type Option func(*Server)

// WithAccount registers an Authorization header value and the user id it authenticates
func WithAccount(authorization, userID string) Option {
	return func(s *Server) { s.accounts[authorization] = userID }
}

// RequireAuth rejects unauthenticated requests on every endpoint but the root
func RequireAuth() Option {
	return func(s *Server) { s.requireAuth = true }
}

// WithCapability adds a capability to the root document
func WithCapability(name string, value map[string]interface{}) Option {
	return func(s *Server) {
		caps := s.Info["capabilities"].(map[string]interface{})
		caps[name] = value
	}
}

// WithBatchMaxRequests sets settings.batch_max_requests
func WithBatchMaxRequests(n int) Option {
	return func(s *Server) { s.BatchMaxItems = n }
}

// NewServer starts the fake server
func NewServer(opts ...Option) *Server {
	s := &Server{
		ln:       fasthttputil.NewInmemoryListener(),
		objects:  map[string]*object{},
		history:  map[string][]map[string]interface{}{},
		accounts: map[string]string{},
		failures: map[string][]failure{},
		clock:    time.Now().UnixMilli(),
		Info: map[string]interface{}{
			"project_name":     "kinto",
			"project_version":  "17.1.0",
			"project_docs":     "https://kinto.readthedocs.io/",
			"http_api_version": "1.22",
			"url":              URL + "/",
			"capabilities":     map[string]interface{}{},
		},
		BatchMaxItems: 25,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		// stored objects are keyed on the request path
		Immutable: true,
		BodyLimit: 16 * 1024 * 1024,
	})
	s.app.All("/*", s.handle)

	go func() {
		_ = s.app.Listener(s.ln)
	}()
	return s
}

// Doer returns an HTTP client dialing the in-memory listener
func (s *Server) Doer() *fasthttp.Client {
	return &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) {
			return s.ln.Dial()
		},
	}
}

// Close stops the server
func (s *Server) Close() {
	_ = s.app.Shutdown()
	_ = s.ln.Close()
}

// FailNext makes the next request matching method and path (relative to the
// server root, e.g. "/buckets/b1") answer with the given status.
func (s *Server) FailNext(method, path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.failures[key] = append(s.failures[key], failure{status: status, errno: 999, message: message})
}

// AddPermissionEntry adds an entry to GET /permissions that does not match a stored object
func (s *Server) AddPermissionEntry(entry map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extraPerms = append(s.extraPerms, entry)
}

// Requests returns "METHOD path" for every request received, batch sub-requests included
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Exists reports whether an object is stored at path
func (s *Server) Exists(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[path]
	return ok
}

// Data returns a copy of the data stored at path
func (s *Server) Data(path string) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[path]
	if !ok {
		return nil
	}
	return copyMap(obj.data)
}

// Permissions returns a copy of the permissions stored at path
func (s *Server) Permissions(path string) map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[path]
	if !ok {
		return nil
	}
	out := map[string][]string{}
	for k, v := range obj.permissions {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (s *Server) handle(c *fiber.Ctx) error {
	query, _ := url.ParseQuery(string(c.Request().URI().QueryString()))
	headers := map[string]string{}
	c.Request().Header.VisitAll(func(k, v []byte) {
		headers[string(k)] = string(v)
	})

	res := s.dispatch(incoming{
		method:  c.Method(),
		path:    c.Path(),
		query:   query,
		body:    append([]byte(nil), c.Body()...),
		headers: headers,
	})

	for k, v := range res.headers {
		c.Set(k, v)
	}
	c.Status(res.status)
	if res.body == nil {
		return nil
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(res.body)
}
