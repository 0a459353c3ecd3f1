package kintotest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type incoming struct {
	method  string
	path    string
	query   url.Values
	body    []byte
	headers map[string]string
}

type outgoing struct {
	status  int
	headers map[string]string
	body    []byte
}

var plurals = map[string]string{
	"buckets":     "bucket",
	"collections": "collection",
	"groups":      "group",
	"records":     "record",
}

func (s *Server) dispatch(in incoming) outgoing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route(in)
}

func (s *Server) route(in incoming) outgoing {
	if !strings.HasPrefix(in.path, prefix) {
		return errorOut(http.StatusNotFound, 111, "The resource you are looking for could not be found.", nil)
	}
	path := "/" + strings.Trim(strings.TrimPrefix(in.path, prefix), "/")
	s.requests = append(s.requests, in.method+" "+path)

	key := in.method + " " + path
	if queue := s.failures[key]; len(queue) > 0 {
		f := queue[0]
		s.failures[key] = queue[1:]
		return errorOut(f.status, f.errno, f.message, nil)
	}

	if path == "/" {
		return s.serverInfo(in)
	}
	if s.requireAuth && s.principal(in) == "" {
		return errorOut(http.StatusUnauthorized, 104, "Please authenticate yourself to use this endpoint.", nil)
	}

	switch path {
	case "/batch":
		if in.method != http.MethodPost {
			return errorOut(http.StatusMethodNotAllowed, 115, "Method not allowed on this endpoint.", nil)
		}
		return s.batch(in)
	case "/permissions":
		return s.permissions(in)
	}

	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if segs[0] != "buckets" {
		return notFound(path)
	}

	switch len(segs) {
	case 1:
		return s.collectionEndpoint(in, path, "bucket", "")
	case 2:
		return s.objectEndpoint(in, path, "bucket", "", segs[1])
	case 3:
		if segs[2] == "history" {
			return s.listHistory(in, segs[1])
		}
		if kind, ok := plurals[segs[2]]; ok && kind != "record" && kind != "bucket" {
			return s.collectionEndpoint(in, path, kind, "/buckets/"+segs[1])
		}
	case 4:
		if kind, ok := plurals[segs[2]]; ok && kind != "record" && kind != "bucket" {
			return s.objectEndpoint(in, path, kind, "/buckets/"+segs[1], segs[3])
		}
	case 5:
		if segs[2] == "collections" && segs[4] == "records" {
			return s.collectionEndpoint(in, path, "record", "/"+strings.Join(segs[:4], "/"))
		}
	case 6:
		if segs[2] == "collections" && segs[4] == "records" {
			return s.objectEndpoint(in, path, "record", "/"+strings.Join(segs[:4], "/"), segs[5])
		}
	case 7:
		if segs[2] == "collections" && segs[4] == "records" && segs[6] == "attachment" {
			return s.attachment(in, "/"+strings.Join(segs[:6], "/"), "/"+strings.Join(segs[:4], "/"), segs[5])
		}
	}
	return notFound(path)
}

func (s *Server) principal(in incoming) string {
	header := in.headers["Authorization"]
	if header == "" {
		return ""
	}
	if id, ok := s.accounts[header]; ok {
		return id
	}
	if len(s.accounts) == 0 {
		return "basicauth:user"
	}
	return ""
}

func (s *Server) tick() int64 {
	s.clock++
	return s.clock
}

func (s *Server) serverInfo(in incoming) outgoing {
	info := map[string]interface{}{}
	for k, v := range s.Info {
		info[k] = v
	}
	info["settings"] = map[string]interface{}{
		"batch_max_requests": s.BatchMaxItems,
		"readonly":           false,
	}
	if user := s.principal(in); user != "" {
		info["user"] = map[string]interface{}{
			"id":         user,
			"principals": []string{user, "system.Authenticated", "system.Everyone"},
		}
	}
	return jsonOut(http.StatusOK, info, nil)
}

func (s *Server) collectionEndpoint(in incoming, path, kind, parent string) outgoing {
	if parent != "" {
		if _, ok := s.objects[parent]; !ok {
			return notFound(parent)
		}
	}

	switch in.method {
	case http.MethodGet, http.MethodHead:
		items := []map[string]interface{}{}
		for _, obj := range s.objects {
			if obj.kind == kind && obj.parent == parent {
				items = append(items, copyMap(obj.data))
			}
		}
		return s.paginate(in, path, items)
	case http.MethodPost:
		var body struct {
			Data map[string]interface{} `json:"data"`
		}
		_ = json.Unmarshal(in.body, &body)
		id, _ := body.Data["id"].(string)
		if id == "" {
			id = uuid.NewString()
		}
		if _, exists := s.objects[path+"/"+id]; exists {
			return s.getObject(path + "/" + id)
		}
		return s.putObject(in, path+"/"+id, kind, parent, id)
	}
	return errorOut(http.StatusMethodNotAllowed, 115, "Method not allowed on this endpoint.", nil)
}

func (s *Server) objectEndpoint(in incoming, path, kind, parent, id string) outgoing {
	switch in.method {
	case http.MethodGet:
		return s.getObject(path)
	case http.MethodPut:
		return s.putObject(in, path, kind, parent, id)
	case http.MethodPatch:
		return s.patchObject(in, path)
	case http.MethodDelete:
		return s.deleteObject(in, path)
	}
	return errorOut(http.StatusMethodNotAllowed, 115, "Method not allowed on this endpoint.", nil)
}

func (s *Server) getObject(path string) outgoing {
	obj, ok := s.objects[path]
	if !ok {
		return notFound(path)
	}
	return jsonOut(http.StatusOK, map[string]interface{}{
		"data":        obj.data,
		"permissions": obj.permissions,
	}, etag(obj.lastModified))
}

func (s *Server) checkPreconditions(in incoming, obj *object) *outgoing {
	if match := in.headers["If-Match"]; match != "" {
		want, _ := strconv.ParseInt(strings.Trim(match, `"`), 10, 64)
		if obj == nil || obj.lastModified != want {
			out := preconditionFailed(obj)
			return &out
		}
	}
	if in.headers["If-None-Match"] == "*" && obj != nil {
		out := preconditionFailed(obj)
		return &out
	}
	return nil
}

type objectBody struct {
	Data        map[string]interface{} `json:"data"`
	Permissions map[string][]string    `json:"permissions"`
}

func (s *Server) putObject(in incoming, path, kind, parent, id string) outgoing {
	if parent != "" {
		if _, ok := s.objects[parent]; !ok {
			return notFound(parent)
		}
	}
	existing := s.objects[path]
	if failed := s.checkPreconditions(in, existing); failed != nil {
		return *failed
	}

	var body objectBody
	if len(in.body) > 0 {
		if err := json.Unmarshal(in.body, &body); err != nil {
			return errorOut(http.StatusBadRequest, 107, "Invalid JSON body", nil)
		}
	}
	if body.Data == nil {
		body.Data = map[string]interface{}{}
	}
	if kind == "group" {
		if _, ok := body.Data["members"]; !ok {
			return errorOut(http.StatusBadRequest, 107, "data.members in body: Required", map[string]interface{}{"location": "body", "name": "data.members"})
		}
	}

	lm := s.tick()
	body.Data["id"] = id
	body.Data["last_modified"] = lm

	obj := &object{kind: kind, parent: parent, data: body.Data, lastModified: lm}
	switch {
	case body.Permissions != nil:
		obj.permissions = body.Permissions
	case existing != nil:
		obj.permissions = existing.permissions
	default:
		obj.permissions = map[string][]string{"write": {s.principalOrEveryone(in)}}
	}
	s.objects[path] = obj

	status, action := http.StatusCreated, "create"
	if existing != nil {
		status, action = http.StatusOK, "update"
	}
	s.recordHistory(in, path, kind, action, obj)
	return jsonOut(status, map[string]interface{}{"data": obj.data, "permissions": obj.permissions}, etag(lm))
}

func (s *Server) patchObject(in incoming, path string) outgoing {
	obj, ok := s.objects[path]
	if !ok {
		return notFound(path)
	}
	if failed := s.checkPreconditions(in, obj); failed != nil {
		return *failed
	}
	var body objectBody
	if err := json.Unmarshal(in.body, &body); err != nil {
		return errorOut(http.StatusBadRequest, 107, "Invalid JSON body", nil)
	}
	for k, v := range body.Data {
		if k == "id" || k == "last_modified" {
			continue
		}
		obj.data[k] = v
	}
	if body.Permissions != nil {
		obj.permissions = body.Permissions
	}
	obj.lastModified = s.tick()
	obj.data["last_modified"] = obj.lastModified
	s.recordHistory(in, path, obj.kind, "update", obj)
	return jsonOut(http.StatusOK, map[string]interface{}{"data": obj.data, "permissions": obj.permissions}, etag(obj.lastModified))
}

func (s *Server) deleteObject(in incoming, path string) outgoing {
	obj, ok := s.objects[path]
	if !ok {
		return notFound(path)
	}
	if failed := s.checkPreconditions(in, obj); failed != nil {
		return *failed
	}
	for key := range s.objects {
		if key == path || strings.HasPrefix(key, path+"/") {
			delete(s.objects, key)
		}
	}
	lm := s.tick()
	id, _ := obj.data["id"].(string)
	if obj.kind == "bucket" {
		delete(s.history, id)
	} else {
		s.recordHistory(in, path, obj.kind, "delete", &object{data: map[string]interface{}{"id": id, "last_modified": lm, "deleted": true}, lastModified: lm})
	}
	return jsonOut(http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"id": id, "last_modified": lm, "deleted": true},
	}, nil)
}

func (s *Server) principalOrEveryone(in incoming) string {
	if p := s.principal(in); p != "" {
		return p
	}
	return "system.Everyone"
}

func (s *Server) recordHistory(in incoming, path, kind, action string, obj *object) {
	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(segs) < 2 {
		return
	}
	bid := segs[1]
	entry := map[string]interface{}{
		"id":            uuid.NewString(),
		"action":        action,
		"uri":           path,
		"resource_name": kind,
		"bucket_id":     bid,
		"user_id":       s.principalOrEveryone(in),
		"last_modified": obj.lastModified,
		"target":        map[string]interface{}{"data": copyMap(obj.data), "permissions": obj.permissions},
	}
	if len(segs) >= 4 {
		entry[strings.TrimSuffix(segs[2], "s")+"_id"] = segs[3]
	}
	if len(segs) >= 6 {
		entry["record_id"] = segs[5]
	}
	s.history[bid] = append(s.history[bid], entry)
}

func (s *Server) listHistory(in incoming, bid string) outgoing {
	if _, ok := s.objects["/buckets/"+bid]; !ok {
		return notFound("/buckets/" + bid)
	}
	items := make([]map[string]interface{}, 0, len(s.history[bid]))
	for _, entry := range s.history[bid] {
		items = append(items, copyMap(entry))
	}
	return s.paginate(in, "/buckets/"+bid+"/history", items)
}

func (s *Server) permissions(in incoming) outgoing {
	items := []map[string]interface{}{}
	for path, obj := range s.objects {
		segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
		perms := make([]string, 0, len(obj.permissions))
		for name := range obj.permissions {
			perms = append(perms, name)
		}
		sort.Strings(perms)
		entry := map[string]interface{}{
			"id":            obj.data["id"],
			"uri":           path,
			"resource_name": obj.kind,
			"bucket_id":     segs[1],
			"permissions":   perms,
		}
		if obj.kind == "collection" || obj.kind == "record" {
			entry["collection_id"] = segs[3]
		}
		if obj.kind == "group" {
			entry["group_id"] = segs[3]
		}
		items = append(items, entry)
	}
	for _, extra := range s.extraPerms {
		items = append(items, copyMap(extra))
	}
	sort.SliceStable(items, func(i, j int) bool {
		return fmt.Sprint(items[i]["uri"]) < fmt.Sprint(items[j]["uri"])
	})
	return jsonOut(http.StatusOK, map[string]interface{}{"data": items}, nil)
}

func (s *Server) batch(in incoming) outgoing {
	var body struct {
		Defaults struct {
			Method  string            `json:"method"`
			Headers map[string]string `json:"headers"`
		} `json:"defaults"`
		Requests []struct {
			Method  string            `json:"method"`
			Path    string            `json:"path"`
			Body    json.RawMessage   `json:"body"`
			Headers map[string]string `json:"headers"`
		} `json:"requests"`
	}
	if err := json.Unmarshal(in.body, &body); err != nil {
		return errorOut(http.StatusBadRequest, 107, "Invalid JSON body", nil)
	}
	if len(body.Requests) > s.BatchMaxItems {
		return errorOut(http.StatusBadRequest, 107, fmt.Sprintf("Number of requests is limited to %d", s.BatchMaxItems), nil)
	}

	responses := make([]map[string]interface{}, 0, len(body.Requests))
	for _, sub := range body.Requests {
		method := sub.Method
		if method == "" {
			method = body.Defaults.Method
		}
		headers := map[string]string{"Authorization": in.headers["Authorization"]}
		for k, v := range body.Defaults.Headers {
			headers[k] = v
		}
		for k, v := range sub.Headers {
			headers[k] = v
		}
		path, rawQuery, _ := strings.Cut(sub.Path, "?")
		query, _ := url.ParseQuery(rawQuery)
		var payload []byte
		if len(sub.Body) > 0 && string(sub.Body) != "null" {
			payload = sub.Body
		}

		out := s.route(incoming{method: method, path: prefix + path, query: query, body: payload, headers: headers})
		var respBody json.RawMessage = out.body
		if respBody == nil {
			respBody = json.RawMessage("null")
		}
		responses = append(responses, map[string]interface{}{
			"status":  out.status,
			"path":    prefix + sub.Path,
			"body":    respBody,
			"headers": out.headers,
		})
	}
	return jsonOut(http.StatusOK, map[string]interface{}{"responses": responses}, nil)
}
