package kintotest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

func (s *Server) paginate(in incoming, path string, items []map[string]interface{}) outgoing {
	filtered := items[:0]
	for _, item := range items {
		if matches(item, in) {
			filtered = append(filtered, item)
		}
	}

	sortSpec := in.query.Get("_sort")
	if sortSpec == "" {
		sortSpec = "-last_modified"
	}
	sortItems(filtered, strings.Split(sortSpec, ","))

	total := len(filtered)
	offset, _ := strconv.Atoi(in.query.Get("_token"))
	if offset > total {
		offset = total
	}
	end := total
	headers := map[string]string{"Total-Records": strconv.Itoa(total)}
	if limit, err := strconv.Atoi(in.query.Get("_limit")); err == nil && limit > 0 && offset+limit < total {
		end = offset + limit
		next := in.query
		next.Set("_token", strconv.Itoa(end))
		headers["Next-Page"] = URL + path + "?" + next.Encode()
	}
	page := filtered[offset:end]

	if fields := in.query.Get("_fields"); fields != "" {
		keep := append(strings.Split(fields, ","), "id", "last_modified")
		for i, item := range page {
			projected := map[string]interface{}{}
			for _, k := range keep {
				if v, ok := item[k]; ok {
					projected[k] = v
				}
			}
			page[i] = projected
		}
	}

	if in.method == http.MethodHead {
		return outgoing{status: http.StatusOK, headers: headers}
	}
	return jsonOut(http.StatusOK, map[string]interface{}{"data": page}, headers)
}

func matches(item map[string]interface{}, in incoming) bool {
	lm := toFloat(item["last_modified"])
	for key, values := range in.query {
		if len(values) == 0 {
			continue
		}
		value := values[0]
		switch key {
		case "_since":
			since, _ := strconv.ParseFloat(strings.Trim(value, `"`), 64)
			if lm <= since {
				return false
			}
		case "_before":
			before, _ := strconv.ParseFloat(strings.Trim(value, `"`), 64)
			if lm >= before {
				return false
			}
		default:
			if strings.HasPrefix(key, "_") {
				continue
			}
			if fmt.Sprint(item[key]) != value {
				return false
			}
		}
	}
	return true
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}

func compareValues(a, b interface{}) int {
	_, aStr := a.(string)
	_, bStr := b.(string)
	if !aStr && !bStr && a != nil && b != nil {
		x, y := toFloat(a), toFloat(b)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func sortItems(items []map[string]interface{}, fields []string) {
	sort.SliceStable(items, func(i, j int) bool {
		for _, field := range fields {
			desc := strings.HasPrefix(field, "-")
			name := strings.TrimPrefix(field, "-")
			c := compareValues(items[i][name], items[j][name])
			if c == 0 {
				continue
			}
			if desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func (s *Server) attachment(in incoming, recordPath, collectionPath, rid string) outgoing {
	if _, ok := s.objects[collectionPath]; !ok {
		return notFound(collectionPath)
	}

	switch in.method {
	case http.MethodDelete:
		obj, ok := s.objects[recordPath]
		if !ok {
			return notFound(recordPath)
		}
		delete(obj.data, "attachment")
		obj.lastModified = s.tick()
		obj.data["last_modified"] = obj.lastModified
		s.recordHistory(in, recordPath, "record", "update", obj)
		return outgoing{status: http.StatusNoContent}
	case http.MethodPost:
	default:
		return errorOut(http.StatusMethodNotAllowed, 115, "Method not allowed on this endpoint.", nil)
	}

	_, params, err := mime.ParseMediaType(in.headers["Content-Type"])
	if err != nil || params["boundary"] == "" {
		return errorOut(http.StatusBadRequest, 107, "Content-Type should be multipart/form-data", nil)
	}
	form, err := multipart.NewReader(bytes.NewReader(in.body), params["boundary"]).ReadForm(32 << 20)
	if err != nil {
		return errorOut(http.StatusBadRequest, 107, err.Error(), nil)
	}
	defer form.RemoveAll()

	files := form.File["attachment"]
	if len(files) == 0 {
		return errorOut(http.StatusBadRequest, 107, "Attachment missing.", map[string]interface{}{"name": "attachment"})
	}
	f, err := files[0].Open()
	if err != nil {
		return errorOut(http.StatusBadRequest, 107, err.Error(), nil)
	}
	content, _ := io.ReadAll(f)
	f.Close()

	data := map[string]interface{}{}
	if existing, ok := s.objects[recordPath]; ok {
		data = copyMap(existing.data)
	}
	if raw := form.Value["data"]; len(raw) > 0 {
		var extra map[string]interface{}
		if err := json.Unmarshal([]byte(raw[0]), &extra); err != nil {
			return errorOut(http.StatusBadRequest, 107, "data is not valid JSON", nil)
		}
		for k, v := range extra {
			data[k] = v
		}
	}
	var perms map[string][]string
	if raw := form.Value["permissions"]; len(raw) > 0 {
		_ = json.Unmarshal([]byte(raw[0]), &perms)
	}

	sum := sha256.Sum256(content)
	segs := strings.Split(strings.TrimPrefix(collectionPath, "/"), "/")
	data["attachment"] = map[string]interface{}{
		"filename": files[0].Filename,
		"mimetype": files[0].Header.Get("Content-Type"),
		"size":     len(content),
		"hash":     hex.EncodeToString(sum[:]),
		"location": fmt.Sprintf("%s/%s/%s.bin", segs[1], segs[3], uuid.NewString()),
	}

	body, _ := json.Marshal(map[string]interface{}{"data": data, "permissions": perms})
	return s.putObject(incoming{method: http.MethodPut, headers: in.headers, body: body}, recordPath, "record", collectionPath, rid)
}

func jsonOut(status int, payload interface{}, headers map[string]string) outgoing {
	body, err := json.Marshal(payload)
	if err != nil {
		return errorOut(http.StatusInternalServerError, 999, err.Error(), nil)
	}
	if headers == nil {
		headers = map[string]string{}
	}
	return outgoing{status: status, headers: headers, body: body}
}

func errorOut(status, errno int, message string, details map[string]interface{}) outgoing {
	payload := map[string]interface{}{
		"code":    status,
		"errno":   errno,
		"error":   http.StatusText(status),
		"message": message,
	}
	if details != nil {
		payload["details"] = details
	}
	body, _ := json.Marshal(payload)
	return outgoing{status: status, headers: map[string]string{}, body: body}
}

func notFound(path string) outgoing {
	segs := strings.Split(strings.TrimPrefix(path, "/"), "/")
	details := map[string]interface{}{"id": segs[len(segs)-1]}
	if len(segs) >= 2 {
		details["resource_name"] = plurals[segs[len(segs)-2]]
	}
	return errorOut(http.StatusNotFound, 111, "The resource you are looking for could not be found.", details)
}

func preconditionFailed(obj *object) outgoing {
	details := map[string]interface{}{}
	if obj != nil {
		details["existing"] = obj.data
	}
	return errorOut(http.StatusPreconditionFailed, 114, "Resource was modified meanwhile", details)
}

func etag(lm int64) map[string]string {
	return map[string]string{"ETag": fmt.Sprintf(`"%d"`, lm)}
}

func copyMap(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
