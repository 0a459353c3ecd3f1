package http

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"strconv"

	"kinto-admin/internal/admin/domain/action"
	"kinto-admin/internal/admin/domain/model"
	"kinto-admin/internal/kinto"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// createRequest is the body of resource creation endpoints
type createRequest struct {
	ID          string            `json:"id"`
	Data        kinto.Resource    `json:"data"`
	Permissions kinto.Permissions `json:"permissions"`
	Members     []string          `json:"members"`
}

type bulkRequest struct {
	Records []kinto.Resource `json:"records"`
}

func bucketSlice(s model.State) interface{}     { return s.Bucket }
func bucketsSlice(s model.State) interface{}    { return s.Buckets }
func collectionSlice(s model.State) interface{} { return s.Collection }
func groupSlice(s model.State) interface{}      { return s.Group }
func recordSlice(s model.State) interface{}     { return s.Record }

func (h *AdminHandler) registerBucketRoutes(router fiber.Router) {
	router.Get("/buckets", h.ListBuckets)
	router.Post("/buckets", h.CreateBucket)
	router.Get("/buckets/:bid", h.GetBucket)
	router.Put("/buckets/:bid", h.UpdateBucket)
	router.Delete("/buckets/:bid", h.DeleteBucket)
	router.Get("/buckets/:bid/collections", h.ListBucketCollections)
	router.Get("/buckets/:bid/groups", h.ListBucketGroups)
	router.Get("/buckets/:bid/history", h.ListBucketHistory)
	router.Get("/buckets/:bid/history/next", h.ListBucketNextHistory)
}

func (h *AdminHandler) registerCollectionRoutes(router fiber.Router) {
	router.Post("/buckets/:bid/collections", h.CreateCollection)
	router.Get("/buckets/:bid/collections/:cid", h.GetCollection)
	router.Put("/buckets/:bid/collections/:cid", h.UpdateCollection)
	router.Delete("/buckets/:bid/collections/:cid", h.DeleteCollection)
}

func (h *AdminHandler) registerGroupRoutes(router fiber.Router) {
	router.Post("/buckets/:bid/groups", h.CreateGroup)
	router.Get("/buckets/:bid/groups/:gid", h.GetGroup)
	router.Put("/buckets/:bid/groups/:gid", h.UpdateGroup)
	router.Delete("/buckets/:bid/groups/:gid", h.DeleteGroup)
}

func (h *AdminHandler) registerRecordRoutes(router fiber.Router) {
	records := router.Group("/buckets/:bid/collections/:cid/records")
	records.Get("/", h.ListRecords)
	records.Get("/next", h.ListNextRecords)
	records.Post("/", h.CreateRecord)
	records.Post("/bulk", h.BulkCreateRecords)
	records.Get("/:rid", h.GetRecord)
	records.Put("/:rid", h.UpdateRecord)
	records.Delete("/:rid", h.DeleteRecord)
	records.Delete("/:rid/attachment", h.DeleteAttachment)
}

// parseMutation reads an update body and points it at the target of the route
func parseMutation(c *fiber.Ctx, target action.Target) (action.Mutation, error) {
	var m action.Mutation
	if err := c.BodyParser(&m); err != nil {
		return m, badRequest("Invalid request body")
	}
	if m.Data == nil && m.Permissions == nil {
		return m, badRequest("Either data or permissions is required")
	}
	m.Target = target
	return m, nil
}

// queryFilters returns the query arguments except the reserved ones
func queryFilters(c *fiber.Ctx, reserved ...string) map[string]string {
	skip := make(map[string]bool, len(reserved))
	for _, r := range reserved {
		skip[r] = true
	}
	filters := map[string]string{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		if k := string(key); !skip[k] {
			filters[k] = string(value)
		}
	})
	if len(filters) == 0 {
		return nil
	}
	return filters
}

// Buckets

func (h *AdminHandler) ListBuckets(c *fiber.Ctx) error {
	return h.dispatch(c, action.ListBuckets(), bucketsSlice)
}

func (h *AdminHandler) CreateBucket(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return h.respondError(c, badRequest("Invalid request body"))
	}
	if req.ID == "" && req.Data.ID() == "" {
		return h.respondError(c, badRequest("A bucket id is required"))
	}
	return h.dispatch(c, action.CreateBucket(req.ID, req.Data), bucketsSlice)
}

func (h *AdminHandler) GetBucket(c *fiber.Ctx) error {
	return h.dispatch(c, action.LoadBucket(param(c, "bid")), bucketSlice)
}

func (h *AdminHandler) UpdateBucket(c *fiber.Ctx) error {
	m, err := parseMutation(c, action.Target{Bucket: param(c, "bid")})
	if err != nil {
		return h.respondError(c, err)
	}
	return h.dispatch(c, action.UpdateBucket(m), bucketSlice)
}

func (h *AdminHandler) DeleteBucket(c *fiber.Ctx) error {
	return h.dispatch(c, action.DeleteBucket(param(c, "bid")), bucketsSlice)
}

func (h *AdminHandler) ListBucketCollections(c *fiber.Ctx) error {
	return h.dispatch(c, action.ListBucketCollections(param(c, "bid")), func(s model.State) interface{} {
		return s.Bucket.Collections
	})
}

func (h *AdminHandler) ListBucketGroups(c *fiber.Ctx) error {
	return h.dispatch(c, action.ListBucketGroups(param(c, "bid")), func(s model.State) interface{} {
		return s.Bucket.Groups
	})
}

func (h *AdminHandler) ListBucketHistory(c *fiber.Ctx) error {
	return h.dispatch(c, action.ListBucketHistory(param(c, "bid"), queryFilters(c)), func(s model.State) interface{} {
		return s.Bucket.History
	})
}

func (h *AdminHandler) ListBucketNextHistory(c *fiber.Ctx) error {
	return h.dispatch(c, action.ListBucketNextHistory(), func(s model.State) interface{} {
		return s.Bucket.History
	})
}

// Collections

func (h *AdminHandler) CreateCollection(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return h.respondError(c, badRequest("Invalid request body"))
	}
	data := req.Data
	if data == nil {
		data = kinto.Resource{}
	}
	if req.ID != "" {
		data["id"] = req.ID
	}
	return h.dispatch(c, action.CreateCollection(param(c, "bid"), data), bucketsSlice)
}

func (h *AdminHandler) GetCollection(c *fiber.Ctx) error {
	return h.dispatch(c, action.LoadCollection(param(c, "bid"), param(c, "cid")), collectionSlice)
}

func (h *AdminHandler) UpdateCollection(c *fiber.Ctx) error {
	m, err := parseMutation(c, action.Target{Bucket: param(c, "bid"), Collection: param(c, "cid")})
	if err != nil {
		return h.respondError(c, err)
	}
	return h.dispatch(c, action.UpdateCollection(m), collectionSlice)
}

func (h *AdminHandler) DeleteCollection(c *fiber.Ctx) error {
	return h.dispatch(c, action.DeleteCollection(param(c, "bid"), param(c, "cid")), bucketsSlice)
}

// Groups

func (h *AdminHandler) CreateGroup(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return h.respondError(c, badRequest("Invalid request body"))
	}
	gid := req.ID
	if gid == "" {
		gid = req.Data.ID()
	}
	if gid == "" {
		return h.respondError(c, badRequest("A group id is required"))
	}
	return h.dispatch(c, action.CreateGroup(param(c, "bid"), gid, req.Members, req.Data), bucketSlice)
}

func (h *AdminHandler) GetGroup(c *fiber.Ctx) error {
	return h.dispatch(c, action.LoadGroup(param(c, "bid"), param(c, "gid")), groupSlice)
}

func (h *AdminHandler) UpdateGroup(c *fiber.Ctx) error {
	m, err := parseMutation(c, action.Target{Bucket: param(c, "bid"), Group: param(c, "gid")})
	if err != nil {
		return h.respondError(c, err)
	}
	return h.dispatch(c, action.UpdateGroup(m), groupSlice)
}

func (h *AdminHandler) DeleteGroup(c *fiber.Ctx) error {
	return h.dispatch(c, action.DeleteGroup(param(c, "bid"), param(c, "gid")), bucketSlice)
}

// Records

func (h *AdminHandler) ListRecords(c *fiber.Ctx) error {
	q := action.RecordsQuery{
		Target:  action.Target{Bucket: param(c, "bid"), Collection: param(c, "cid")},
		Sort:    query(c, "sort"),
		Where:   query(c, "where"),
		Filters: queryFilters(c, "sort", "where"),
	}
	return h.dispatch(c, action.ListRecords(q), collectionSlice)
}

func (h *AdminHandler) ListNextRecords(c *fiber.Ctx) error {
	return h.dispatch(c, action.ListNextRecords(), collectionSlice)
}

// CreateRecord accepts a JSON body, or a multipart form with a "data" JSON
// field and an "attachment" file.
func (h *AdminHandler) CreateRecord(c *fiber.Ctx) error {
	m := action.Mutation{Target: action.Target{Bucket: param(c, "bid"), Collection: param(c, "cid")}}

	if form, err := c.MultipartForm(); err == nil {
		if values := form.Value["data"]; len(values) > 0 {
			if err := json.Unmarshal([]byte(values[0]), &m.Data); err != nil {
				return h.respondError(c, badRequest("Invalid record data"))
			}
		}
		if values := form.Value["permissions"]; len(values) > 0 {
			if err := json.Unmarshal([]byte(values[0]), &m.Permissions); err != nil {
				return h.respondError(c, badRequest("Invalid record permissions"))
			}
		}
		if header, err := c.FormFile("attachment"); err == nil {
			attachment, err := readAttachment(header)
			if err != nil {
				return h.respondError(c, err)
			}
			m.Attachment = attachment
		}
	} else {
		var req createRequest
		if err := c.BodyParser(&req); err != nil {
			return h.respondError(c, badRequest("Invalid request body"))
		}
		m.Data = req.Data
		m.Permissions = req.Permissions
	}

	if m.Data == nil {
		m.Data = kinto.Resource{}
	}
	m.Record = m.Data.ID()
	if m.Attachment != nil && m.Record == "" {
		m.Record = uuid.NewString()
	}
	return h.dispatch(c, action.CreateRecord(m), collectionSlice)
}

func readAttachment(header *multipart.FileHeader) (*kinto.Attachment, error) {
	f, err := header.Open()
	if err != nil {
		return nil, badRequest("Invalid attachment")
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, badRequest("Invalid attachment")
	}
	contentType := header.Header.Get(fiber.HeaderContentType)
	if contentType == "" {
		contentType = fiber.MIMEOctetStream
	}
	return &kinto.Attachment{Filename: header.Filename, ContentType: contentType, Content: content}, nil
}

func (h *AdminHandler) BulkCreateRecords(c *fiber.Ctx) error {
	var req bulkRequest
	if err := c.BodyParser(&req); err != nil || len(req.Records) == 0 {
		return h.respondError(c, badRequest("A non empty list of records is required"))
	}
	return h.dispatch(c, action.BulkCreateRecords(param(c, "bid"), param(c, "cid"), req.Records), collectionSlice)
}

func (h *AdminHandler) GetRecord(c *fiber.Ctx) error {
	return h.dispatch(c, action.LoadRecord(param(c, "bid"), param(c, "cid"), param(c, "rid")), recordSlice)
}

func (h *AdminHandler) UpdateRecord(c *fiber.Ctx) error {
	m, err := parseMutation(c, action.Target{Bucket: param(c, "bid"), Collection: param(c, "cid"), Record: param(c, "rid")})
	if err != nil {
		return h.respondError(c, err)
	}
	return h.dispatch(c, action.UpdateRecord(m), recordSlice)
}

// DeleteRecord deletes a record; ?last_modified= makes the deletion safe
func (h *AdminHandler) DeleteRecord(c *fiber.Ctx) error {
	var lastModified int64
	if raw := query(c, "last_modified"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return h.respondError(c, badRequest("Invalid last_modified"))
		}
		lastModified = n
	}
	return h.dispatch(c, action.DeleteRecord(param(c, "bid"), param(c, "cid"), param(c, "rid"), lastModified), collectionSlice)
}

func (h *AdminHandler) DeleteAttachment(c *fiber.Ctx) error {
	return h.dispatch(c, action.DeleteAttachment(param(c, "bid"), param(c, "cid"), param(c, "rid")), recordSlice)
}
