package kinto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// Attachment is a file to upload alongside a record
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// AddAttachment uploads a file to a record, creating the record when needed.
// An empty rid creates a new record with a random id.
func (c *Client) AddAttachment(ctx context.Context, bid, cid, rid string, att Attachment, data Resource, perms Permissions) (*ObjectResponse, error) {
	if rid == "" {
		rid = uuid.NewString()
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="attachment"; filename=%q`, att.Filename))
	h.Set("Content-Type", contentType)
	part, err := form.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(att.Content); err != nil {
		return nil, err
	}

	if len(data) > 0 {
		payload, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		if err := form.WriteField("data", string(payload)); err != nil {
			return nil, err
		}
	}
	if len(perms) > 0 {
		payload, err := json.Marshal(perms)
		if err != nil {
			return nil, err
		}
		if err := form.WriteField("permissions", string(payload)); err != nil {
			return nil, err
		}
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	resp, err := c.execute(ctx, request{
		method:      fasthttp.MethodPost,
		path:        attachmentPath(bid, cid, rid),
		raw:         buf.Bytes(),
		contentType: form.FormDataContentType(),
	})
	if err != nil {
		return nil, err
	}
	return decodeObject(resp.body)
}

// RemoveAttachment deletes the file attached to a record
func (c *Client) RemoveAttachment(ctx context.Context, bid, cid, rid string) error {
	_, err := c.execute(ctx, request{method: fasthttp.MethodDelete, path: attachmentPath(bid, cid, rid)})
	return err
}
