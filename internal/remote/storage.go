package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"feedsync/internal/models"
)

// FileUpload is a binary payload for the storage service.
type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

// CreateFile uploads file into bucketID under fileID.
func (c *Client) CreateFile(ctx context.Context, bucketID, fileID string, file FileUpload) (*models.File, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("fileId", fileID); err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(file.Data)); err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("encode upload: %w", err)
	}

	var created models.File
	if _, err := c.do(ctx, call{
		service:     "storage",
		operation:   "create_file",
		method:      http.MethodPost,
		path:        fmt.Sprintf("/storage/buckets/%s/files", url.PathEscape(bucketID)),
		body:        &buf,
		contentType: w.FormDataContentType(),
	}, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// FileViewURL is the public view address of a stored file.
func (c *Client) FileViewURL(bucketID, fileID string) string {
	return fmt.Sprintf("%s/storage/buckets/%s/files/%s/view?project=%s&mode=admin",
		c.endpoint, url.PathEscape(bucketID), url.PathEscape(fileID), url.QueryEscape(c.project))
}
