package emulator

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"feedsync/internal/emulator/repository"
	"feedsync/internal/models"

	"github.com/gofiber/fiber/v2"
)

type fileView struct {
	ID        string    `json:"$id"`
	BucketID  string    `json:"bucketId"`
	CreatedAt time.Time `json:"$createdAt"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mimeType"`
	Size      int64     `json:"sizeOriginal"`
}

func (s *Server) filePath(bucketID, fileID string) string {
	return filepath.Join(s.opts.UploadDir, filepath.Base(bucketID), filepath.Base(fileID))
}

// CreateFile handles POST /v1/storage/buckets/:bucketId/files
func (s *Server) CreateFile(c *fiber.Ctx) error {
	bucketID := c.Params("bucketId")
	id, err := resolveID(c.FormValue("fileId"))
	if err != nil {
		return err
	}
	header, err := c.FormFile("file")
	if err != nil {
		return invalidArgument("Invalid `file` param: No file sent")
	}

	src, err := header.Open()
	if err != nil {
		return models.NewInternalError(err)
	}
	defer src.Close()
	content, err := io.ReadAll(src)
	if err != nil {
		return models.NewInternalError(err)
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(content)
	}

	path := s.filePath(bucketID, id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return models.NewInternalError(err)
	}
	if _, err := os.Stat(path); err == nil {
		return models.NewConflictError("A storage file with the requested ID already exists.")
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return models.NewInternalError(fmt.Errorf("write upload: %w", err))
	}

	file := &repository.StoredFile{
		BucketID:  bucketID,
		ID:        id,
		Name:      header.Filename,
		MimeType:  mimeType,
		Size:      int64(len(content)),
		Path:      path,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.files.Create(c.UserContext(), file); err != nil {
		_ = os.Remove(path)
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fileView{
		ID:        file.ID,
		BucketID:  file.BucketID,
		CreatedAt: file.CreatedAt,
		Name:      file.Name,
		MimeType:  file.MimeType,
		Size:      file.Size,
	})
}

// ViewFile handles GET /v1/storage/buckets/:bucketId/files/:fileId/view
func (s *Server) ViewFile(c *fiber.Ctx) error {
	file, err := s.files.Get(c.UserContext(), c.Params("bucketId"), c.Params("fileId"))
	if err != nil {
		return notFoundAs(err, errFileNotFound)
	}
	content, err := os.ReadFile(file.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return errFileNotFound
		}
		return models.NewInternalError(err)
	}
	c.Set(fiber.HeaderContentType, file.MimeType)
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000")
	return c.Send(content)
}
