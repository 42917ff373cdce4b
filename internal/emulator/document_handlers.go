package emulator

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"feedsync/internal/emulator/repository"
	"feedsync/internal/models"

	"github.com/gofiber/fiber/v2"
)

// renderDocument merges the stored attributes with the system fields.
func renderDocument(doc *repository.Document) (map[string]any, error) {
	out := map[string]any{}
	if doc.Data != "" {
		if err := json.Unmarshal([]byte(doc.Data), &out); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", doc.ID, err)
		}
	}
	out["$id"] = doc.ID
	out["$databaseId"] = doc.DatabaseID
	out["$collectionId"] = doc.CollectionID
	out["$createdAt"] = doc.CreatedAt.UTC().Format(time.RFC3339Nano)
	out["$updatedAt"] = doc.UpdatedAt.UTC().Format(time.RFC3339Nano)
	out["$permissions"] = []string{}
	return out, nil
}

// attributes validates a request data object and drops system fields.
func attributes(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, invalidArgument("Invalid `data` param: Value must be a valid JSON object")
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, invalidArgument("Invalid `data` param: Value must be a valid JSON object")
	}
	for k := range data {
		if strings.HasPrefix(k, "$") {
			delete(data, k)
		}
	}
	return data, nil
}

func encodeAttributes(data map[string]any) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return string(b), nil
}

// ListDocuments handles GET /v1/databases/:databaseId/collections/:collectionId/documents
func (s *Server) ListDocuments(c *fiber.Ctx) error {
	var raw []string
	for _, v := range c.Context().QueryArgs().PeekMulti("queries[]") {
		raw = append(raw, string(v))
	}
	plan, err := parseListQueries(raw)
	if err != nil {
		return err
	}

	stored, err := s.documents.List(c.UserContext(), c.Params("databaseId"), c.Params("collectionId"))
	if err != nil {
		return err
	}
	docs := make([]map[string]any, 0, len(stored))
	for i := range stored {
		doc, err := renderDocument(&stored[i])
		if err != nil {
			return models.NewInternalError(err)
		}
		docs = append(docs, doc)
	}

	page, total := plan.apply(docs)
	return c.JSON(fiber.Map{
		"total":     total,
		"documents": page,
	})
}

// CreateDocument handles POST /v1/databases/:databaseId/collections/:collectionId/documents
func (s *Server) CreateDocument(c *fiber.Ctx) error {
	var req struct {
		DocumentID string          `json:"documentId"`
		Data       json.RawMessage `json:"data"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidArgument("Invalid request body")
	}
	id, err := resolveID(req.DocumentID)
	if err != nil {
		return err
	}
	data, err := attributes(req.Data)
	if err != nil {
		return err
	}
	encoded, err := encodeAttributes(data)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	doc := &repository.Document{
		DatabaseID:   c.Params("databaseId"),
		CollectionID: c.Params("collectionId"),
		ID:           id,
		Data:         encoded,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.documents.Create(c.UserContext(), doc); err != nil {
		if models.ErrorCode(err) == models.CodeConflict {
			return errDocumentExists
		}
		return err
	}

	out, err := renderDocument(doc)
	if err != nil {
		return models.NewInternalError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetDocument handles GET /v1/databases/:databaseId/collections/:collectionId/documents/:documentId
func (s *Server) GetDocument(c *fiber.Ctx) error {
	doc, err := s.documents.Get(c.UserContext(), c.Params("databaseId"), c.Params("collectionId"), c.Params("documentId"))
	if err != nil {
		return notFoundAs(err, errDocumentNotFound)
	}
	out, err := renderDocument(doc)
	if err != nil {
		return models.NewInternalError(err)
	}
	return c.JSON(out)
}

// UpdateDocument handles PATCH /v1/databases/:databaseId/collections/:collectionId/documents/:documentId
func (s *Server) UpdateDocument(c *fiber.Ctx) error {
	var req struct {
		Data json.RawMessage `json:"data"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidArgument("Invalid request body")
	}
	patch, err := attributes(req.Data)
	if err != nil {
		return err
	}

	doc, err := s.documents.Get(c.UserContext(), c.Params("databaseId"), c.Params("collectionId"), c.Params("documentId"))
	if err != nil {
		return notFoundAs(err, errDocumentNotFound)
	}
	current := map[string]any{}
	if err := json.Unmarshal([]byte(doc.Data), &current); err != nil {
		return models.NewInternalError(err)
	}
	for k, v := range patch {
		current[k] = v
	}
	if doc.Data, err = encodeAttributes(current); err != nil {
		return err
	}
	doc.UpdatedAt = time.Now().UTC()
	if err := s.documents.Update(c.UserContext(), doc); err != nil {
		return notFoundAs(err, errDocumentNotFound)
	}

	out, err := renderDocument(doc)
	if err != nil {
		return models.NewInternalError(err)
	}
	return c.JSON(out)
}

// DeleteDocument handles DELETE /v1/databases/:databaseId/collections/:collectionId/documents/:documentId
func (s *Server) DeleteDocument(c *fiber.Ctx) error {
	err := s.documents.Delete(c.UserContext(), c.Params("databaseId"), c.Params("collectionId"), c.Params("documentId"))
	if err != nil {
		return notFoundAs(err, errDocumentNotFound)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// notFoundAs replaces a repository not-found error with the route's own error.
func notFoundAs(err error, notFound *apiError) error {
	if models.ErrorCode(err) == models.CodeNotFound {
		return notFound
	}
	return err
}
