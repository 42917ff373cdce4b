package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// DocumentList is one page of a document listing. Documents stay raw so each
// store decodes them into its own record type.
type DocumentList struct {
	Total     int               `json:"total"`
	Documents []json.RawMessage `json:"documents"`
}

func documentsPath(databaseID, collectionID string) string {
	return fmt.Sprintf("/databases/%s/collections/%s/documents",
		url.PathEscape(databaseID), url.PathEscape(collectionID))
}

func documentPath(databaseID, collectionID, documentID string) string {
	return documentsPath(databaseID, collectionID) + "/" + url.PathEscape(documentID)
}

// ListDocuments lists documents matching queries.
func (c *Client) ListDocuments(ctx context.Context, databaseID, collectionID string, queries []Query) (*DocumentList, error) {
	params := url.Values{}
	for _, q := range queries {
		params.Add("queries[]", q.String())
	}

	var list DocumentList
	if _, err := c.do(ctx, call{
		service:   "databases",
		operation: "list_documents",
		method:    http.MethodGet,
		path:      documentsPath(databaseID, collectionID),
		query:     params,
	}, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// CreateDocument persists data under documentID and returns the stored document.
func (c *Client) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (json.RawMessage, error) {
	body, err := jsonBody(map[string]any{
		"documentId": documentID,
		"data":       data,
	})
	if err != nil {
		return nil, err
	}

	var doc json.RawMessage
	if _, err := c.do(ctx, call{
		service:     "databases",
		operation:   "create_document",
		method:      http.MethodPost,
		path:        documentsPath(databaseID, collectionID),
		body:        body,
		contentType: "application/json",
	}, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateDocument applies a partial update and returns the stored document.
func (c *Client) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data any) (json.RawMessage, error) {
	body, err := jsonBody(map[string]any{
		"data": data,
	})
	if err != nil {
		return nil, err
	}

	var doc json.RawMessage
	if _, err := c.do(ctx, call{
		service:     "databases",
		operation:   "update_document",
		method:      http.MethodPatch,
		path:        documentPath(databaseID, collectionID, documentID),
		body:        body,
		contentType: "application/json",
	}, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// DeleteDocument removes a document.
func (c *Client) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	_, err := c.do(ctx, call{
		service:   "databases",
		operation: "delete_document",
		method:    http.MethodDelete,
		path:      documentPath(databaseID, collectionID, documentID),
	}, nil)
	return err
}
