package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/existflow/ironhabit/internal/logger"
)

// collections lists the collection names a user may write. Habits never
// leave the device, so only todos are served.
var collections = map[string]bool{
	"todos": true,
}

// documentBody is the wire form of a document.
type documentBody struct {
	ID        string          `json:"id"`
	Data      json.RawMessage `json:"data"`
	Sealed    bool            `json:"sealed"`
	UpdatedAt string          `json:"updated_at,omitempty"`
}

type listResponse struct {
	Items []documentBody `json:"items"`
}

func validCollection(c echo.Context) (string, bool) {
	name := c.Param("collection")
	return name, collections[name]
}

// handleListDocuments returns every document of users/:uid/:collection
func (s *Server) handleListDocuments(c echo.Context) error {
	collection, ok := validCollection(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown collection"})
	}

	docs, err := s.store.ListDocuments(c.Request().Context(), userID(c), collection)
	if err != nil {
		logger.Error("List documents failed", logger.F("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	items := make([]documentBody, 0, len(docs))
	for _, d := range docs {
		items = append(items, documentBody{
			ID:        d.ID,
			Data:      json.RawMessage(d.Data),
			Sealed:    d.Sealed,
			UpdatedAt: d.UpdatedAt.Format(time.RFC3339),
		})
	}

	logger.Debug("Documents listed",
		logger.F("uid", userID(c)), logger.F("collection", collection), logger.F("count", len(items)))

	return c.JSON(http.StatusOK, listResponse{Items: items})
}

// handleUpsertDocument replaces users/:uid/:collection/:id with the body
func (s *Server) handleUpsertDocument(c echo.Context) error {
	collection, ok := validCollection(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown collection"})
	}

	var req documentBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}

	id := c.Param("id")
	if req.ID == "" {
		req.ID = id
	}
	if req.ID != id {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "document id does not match path"})
	}
	if len(req.Data) == 0 || !json.Valid(req.Data) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "data must be valid JSON"})
	}

	err := s.store.UpsertDocument(c.Request().Context(), userID(c), collection, Document{
		ID:     req.ID,
		Data:   string(req.Data),
		Sealed: req.Sealed,
	})
	if err != nil {
		logger.Error("Upsert document failed", logger.F("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	return c.JSON(http.StatusOK, map[string]string{"id": req.ID})
}

// handleDeleteDocument removes users/:uid/:collection/:id
func (s *Server) handleDeleteDocument(c echo.Context) error {
	collection, ok := validCollection(c)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown collection"})
	}

	err := s.store.DeleteDocument(c.Request().Context(), userID(c), collection, c.Param("id"))
	if errors.Is(err, ErrDocumentNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	}
	if err != nil {
		logger.Error("Delete document failed", logger.F("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	return c.NoContent(http.StatusNoContent)
}
