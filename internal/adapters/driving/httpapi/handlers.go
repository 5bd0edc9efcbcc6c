package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// batchRequest is the body of POST /v1/documents/batch.
type batchRequest struct {
	Documents []domain.Document `json:"documents"`
}

// updateRequest is the body of PUT /v1/documents/{id}.
type updateRequest struct {
	Content  string                  `json:"content"`
	Metadata domain.DocumentMetadata `json:"metadata"`
}

// queryRequest is the body of POST /v1/query.
type queryRequest struct {
	Query   string              `json:"query"`
	Domain  string              `json:"domain"`
	Options domain.QueryOptions `json:"options"`
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) addDocument(c *gin.Context) {
	var doc domain.Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		writeBadRequest(c, err)
		return
	}
	assignID(&doc)

	result, err := s.rag.AddDocument(c.Request.Context(), doc)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) batchAddDocuments(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}
	for i := range req.Documents {
		assignID(&req.Documents[i])
	}

	result, err := s.rag.BatchAddDocuments(c.Request.Context(), req.Documents)
	if err != nil && len(result.Results) == 0 {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) updateDocument(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	result, err := s.rag.UpdateDocument(c.Request.Context(), c.Param("id"), req.Content, req.Metadata)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) removeDocument(c *gin.Context) {
	result, err := s.rag.RemoveDocument(c.Request.Context(), c.Param("id"), c.Query("domain"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBadRequest(c, err)
		return
	}

	result, err := s.rag.Query(c.Request.Context(), req.Query, req.Domain, req.Options)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) status(c *gin.Context) {
	status, err := s.rag.Status(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// assignID gives a document without an id a random one.
func assignID(doc *domain.Document) {
	if strings.TrimSpace(doc.ID) == "" {
		doc.ID = uuid.NewString()
	}
}
