package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"log"
	"net/http"
	"strconv"

	"filevault/models"
	"filevault/queue"
	"filevault/repository"
	"filevault/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FileStore is the metadata-store surface the file handlers need.
type FileStore interface {
	Create(ctx context.Context, file *models.File) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.File, error)
	GetByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.File, error)
	ListByParent(ctx context.Context, userID uuid.UUID, parentID *uuid.UUID, page int) ([]*models.File, error)
	SetPublic(ctx context.Context, id, userID uuid.UUID, isPublic bool) (*models.File, error)
}

// Publisher is the queue surface the handlers need.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) error
}

// FileHandler handles HTTP requests for file operations
type FileHandler struct {
	files    FileStore
	sessions Sessions
	storage  storage.Storage
	jobs     Publisher
}

// NewFileHandler creates a new file handler
func NewFileHandler(files FileStore, sessions Sessions, store storage.Storage, jobs Publisher) *FileHandler {
	return &FileHandler{
		files:    files,
		sessions: sessions,
		storage:  store,
		jobs:     jobs,
	}
}

type uploadRequest struct {
	Name     string          `json:"name"`
	Type     models.FileType `json:"type"`
	ParentID string          `json:"parentId"`
	IsPublic bool            `json:"isPublic"`
	Data     string          `json:"data"`
}

// Upload handles POST /files
func (h *FileHandler) Upload(c *gin.Context) {
	userID := currentUser(c)

	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing name"})
		return
	}

	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing name"})
		return
	}

	if !models.ValidFileType(req.Type) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing type"})
		return
	}

	if req.Type != models.TypeFolder && req.Data == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing data"})
		return
	}

	parentID, ok := h.checkParent(c, req.ParentID)
	if !ok {
		return
	}

	file := &models.File{
		UserID:   userID,
		Name:     req.Name,
		Type:     req.Type,
		ParentID: parentID,
		IsPublic: req.IsPublic,
	}

	if req.Type == models.TypeFolder {
		if err := h.files.Create(c.Request.Context(), file); err != nil {
			log.Printf("handlers: failed to create folder record: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
			return
		}
		c.JSON(http.StatusCreated, file)
		return
	}

	payload, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing data"})
		return
	}

	// Bytes are written before the metadata insert: a storage failure must
	// not leave a record pointing at nothing.
	ref := storage.NewRef()
	if err := h.storage.Save(c.Request.Context(), ref, bytes.NewReader(payload)); err != nil {
		log.Printf("handlers: failed to store payload: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	file.StoragePath = ref
	if err := h.files.Create(c.Request.Context(), file); err != nil {
		// Try to clean up the stored payload; nothing references it.
		if delErr := h.storage.Delete(c.Request.Context(), ref); delErr != nil {
			log.Printf("handlers: failed to clean up payload %s: %v", ref, delErr)
		}
		log.Printf("handlers: failed to create file record: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	// Enqueued only after the insert succeeded, with the assigned id. An
	// enqueue failure degrades to a record without thumbnails; the upload
	// itself is not rolled back.
	if file.Type == models.TypeImage {
		job := models.ThumbnailJob{FileID: file.ID, UserID: file.UserID}
		if err := h.jobs.Publish(c.Request.Context(), queue.TopicFileProcessing, job); err != nil {
			log.Printf("handlers: failed to enqueue thumbnail job for file %s: %v", file.ID, err)
		}
	}

	c.JSON(http.StatusCreated, file)
}

// checkParent validates the parentId field of an upload. An absent, empty
// or "0" parent means root. Responds and returns ok=false on failure.
func (h *FileHandler) checkParent(c *gin.Context, raw string) (*uuid.UUID, bool) {
	if raw == "" || raw == "0" {
		return nil, true
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Parent not found"})
		return nil, false
	}

	parent, err := h.files.GetByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Parent not found"})
		return nil, false
	}
	if err != nil {
		log.Printf("handlers: failed to look up parent %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return nil, false
	}
	if parent.Type != models.TypeFolder {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Parent is not a folder"})
		return nil, false
	}

	return &id, true
}

// Get handles GET /files/:id
func (h *FileHandler) Get(c *gin.Context) {
	userID := currentUser(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	file, err := h.files.GetByIDAndUser(c.Request.Context(), id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	if err != nil {
		log.Printf("handlers: failed to load file %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	c.JSON(http.StatusOK, file)
}

// List handles GET /files?parentId=&page=
func (h *FileHandler) List(c *gin.Context) {
	userID := currentUser(c)

	var parentID *uuid.UUID
	if raw := c.Query("parentId"); raw != "" && raw != "0" {
		id, err := uuid.Parse(raw)
		if err != nil {
			// Nothing can live under an id that cannot exist.
			c.JSON(http.StatusOK, []*models.File{})
			return
		}
		parentID = &id
	}

	page, _ := strconv.Atoi(c.Query("page"))

	files, err := h.files.ListByParent(c.Request.Context(), userID, parentID, page)
	if err != nil {
		log.Printf("handlers: failed to list files: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	c.JSON(http.StatusOK, files)
}

// Publish handles PUT /files/:id/publish
func (h *FileHandler) Publish(c *gin.Context) {
	h.setVisibility(c, true)
}

// Unpublish handles PUT /files/:id/unpublish
func (h *FileHandler) Unpublish(c *gin.Context) {
	h.setVisibility(c, false)
}

func (h *FileHandler) setVisibility(c *gin.Context, isPublic bool) {
	userID := currentUser(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	file, err := h.files.SetPublic(c.Request.Context(), id, userID, isPublic)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	if err != nil {
		log.Printf("handlers: failed to update visibility of %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	c.JSON(http.StatusOK, file)
}

// Data handles GET /files/:id/data?size=
//
// Private records answer 404 to anyone but their owner, the same response
// as true absence, so an unauthorized caller cannot probe for existence.
func (h *FileHandler) Data(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}

	file, err := h.files.GetByID(c.Request.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	if err != nil {
		log.Printf("handlers: failed to load file %s: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	if !file.IsPublic {
		userID, ok := resolveUser(c, h.sessions)
		if !ok || userID != file.UserID {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
	}

	if file.Type == models.TypeFolder {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A folder doesn't have content"})
		return
	}

	ref := file.StoragePath
	if size := c.Query("size"); size != "" {
		width, err := strconv.Atoi(size)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		// A variant requested before the worker finished is simply absent;
		// there is no fallback to the original.
		ref = storage.VariantRef(file.StoragePath, width)
	}

	rc, err := h.storage.Open(c.Request.Context(), ref)
	if errors.Is(err, storage.ErrNotExist) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
		return
	}
	if err != nil {
		log.Printf("handlers: failed to open payload %s: %v", ref, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, -1, contentTypeFor(file.Name), rc, nil)
}
