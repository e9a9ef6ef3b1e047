package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"filevault/models"
	"filevault/queue"
	"filevault/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the user-store surface the auth handlers need.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthHandler handles registration, login and session endpoints
type AuthHandler struct {
	users      UserStore
	sessions   Sessions
	jobs       Publisher
	sessionTTL time.Duration
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users UserStore, sessions Sessions, jobs Publisher, sessionTTL time.Duration) *AuthHandler {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthHandler{
		users:      users,
		sessions:   sessions,
		jobs:       jobs,
		sessionTTL: sessionTTL,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /users
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing email"})
		return
	}

	if req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing email"})
		return
	}
	if req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing password"})
		return
	}

	if _, err := h.users.GetByEmail(c.Request.Context(), req.Email); err == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Already exist"})
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		log.Printf("handlers: failed to check email: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("handlers: failed to hash password: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	user := &models.User{Email: req.Email, PasswordHash: string(hash)}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		log.Printf("handlers: failed to create user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	job := models.WelcomeJob{UserID: user.ID}
	if err := h.jobs.Publish(c.Request.Context(), queue.TopicWelcomeEmail, job); err != nil {
		log.Printf("handlers: failed to enqueue welcome job for user %s: %v", user.ID, err)
	}

	c.JSON(http.StatusCreated, gin.H{"id": user.ID, "email": user.Email})
}

// Connect handles GET /connect (Basic auth -> session token)
func (h *AuthHandler) Connect(c *gin.Context) {
	email, password, ok := c.Request.BasicAuth()
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	token := uuid.New().String()
	if err := h.sessions.Set(c.Request.Context(), token, user.ID, h.sessionTTL); err != nil {
		log.Printf("handlers: failed to store session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Disconnect handles GET /disconnect
func (h *AuthHandler) Disconnect(c *gin.Context) {
	token := c.GetHeader(TokenHeader)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if _, err := h.sessions.Get(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.sessions.Delete(c.Request.Context(), token); err != nil {
		log.Printf("handlers: failed to delete session: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Me handles GET /users/me
func (h *AuthHandler) Me(c *gin.Context) {
	userID := currentUser(c)

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		// A session whose user vanished is as good as no session.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": user.ID, "email": user.Email})
}
