package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotly/libs/auth"
	"github.com/md-rashed-zaman/slotly/libs/db"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/audit"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/model"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/storage"
	"github.com/md-rashed-zaman/slotly/services/platform-service/internal/subscription"
	"golang.org/x/crypto/bcrypt"
)

type AuthHandler struct {
	secret   string
	tokenTTL time.Duration
	pool     *db.Pool
	users    *storage.UserRepository
	dir      *storage.Repository
	audit    *audit.Repository
}

func NewAuthHandler(secret string, tokenTTL time.Duration, pool *db.Pool, users *storage.UserRepository, dir *storage.Repository, auditRepo *audit.Repository) *AuthHandler {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthHandler{
		secret:   secret,
		tokenTTL: tokenTTL,
		pool:     pool,
		users:    users,
		dir:      dir,
		audit:    auditRepo,
	}
}

type registerRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	BusinessName string `json:"business_name"`
	Slug         string `json:"slug"`
	Phone        string `json:"phone"`
	Timezone     string `json:"timezone"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	BusinessID  string `json:"business_id"`
}

type meResponse struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	BusinessID string `json:"business_id"`
	Role       string `json:"role"`
}

// Register creates the business tenant and its owner account in one
// transaction. New tenants start on the trial window.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Password = strings.TrimSpace(req.Password)
	req.BusinessName = strings.TrimSpace(req.BusinessName)
	req.Slug = strings.TrimSpace(strings.ToLower(req.Slug))
	if req.Email == "" || req.Password == "" || req.BusinessName == "" || req.Slug == "" {
		http.Error(w, "email, password, business_name and slug are required", http.StatusBadRequest)
		return
	}
	if strings.ContainsAny(req.Slug, " /?#") {
		http.Error(w, "slug must not contain spaces or url separators", http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	tx, err := h.pool.Begin(ctx)
	if err != nil {
		http.Error(w, "failed to start transaction", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	biz, err := h.dir.CreateBusinessTx(ctx, tx, model.Business{
		Slug:                req.Slug,
		Name:                req.BusinessName,
		Phone:               strings.TrimSpace(req.Phone),
		Timezone:            strings.TrimSpace(req.Timezone),
		OwnerEmail:          req.Email,
		SubscriptionPlan:    subscription.PlanStarter,
		SubscriptionExpires: time.Now().UTC().AddDate(0, 0, subscription.TrialDays),
	})
	if err != nil {
		if storage.IsUniqueViolation(err) {
			http.Error(w, "slug already in use", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create business", http.StatusInternalServerError)
		return
	}

	user := storage.User{
		ID:           uuid.NewString(),
		BusinessID:   biz.ID,
		Email:        req.Email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(hash),
		Role:         auth.RoleOwner,
	}
	if err := h.users.CreateTx(ctx, tx, user); err != nil {
		if storage.IsUniqueViolation(err) {
			http.Error(w, "email already registered", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create user", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit transaction", http.StatusInternalServerError)
		return
	}

	if h.audit != nil {
		_ = h.audit.Record(ctx, "tenant.registered", user.ID, biz.ID, map[string]any{
			"slug":  biz.Slug,
			"email": user.Email,
		})
	}

	token, err := h.issueToken(user)
	if err != nil {
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		BusinessID:  biz.ID,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Password = strings.TrimSpace(req.Password)
	if req.Email == "" || req.Password == "" {
		http.Error(w, "email and password required", http.StatusBadRequest)
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		http.Error(w, "failed to lookup user", http.StatusInternalServerError)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.issueToken(user)
	if err != nil {
		http.Error(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		BusinessID:  user.BusinessID,
	})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := verifyRequest(r, h.secret)
	if !ok {
		http.Error(w, "missing or invalid token", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(meResponse{
		UserID:     claims.Sub,
		Email:      claims.Email,
		BusinessID: claims.BusinessID,
		Role:       claims.Role,
	})
}

func (h *AuthHandler) issueToken(user storage.User) (string, error) {
	now := time.Now()
	return auth.SignHS256(auth.Claims{
		Sub:        user.ID,
		Email:      user.Email,
		BusinessID: user.BusinessID,
		Role:       user.Role,
		Iat:        now.Unix(),
		Exp:        now.Add(h.tokenTTL).Unix(),
	}, h.secret)
}

func verifyRequest(r *http.Request, secret string) (*auth.Claims, bool) {
	token, ok := auth.BearerToken(r)
	if !ok {
		return nil, false
	}
	claims, err := auth.ParseAndVerifyHS256(token, secret)
	if err != nil {
		return nil, false
	}
	return claims, true
}
