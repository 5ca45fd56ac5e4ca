package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/csfahad/rbms-sub001/internal/config"
	"github.com/csfahad/rbms-sub001/internal/model"
	"github.com/csfahad/rbms-sub001/internal/repository"
	"github.com/csfahad/rbms-sub001/internal/utils"
)

// AuthHandler issues and revokes the tokens that identify users to the
// booking routes.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// issue creates an access/refresh pair and stores the refresh hash.
func (h *AuthHandler) issue(ctx context.Context, u userPart) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    u,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// bindCredentials returns the normalised body, or a message describing
// why it is unusable.
func bindCredentials(c echo.Context) (credentialsReq, string) {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return req, "invalid body"
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return req, "email/password required"
	}
	return req, ""
}

// Register creates a USER account (ADMIN for addresses listed in
// ADMIN_EMAILS) and returns tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	req, msg := bindCredentials(c)
	if msg != "" {
		return respondError(c, http.StatusBadRequest, "validation_error", msg, nil)
	}
	if !strings.Contains(req.Email, "@") {
		return respondError(c, http.StatusBadRequest, "validation_error", "invalid email", echo.Map{"field": "email"})
	}
	if len(req.Password) < utils.MinPasswordLen {
		return respondError(c, http.StatusBadRequest, "validation_error", "password too short", echo.Map{"field": "password"})
	}
	role := model.RoleUser
	if slices.Contains(h.Cfg.AdminEmails, req.Email) {
		role = model.RoleAdmin
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, role, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return respondError(c, http.StatusConflict, "email_exists", "email already exists", nil)
		}
		return RespondDomainError(c, err)
	}
	resp, err := h.issue(ctx, userPart{ID: uid, Email: req.Email, Role: role})
	if err != nil {
		return RespondDomainError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	req, msg := bindCredentials(c)
	if msg != "" {
		return respondError(c, http.StatusBadRequest, "validation_error", msg, nil)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respondError(c, http.StatusUnauthorized, "unauthorized", "invalid credentials", nil)
		}
		return RespondDomainError(c, err)
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return respondError(c, http.StatusUnauthorized, "unauthorized", "invalid credentials", nil)
	}
	resp, err := h.issue(ctx, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return RespondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh rotates a refresh token: the presented one is revoked and a new
// pair is issued.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return respondError(c, http.StatusBadRequest, "validation_error", "refresh_token required", nil)
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "unauthorized", "invalid refresh", nil)
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return RespondDomainError(c, err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respondError(c, http.StatusUnauthorized, "unauthorized", "invalid refresh", nil)
		}
		return RespondDomainError(c, err)
	}
	resp, err := h.issue(ctx, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		return RespondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the refresh token in the body, or every refresh token of
// the bearer's user when the body carries none.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if refreshToken != "" {
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return respondError(c, http.StatusUnauthorized, "unauthorized", "invalid refresh token", nil)
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return RespondDomainError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}

	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if strings.HasPrefix(auth, "Bearer ") {
		claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer "))
		if err != nil {
			return respondError(c, http.StatusUnauthorized, "unauthorized", "invalid token", nil)
		}
		uid, err := claims.UserID()
		if err != nil {
			return respondError(c, http.StatusUnauthorized, "unauthorized", "invalid token", nil)
		}
		if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
			return RespondDomainError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
	return respondError(c, http.StatusBadRequest, "validation_error", "provide Authorization header or refresh_token", nil)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
	}
	u, err := h.Users.GetByID(c.Request().Context(), uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respondError(c, http.StatusNotFound, "not_found", "user not found", nil)
		}
		return RespondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
}
