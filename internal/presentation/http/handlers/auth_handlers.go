// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tallmanjamie/civquest-go/internal/application/services"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/logging"
	"github.com/tallmanjamie/civquest-go/internal/infrastructure/observability/performance"
	"github.com/tallmanjamie/civquest-go/internal/presentation/http/middleware"
)

// AuthHandlers contains all authentication-related HTTP handlers
type AuthHandlers struct {
	authService *services.AuthService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAuthHandlers creates auth handlers with injected dependencies
func NewAuthHandlers(authService *services.AuthService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// bearerToken extracts the token from an Authorization header, or
// returns "" when the header is missing or malformed.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) < 8 || authHeader[:7] != "Bearer " {
		return ""
	}
	return authHeader[7:]
}

// PostAdminLogin handles POST /api/v1/auth/admin/login - tenant admin authentication
func (h *AuthHandlers) PostAdminLogin(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("post_admin_login_request", tenantCtx.TenantID)
	defer marker.Complete()

	var loginReq struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&loginReq); err != nil {
		h.logger.Auth().Error("Admin login request JSON binding failed", "tenantId", tenantCtx.TenantID, "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result := h.authService.AuthenticateAdmin(loginReq.Password, tenantCtx)
	if !result.Success {
		h.logger.Auth().Warn("Admin login attempt failed", "tenantId", tenantCtx.TenantID, "error", result.Error, "duration", time.Since(start))
		marker.SetSuccess(false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": result.Error})
		return
	}

	c.SetCookie("admin_auth", result.Token, 86400, "/", "", false, true)

	h.logger.Auth().Info("Admin login successful", "tenantId", tenantCtx.TenantID, "duration", time.Since(start))
	marker.SetSuccess(true)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"role":    result.Role,
		"token":   result.Token,
	})
}

// PostRegister handles POST /api/v1/auth/register - viewer account creation
func (h *AuthHandlers) PostRegister(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("post_register_request", tenantCtx.TenantID)
	defer marker.Complete()

	var req struct {
		Email       string `json:"email" binding:"required"`
		Password    string `json:"password" binding:"required"`
		DisplayName string `json:"displayName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result, err := h.authService.RegisterAccount(req.Email, req.Password, req.DisplayName, tenantCtx)
	if err != nil {
		marker.SetError(err)
		h.logger.Auth().Error("Account registration failed", "tenantId", tenantCtx.TenantID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Registration failed"})
		return
	}
	if !result.Success {
		marker.SetSuccess(false)
		c.JSON(http.StatusConflict, gin.H{"error": result.Error})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"token":   result.Token,
		"account": gin.H{
			"id":          result.Account.ID,
			"email":       result.Account.Email,
			"displayName": result.Account.DisplayName,
		},
	})
}

// PostLogin handles POST /api/v1/auth/login - viewer session authentication
func (h *AuthHandlers) PostLogin(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	start := time.Now()
	marker := h.perfTracker.StartOperation("post_login_request", tenantCtx.TenantID)
	defer marker.Complete()

	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	result := h.authService.AuthenticateAccount(req.Email, req.Password, tenantCtx)
	if !result.Success {
		h.logger.Auth().Warn("Login attempt failed", "tenantId", tenantCtx.TenantID, "duration", time.Since(start))
		marker.SetSuccess(false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": result.Error})
		return
	}

	h.logger.Auth().Info("Login successful", "tenantId", tenantCtx.TenantID, "role", result.Role, "duration", time.Since(start))
	marker.SetSuccess(true)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"role":    result.Role,
		"token":   result.Token,
	})
}

// GetAuthStatus handles GET /api/v1/auth/status - describes the viewer
// behind the current bearer token. Anonymous callers get hasSession
// false rather than an error.
func (h *AuthHandlers) GetAuthStatus(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	viewer := h.authService.ViewerFromToken(bearerToken(c), tenantCtx)
	c.JSON(http.StatusOK, gin.H{
		"hasSession":           viewer.HasSession,
		"sessionId":            viewer.SessionID,
		"linkedArcGISUsername": viewer.LinkedArcGISUsername,
		"hasDelegatedToken":    viewer.DelegatedToken != "",
	})
}

// PostLinkIdentity handles POST /api/v1/auth/identity/link - records
// the viewer's ArcGIS identity and delegated token
func (h *AuthHandlers) PostLinkIdentity(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("post_link_identity_request", tenantCtx.TenantID)
	defer marker.Complete()

	accountID := h.authService.AccountIDFromToken(bearerToken(c), tenantCtx)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Valid session required"})
		return
	}

	var req struct {
		ArcGISUsername string    `json:"arcgisUsername" binding:"required"`
		AccessToken    string    `json:"accessToken"`
		ExpiresAt      time.Time `json:"expiresAt"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if err := h.authService.LinkIdentity(accountID, req.ArcGISUsername, req.AccessToken, req.ExpiresAt, tenantCtx); err != nil {
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Identity link failed"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// PostUnlinkIdentity handles POST /api/v1/auth/identity/unlink
func (h *AuthHandlers) PostUnlinkIdentity(c *gin.Context) {
	tenantCtx, exists := middleware.GetTenantContext(c)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
		return
	}

	marker := h.perfTracker.StartOperation("post_unlink_identity_request", tenantCtx.TenantID)
	defer marker.Complete()

	accountID := h.authService.AccountIDFromToken(bearerToken(c), tenantCtx)
	if accountID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Valid session required"})
		return
	}

	if err := h.authService.UnlinkIdentity(accountID, tenantCtx); err != nil {
		marker.SetError(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Identity unlink failed"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AdminOnlyMiddleware protects endpoints that require the tenant admin token
func (h *AuthHandlers) AdminOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantCtx, exists := middleware.GetTenantContext(c)
		if !exists {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "tenant context not found"})
			c.Abort()
			return
		}

		token := bearerToken(c)
		if token == "" {
			if adminCookie, err := c.Cookie("admin_auth"); err == nil {
				token = adminCookie
			}
		}

		if !h.authService.ValidateAdminToken(token, tenantCtx) {
			h.logger.Auth().Warn("Unauthorized admin access attempt", "tenantId", tenantCtx.TenantID, "path", c.Request.URL.Path)
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
