package media

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/07Akashh/DriveBackend/internal/domain"
	"github.com/07Akashh/DriveBackend/internal/pkg/response"
	"github.com/07Akashh/DriveBackend/internal/storage"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the media API. protected requires a valid token;
// optional runs OptionalAuth so public objects stay reachable anonymously.
func (h *Handler) RegisterRoutes(protected, optional *gin.RouterGroup) {
	m := protected.Group("/media")
	{
		m.GET("", h.List)
		m.GET("/trashed", h.ListTrashed)
		m.GET("/shared/with-me", h.ListSharedWithMe)
		m.GET("/:id", h.Get)
		m.GET("/:id/audit", h.AuditTrail)
		m.DELETE("/:id", h.Delete)
		m.PUT("/:id/restore", h.Restore)
		m.DELETE("/:id/permanent", h.PermanentDelete)
		m.POST("/:id/share/users", h.Share)
		m.PUT("/:id/share/user", h.EditShare)
		m.DELETE("/:id/share/user", h.RevokeShare)
	}

	o := optional.Group("/media")
	{
		o.GET("/:id/details", h.Details)
		o.GET("/:id/stream", h.Stream)
		o.GET("/:id/download", h.Download)
	}
}

func (h *Handler) List(c *gin.Context) {
	userID := c.GetInt64("user_id")

	result, err := h.service.ListMine(c.Request.Context(), userID, listQueryFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"total": result.Total, "media": ToMediaResponses(result.Media)})
}

func (h *Handler) ListTrashed(c *gin.Context) {
	userID := c.GetInt64("user_id")

	result, err := h.service.ListTrashed(c.Request.Context(), userID, listQueryFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"total": result.Total, "media": ToMediaResponses(result.Media)})
}

func (h *Handler) ListSharedWithMe(c *gin.Context) {
	email := c.GetString("email")

	result, err := h.service.ListSharedWithMe(c.Request.Context(), email, listQueryFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"total": result.Total, "media": ToMediaResponses(result.Media)})
}

func (h *Handler) Get(c *gin.Context) {
	info, err := h.service.Get(c.Request.Context(), c.Param("id"), principalFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"originalName": info.OriginalName,
		"mimeType":     info.MimeType,
		"size":         info.Size,
	})
}

func (h *Handler) Details(c *gin.Context) {
	report, err := h.service.Details(c.Request.Context(), c.Param("id"), principalFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"hasAccess":  report.HasAccess,
		"accessType": report.AccessType,
		"media":      ToMediaResponse(report.Media),
	})
}

// Download proxies the provider object with attachment headers so the
// provider URL itself is never exposed to the client.
func (h *Handler) Download(c *gin.Context) {
	info, err := h.service.Download(c.Request.Context(), c.Param("id"), principalFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	h.proxyFile(c, info, true)
}

// Stream proxies the object inline for players and previews.
func (h *Handler) Stream(c *gin.Context) {
	info, err := h.service.Stream(c.Request.Context(), c.Param("id"), principalFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	h.proxyFile(c, info, false)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), mustPrincipal(c)); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "File deleted successfully"})
}

func (h *Handler) Restore(c *gin.Context) {
	m, err := h.service.Restore(c.Request.Context(), c.Param("id"), mustPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"message": "File restored successfully",
		"media":   ToMediaResponse(m),
	})
}

func (h *Handler) PermanentDelete(c *gin.Context) {
	if err := h.service.PermanentDelete(c.Request.Context(), c.Param("id"), mustPrincipal(c)); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "File permanently deleted"})
}

func (h *Handler) Share(c *gin.Context) {
	var req ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if len(req.Emails) == 0 && req.IsPublic == nil {
		response.Error(c, http.StatusBadRequest, "NO_CHANGES", "No changes requested")
		return
	}

	principal := mustPrincipal(c)
	id := c.Param("id")

	if len(req.Emails) == 0 {
		if err := h.service.ControlAccess(c.Request.Context(), id, principal, AccessUpdate{IsPublic: req.IsPublic}); err != nil {
			respondError(c, err)
			return
		}
	}

	for _, email := range req.Emails {
		upd := AccessUpdate{
			Email:      email,
			Permission: domain.SharePermission(req.Permission),
			ExpiresAt:  req.ExpiresAt,
			IsPublic:   req.IsPublic,
		}
		if err := h.service.ControlAccess(c.Request.Context(), id, principal, upd); err != nil {
			respondError(c, err)
			return
		}
		// Only apply the public flip once.
		req.IsPublic = nil
	}

	response.Success(c, http.StatusOK, gin.H{"message": "Access updated successfully"})
}

func (h *Handler) EditShare(c *gin.Context) {
	var req EditShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	err := h.service.EditAccess(c.Request.Context(), c.Param("id"), mustPrincipal(c),
		req.Email, domain.SharePermission(req.Permission), req.ExpiresAt)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Share updated successfully"})
}

func (h *Handler) RevokeShare(c *gin.Context) {
	var req RevokeShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := h.service.RevokeAccess(c.Request.Context(), c.Param("id"), mustPrincipal(c), req.Email); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "Share revoked successfully"})
}

func (h *Handler) AuditTrail(c *gin.Context) {
	entries, err := h.service.AuditTrail(c.Request.Context(), c.Param("id"), mustPrincipal(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"auditLog": entries})
}

// proxyFile pipes the provider object through this server.
func (h *Handler) proxyFile(c *gin.Context, info *DownloadInfo, attachment bool) {
	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, info.FileURL, nil)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "STREAM_ERROR", "Failed to reach storage provider")
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		response.Error(c, http.StatusBadGateway, "STREAM_ERROR", "Failed to stream file")
		return
	}
	defer resp.Body.Close()

	mimeType := info.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	c.Header("Content-Type", mimeType)
	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Cache-Control", "private, max-age=3600")
	if attachment {
		c.Header("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", url.PathEscape(info.OriginalName)))
	}
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		c.Header("Content-Length", cl)
	}

	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		// Client went away mid-transfer; nothing useful left to send.
		return
	}
}

func listQueryFrom(c *gin.Context) ListQuery {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	return ListQuery{
		Filename:  c.Query("filename"),
		MimeType:  c.Query("mimeType"),
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.Query("sortBy"),
		SortOrder: c.Query("sortOrder"),
	}
}

// principalFrom builds the acting principal from context claims; nil for
// anonymous requests on optional-auth routes.
func principalFrom(c *gin.Context) *domain.Principal {
	userID := c.GetInt64("user_id")
	email := c.GetString("email")
	if userID == 0 && email == "" {
		return nil
	}
	return &domain.Principal{UserID: userID, Email: strings.ToLower(email)}
}

// mustPrincipal is for routes behind RequireAuth, where claims are always
// present.
func mustPrincipal(c *gin.Context) *domain.Principal {
	return &domain.Principal{
		UserID: c.GetInt64("user_id"),
		Email:  strings.ToLower(c.GetString("email")),
	}
}

func respondError(c *gin.Context, err error) {
	var provErr *storage.ProviderError
	switch {
	case errors.Is(err, ErrGrantNotFound):
		response.Error(c, http.StatusNotFound, "NOT_SHARED", err.Error())
	case errors.Is(err, ErrNotFound):
		response.Error(c, http.StatusNotFound, "FILE_NOT_FOUND", err.Error())
	case errors.Is(err, ErrAccessDenied):
		response.Error(c, http.StatusForbidden, "ACCESS_DENIED", err.Error())
	case errors.As(err, &provErr):
		response.Error(c, http.StatusBadGateway, "STORAGE_ERROR", "Storage provider request failed")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}
