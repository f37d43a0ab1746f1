package media

import (
	"fmt"
	"time"

	"github.com/07Akashh/DriveBackend/internal/domain"
)

type ShareRequest struct {
	Emails     []string   `json:"emails"`
	Permission string     `json:"permission"`
	ExpiresAt  *time.Time `json:"expiresAt"`
	IsPublic   *bool      `json:"isPublic"`
}

type EditShareRequest struct {
	Email      string     `json:"email" binding:"required,email"`
	Permission string     `json:"permission" binding:"required,oneof=view download"`
	ExpiresAt  *time.Time `json:"expiresAt"`
}

type RevokeShareRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// MediaResponse hides the raw provider URL and key behind the proxy
// routes; clients only ever see stream_url and download_url.
type MediaResponse struct {
	*domain.Media
	StreamURL   string `json:"stream_url"`
	DownloadURL string `json:"download_url"`
}

func ToMediaResponse(m *domain.Media) *MediaResponse {
	return &MediaResponse{
		Media:       m,
		StreamURL:   fmt.Sprintf("/api/v1/media/%s/stream", m.ID),
		DownloadURL: fmt.Sprintf("/api/v1/media/%s/download", m.ID),
	}
}

func ToMediaResponses(items []domain.Media) []*MediaResponse {
	out := make([]*MediaResponse, 0, len(items))
	for i := range items {
		out = append(out, ToMediaResponse(&items[i]))
	}
	return out
}
