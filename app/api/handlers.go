package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Eyozy/tootpic/app/cfg"
	"github.com/Eyozy/tootpic/app/fetch"
)

func NewHandler(fetcher PostFetcher) *Handler {
	return &Handler{fetcher: fetcher}
}

// GetPost converts the url query parameter into a canonical post. Pipeline
// failures come back as structured results, so the HTTP status only encodes
// the failure class.
func (h *Handler) GetPost(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, fetch.Result{
			Success:   false,
			Error:     "Missing url query parameter",
			ErrorCode: fetch.CodeInvalidURL,
		})
		return
	}

	result := h.fetcher.FetchPost(c.Request.Context(), url)
	c.JSON(statusForResult(result), result)
}

func statusForResult(result fetch.Result) int {
	if result.Success {
		return http.StatusOK
	}

	switch result.ErrorCode {
	case fetch.CodeInvalidURL, fetch.CodeUnsupportedPlatform:
		return http.StatusBadRequest
	case fetch.CodeNotFound:
		return http.StatusNotFound
	case fetch.CodePrivatePost:
		return http.StatusForbidden
	case fetch.CodeRateLimited:
		return http.StatusTooManyRequests
	case fetch.CodeNetworkError:
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	stats := h.fetcher.CacheStats()

	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   cfg.Get().Version,
		"cache": gin.H{
			"size":     stats.Size,
			"capacity": stats.Capacity,
		},
	})
}

func (h *Handler) APIGetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.fetcher.CacheStats())
}

func (h *Handler) APIPurgeCache(c *gin.Context) {
	removed := h.fetcher.PurgeCache()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"removed": removed,
	})
}
