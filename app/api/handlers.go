package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/legal-updates/app/cache"
	"github.com/lysyi3m/legal-updates/app/database"
	"github.com/lysyi3m/legal-updates/app/tasks"
	"github.com/lysyi3m/legal-updates/app/updates"
)

func NewHandler(store database.Store, generator GeneratorInterface,
	scheduler tasks.TaskSchedulerInterface, runner tasks.Runner, version string) *Handler {
	return &Handler{
		store:     store,
		generator: generator,
		scheduler: scheduler,
		runner:    runner,
		version:   version,
	}
}

// UseFeedCache serves the rendered feed from c until publish invalidates it.
func (h *Handler) UseFeedCache(c cache.FeedCache, ttl time.Duration) {
	h.feedCache = c
	h.feedCacheTTL = ttl
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"backend":   h.store.Backend(),
		"version":   h.version,
	}

	count, err := h.store.Count(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "count", "error", err)
		health["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}
	health["updates"] = count

	c.JSON(http.StatusOK, health)
}

// ListUpdates serves published updates only.
func (h *Handler) ListUpdates(c *gin.Context) {
	filters, err := parseFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	filters.Status = updates.StatusPublished

	h.list(c, filters)
}

// APIListUpdates serves every status; the status query narrows it.
func (h *Handler) APIListUpdates(c *gin.Context) {
	filters, err := parseFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if raw := c.Query("status"); raw != "" {
		status, err := updates.ParseStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		filters.Status = status
	}

	h.list(c, filters)
}

func (h *Handler) list(c *gin.Context, filters updates.UpdateFilters) {
	items, err := h.store.List(c.Request.Context(), filters)
	if err != nil {
		slog.Error("Database error", "operation", "list_updates", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"updates": items,
		"count":   len(items),
		"limit":   filters.Limit,
		"offset":  filters.Offset,
	})
}

func (h *Handler) GetUpdate(c *gin.Context) {
	slug := c.Param("slug")

	item, err := h.store.GetBySlug(c.Request.Context(), slug)
	if errors.Is(err, database.ErrNotFound) || (err == nil && item.Status != updates.StatusPublished) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Update not found"})
		return
	}
	if err != nil {
		slog.Error("Database error", "operation", "get_update", "slug", slug, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *Handler) GetFeed(c *gin.Context) {
	ctx := c.Request.Context()

	if h.feedCache != nil {
		rss, ok, err := h.feedCache.GetFeed(ctx, feedCacheKey)
		if err != nil {
			slog.Warn("Feed cache read failed", "error", err)
		} else if ok {
			c.Header("Content-Type", "application/rss+xml; charset=utf-8")
			c.Header("X-Cache", "HIT")
			c.String(http.StatusOK, rss)
			return
		}
	}

	items, err := h.store.List(ctx, updates.UpdateFilters{
		Status: updates.StatusPublished,
		Limit:  feedItemLimit,
	})
	if err != nil {
		slog.Error("Database error", "operation", "get_feed_items", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	rss, err := h.generator.Run(items)
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if h.feedCache != nil {
		if err := h.feedCache.SetFeed(ctx, feedCacheKey, rss, h.feedCacheTTL); err != nil {
			slog.Warn("Feed cache write failed", "error", err)
		}
		c.Header("X-Cache", "MISS")
	}

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(items)))

	c.String(http.StatusOK, rss)
}

func (h *Handler) APIPublishUpdate(c *gin.Context) {
	id := c.Param("id")

	item, err := h.store.UpdateStatus(c.Request.Context(), id, updates.StatusPublished)
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Update not found"})
		return
	case errors.Is(err, updates.ErrInvalidStatus):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		slog.Error("Database error", "operation", "publish_update", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if h.feedCache != nil {
		if err := h.feedCache.Invalidate(c.Request.Context()); err != nil {
			slog.Warn("Feed cache invalidation failed", "error", err)
		}
	}

	slog.Info("Update published", "id", item.ID, "slug", item.Slug)
	c.JSON(http.StatusOK, item)
}

func (h *Handler) APITriggerIngest(c *gin.Context) {
	task := tasks.NewIngestTask(h.runner, tasks.TriggerAPI)

	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing ingest task", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue ingest task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Ingestion pass enqueued",
		"task": gin.H{
			"id":   task.ID,
			"type": task.Type,
		},
	})
}

func parseFilters(c *gin.Context) (updates.UpdateFilters, error) {
	filters := updates.UpdateFilters{
		Tag:    c.Query("tag"),
		Search: c.Query("q"),
		Limit:  defaultListLimit,
	}

	if raw := c.Query("jurisdiction"); raw != "" {
		jurisdiction, err := updates.ParseJurisdiction(raw)
		if err != nil {
			return filters, err
		}
		filters.Jurisdiction = jurisdiction
	}

	if raw := c.Query("from"); raw != "" {
		from, err := parseDate(raw, false)
		if err != nil {
			return filters, fmt.Errorf("invalid from: %w", err)
		}
		filters.From = &from
	}

	if raw := c.Query("to"); raw != "" {
		to, err := parseDate(raw, true)
		if err != nil {
			return filters, fmt.Errorf("invalid to: %w", err)
		}
		filters.To = &to
	}

	if filters.From != nil && filters.To != nil && filters.From.After(*filters.To) {
		return filters, errors.New("from must not be after to")
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return filters, fmt.Errorf("invalid limit %q", raw)
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
		filters.Limit = limit
	}

	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filters, fmt.Errorf("invalid offset %q", raw)
		}
		filters.Offset = offset
	}

	return filters, nil
}

// parseDate accepts YYYY-MM-DD or RFC3339. A bare date used as an upper
// bound covers the whole day.
func parseDate(raw string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}

	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD or RFC3339, got %q", raw)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
