package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openlmia/lmiahub/app/database"
	"github.com/openlmia/lmiahub/app/tasks"
)

const dateLayout = "2006-01-02"

func NewHandler(repo database.RecordRepository, scheduler tasks.TaskSchedulerInterface, version string) *Handler {
	return &Handler{
		repo:      repo,
		scheduler: scheduler,
		version:   version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := gin.H{
		"status":    "ok",
		"version":   h.version,
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if count, err := h.repo.Count(); err == nil {
		health["records"] = count
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	count, err := h.repo.Count()
	if err != nil {
		slog.Error("Database error", "operation", "count", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	provinceCounts, err := h.repo.ProvinceCounts()
	if err != nil {
		slog.Error("Database error", "operation", "province_counts", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_records": count,
		"by_province":   provinceCounts,
	})
}

func (h *Handler) SearchRecords(c *gin.Context) {
	query := database.SearchQuery{
		Employer: c.Query("employer"),
		NocCode:  c.Query("noc_code"),
		Province: c.Query("province"),
		Status:   c.Query("status"),
		Page:     intQuery(c, "page", 1),
		PerPage:  intQuery(c, "per_page", 20),
	}

	if from := c.Query("from"); from != "" {
		t, err := time.Parse(dateLayout, from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'from' date, expected YYYY-MM-DD"})
			return
		}
		query.From = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(dateLayout, to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'to' date, expected YYYY-MM-DD"})
			return
		}
		query.To = &t
	}

	records, total, err := h.repo.Search(query)
	if err != nil {
		slog.Error("Database error", "operation", "search", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	items := make([]recordResponse, 0, len(records))
	for _, record := range records {
		items = append(items, toRecordResponse(record))
	}

	perPage := query.PerPage
	if perPage < 1 || perPage > 200 {
		perPage = 20
	}
	totalPages := (total + perPage - 1) / perPage

	c.JSON(http.StatusOK, pagedResponse{
		Items:      items,
		Page:       max(query.Page, 1),
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

func (h *Handler) GetProvinces(c *gin.Context) {
	provinces, err := h.repo.DistinctProvinces()
	if err != nil {
		slog.Error("Database error", "operation", "provinces", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"provinces": provinces})
}

func (h *Handler) GetNocCodes(c *gin.Context) {
	codes, err := h.repo.DistinctNocCodes()
	if err != nil {
		slog.Error("Database error", "operation", "noc_codes", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	items := make([]gin.H, 0, len(codes))
	for _, info := range codes {
		items = append(items, gin.H{"code": info.Code, "title": info.Title})
	}
	c.JSON(http.StatusOK, gin.H{"noc_codes": items})
}

// TriggerRefresh enqueues a full dataset refresh. The work itself runs in
// the background; the handler only reports whether it was queued.
func (h *Handler) TriggerRefresh(c *gin.Context) {
	if err := h.scheduler.EnqueueRefresh(); err != nil {
		slog.Error("Failed to enqueue refresh", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "refresh could not be queued"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "refresh queued"})
}

func toRecordResponse(record database.Record) recordResponse {
	return recordResponse{
		ID:           record.ID,
		Employer:     record.Employer,
		Province:     record.Province,
		Stream:       record.Stream,
		City:         record.City,
		PostalCode:   record.PostalCode,
		NocCode:      record.NocCode,
		NocTitle:     record.NocTitle,
		Positions:    record.Positions,
		Status:       record.Status,
		DecisionDate: record.DecisionDate.Format(dateLayout),
		SourceFile:   record.SourceFile,
		WebsiteURL:   record.WebsiteURL,
	}
}

func intQuery(c *gin.Context, name string, fallback int) int {
	value := c.Query(name)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
