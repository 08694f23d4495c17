package accountingsync

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/mailroom_backend/config"
	"github.com/mmdatafocus/mailroom_backend/utils"
)

func SyncHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body SyncRequestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		req, err := body.ToRequest()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		outcome, err := svc.RunSync(c.Request.Context(), req)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrSyncInProgress) {
				status = http.StatusConflict
			}
			config.LogError(config.GetLogger(), "accountingsync", "SyncHandler", "running sync", map[string]string{
				"operation":      string(req.Operation),
				"integration_id": req.IntegrationId,
			}, err)
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, outcome)
	}
}

func StatusHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.Param("id"))
		resp, err := svc.IntegrationStatus(c.Request.Context(), id)
		if err != nil {
			writeLookupError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func LogsHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.Param("id"))
		limit := defaultLogLimit
		if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}
		resp, err := svc.ListLogs(c.Request.Context(), id, limit)
		if err != nil {
			writeLookupError(c, err)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}

func writeLookupError(c *gin.Context, err error) {
	if errors.Is(err, utils.ErrorRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "integration not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
