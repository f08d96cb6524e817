package web

import (
	"net/http"
	"strconv"

	"digestCracker/internal/core/domain"
	"digestCracker/internal/pkg/logging"
	"digestCracker/internal/port"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type CrackingRequest struct {
	Hash     string                  `json:"hash" binding:"required"`
	Settings domain.CrackingSettings `json:"settings"`
}

type WebHandler struct {
	crackingService port.CrackingService
}

func NewWebHandler(svc port.CrackingService) *WebHandler {
	return &WebHandler{
		crackingService: svc,
	}
}

// Crack runs the search within the request and answers with its result.
func (h *WebHandler) Crack(c *gin.Context) {
	var req CrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.crackingService.Crack(c.Request.Context(), req.Hash, req.Settings)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *WebHandler) StartCracking(c *gin.Context) {
	var req CrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.crackingService.StartCracking(c.Request.Context(), req.Hash, req.Settings)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, job)
}

func (h *WebHandler) GetJob(c *gin.Context) {
	job, err := h.crackingService.GetJob(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

func (h *WebHandler) GetProgress(c *gin.Context) {
	progress, err := h.crackingService.GetProgress(c.Request.Context(), c.Param("jobId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, progress)
}

func (h *WebHandler) StopCracking(c *gin.Context) {
	jobID := c.Param("jobId")
	if err := h.crackingService.StopCracking(c.Request.Context(), jobID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Cracking job stopped",
		"jobId":   jobID,
	})
}

// DeleteJob removes a finished job from the run history.
func (h *WebHandler) DeleteJob(c *gin.Context) {
	if err := h.crackingService.DeleteJob(c.Request.Context(), c.Param("jobId")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *WebHandler) ListJobs(c *gin.Context) {
	filter := port.JobFilter{
		Status:   domain.JobStatus(c.Query("status")),
		HashType: domain.HashType(c.Query("hashType")),
	}
	var err error
	if filter.Limit, err = intQuery(c, "limit"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if filter.Offset, err = intQuery(c, "offset"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobs, err := h.crackingService.ListJobs(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	if jobs == nil {
		jobs = []domain.CrackingJob{}
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

// respondError maps domain errors onto status codes. Anything unknown is a 500.
func respondError(c *gin.Context, err error) {
	var code domain.CrackingError
	status := http.StatusInternalServerError
	if errors.As(err, &code) {
		switch code {
		case domain.ErrInvalidDigestFormat, domain.ErrUnsupportedHash, domain.ErrInvalidWorkerCount,
			domain.ErrInvalidSearchSpace, domain.ErrInvalidMode, domain.ErrInvalidPolicy:
			status = http.StatusBadRequest
		case domain.ErrJobNotFound:
			status = http.StatusNotFound
		case domain.ErrJobRunning:
			status = http.StatusConflict
		}
	}
	if status == http.StatusInternalServerError {
		logging.Errorf("request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}

	body := gin.H{"error": err.Error()}
	if code != "" {
		body["code"] = string(code)
	}
	c.JSON(status, body)
}
