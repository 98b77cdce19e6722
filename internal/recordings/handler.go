package recordings

import (
	"net/http"
	"strconv"

	"bharatcrm_backend/platform/httpkit"
	"bharatcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	service    *Service
	sync       *SyncService
	processing *ProcessingService
	val        *validator.Validator
}

func NewHandler(service *Service, sync *SyncService, processing *ProcessingService, val *validator.Validator) *Handler {
	return &Handler{service: service, sync: sync, processing: processing, val: val}
}

// HandleList returns the organization's recordings, optionally filtered by
// processing status.
// GET /api/v1/recordings?status=&limit=&offset=
func (h *Handler) HandleList(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	items, err := h.service.List(c.Request.Context(), id.OrgID(), c.Query("status"), limit, offset)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"recordings": items})
}

// HandleGet returns one recording with its transcript and analysis.
// GET /api/v1/recordings/:id
func (h *Handler) HandleGet(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	recordingID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	rec, err := h.service.Get(c.Request.Context(), recordingID, id.OrgID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, rec)
}

// HandleSync scans the configured Drive folder for new recordings.
// POST /api/v1/admin/recordings/sync
func (h *Handler) HandleSync(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	result, err := h.sync.Sync(c.Request.Context(), id.OrgID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// HandleSyncStatus reports the Drive connection and last sync state
// without triggering a scan.
// GET /api/v1/admin/recordings/sync
func (h *Handler) HandleSyncStatus(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	status, err := h.sync.Status(c.Request.Context(), id.OrgID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, status)
}

// HandleProcess runs the AI pipeline on one recording.
// POST /api/v1/admin/recordings/:id/process
func (h *Handler) HandleProcess(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	recordingID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	rec, err := h.processing.Process(c.Request.Context(), recordingID, id.OrgID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, rec)
}

// processRequest targets one recording by id in the body.
type processRequest struct {
	RecordingID string `json:"recordingId" validate:"required,uuid"`
}

// HandleProcessOne runs the AI pipeline on the recording named in the body.
// POST /api/v1/admin/recordings/process
func (h *Handler) HandleProcessOne(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req processRequest
	if !h.bindAndValidate(c, &req) {
		return
	}
	recordingID, err := uuid.Parse(req.RecordingID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid recordingId", nil)
		return
	}

	rec, err := h.processing.Process(c.Request.Context(), recordingID, id.OrgID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, rec)
}

// HandleProcessPending processes a batch of pending recordings.
// PUT /api/v1/admin/recordings/process
func (h *Handler) HandleProcessPending(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	items, err := h.processing.ProcessPending(c.Request.Context(), id.OrgID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"results": items})
}

// HandleDelete removes a recording and blocks the file from reimport.
// DELETE /api/v1/admin/recordings/:id
func (h *Handler) HandleDelete(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	recordingID, ok := h.pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), recordingID, id.OrgID(), id.UserID()); httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "recording deleted"})
}

// HandleListProviderConfigs lists the organization's AI provider settings.
// GET /api/v1/admin/recordings/providers
func (h *Handler) HandleListProviderConfigs(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	items, err := h.service.ListProviderConfigs(c.Request.Context(), id.OrgID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"providers": items})
}

// HandleSaveProviderConfig creates or updates an AI provider credential.
// PUT /api/v1/admin/recordings/providers
func (h *Handler) HandleSaveProviderConfig(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req ProviderConfigInput
	if !h.bindAndValidate(c, &req) {
		return
	}

	if err := h.service.SaveProviderConfig(c.Request.Context(), req, id.OrgID()); httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "provider saved"})
}

func (h *Handler) pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return false
	}
	return true
}
