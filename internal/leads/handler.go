package leads

import (
	"net/http"
	"strconv"

	"bharatcrm_backend/platform/httpkit"
	"bharatcrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	service *Service
	val     *validator.Validator
}

func NewHandler(service *Service, val *validator.Validator) *Handler {
	return &Handler{service: service, val: val}
}

// HandleCreate creates a lead and resolves its assignment.
// POST /api/v1/leads
func (h *Handler) HandleCreate(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req CreateLeadInput
	if !h.bindAndValidate(c, &req) {
		return
	}

	userID := id.UserID()
	lead, err := h.service.Create(c.Request.Context(), req, id.OrgID(), &userID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, lead)
}

type CheckDuplicateRequest struct {
	Phone string `json:"phone" validate:"required,min=6,max=20"`
}

// HandleCheckDuplicate reports whether a phone number already belongs to a
// lead of the organization. The response carries the match or an explicit
// null so the UI can prompt before creating.
// POST /api/v1/leads/check-duplicate
func (h *Handler) HandleCheckDuplicate(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req CheckDuplicateRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	match, err := h.service.CheckDuplicate(c.Request.Context(), req.Phone, id.OrgID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"duplicate": match})
}

// HandleList returns the organization's leads with optional filters.
// GET /api/v1/leads?status=&assigned_to=&limit=&offset=
func (h *Handler) HandleList(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	params := ListParams{Status: c.Query("status")}
	if raw := c.Query("assigned_to"); raw != "" {
		assignee, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid assigned_to", nil)
			return
		}
		params.AssignedTo = &assignee
	}
	params.Limit, _ = strconv.Atoi(c.Query("limit"))
	params.Offset, _ = strconv.Atoi(c.Query("offset"))

	leads, err := h.service.List(c.Request.Context(), id.OrgID(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"leads": leads, "count": len(leads)})
}

// HandleGet returns a single lead.
// GET /api/v1/leads/:id
func (h *Handler) HandleGet(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := h.pathID(c)
	if !ok {
		return
	}

	lead, err := h.service.Get(c.Request.Context(), leadID, id.OrgID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// HandleUpdateStatus moves a lead through the pipeline.
// PUT /api/v1/leads/:id/status
func (h *Handler) HandleUpdateStatus(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	lead, err := h.service.UpdateStatus(c.Request.Context(), leadID, id.OrgID(), req.Status, id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

type ReassignRequest struct {
	AssignedTo *string `json:"assignedTo" validate:"omitempty,uuid"`
}

// HandleReassign transfers lead ownership; null assignedTo unassigns.
// PUT /api/v1/admin/leads/:id/assign
func (h *Handler) HandleReassign(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req ReassignRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	var assignTo *uuid.UUID
	if req.AssignedTo != nil {
		parsed, err := uuid.Parse(*req.AssignedTo)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid assignedTo", nil)
			return
		}
		assignTo = &parsed
	}

	lead, err := h.service.Reassign(c.Request.Context(), leadID, id.OrgID(), assignTo, id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

type AddNoteRequest struct {
	Body string `json:"body" validate:"required,min=1,max=5000"`
}

// HandleAddNote appends a note to a lead's activity timeline.
// POST /api/v1/leads/:id/notes
func (h *Handler) HandleAddNote(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := h.pathID(c)
	if !ok {
		return
	}

	var req AddNoteRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	if err := h.service.AddNote(c.Request.Context(), leadID, id.OrgID(), id.UserID(), req.Body); httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "note added"})
}

// HandleListActivities returns a lead's activity timeline, newest first.
// GET /api/v1/leads/:id/activities
func (h *Handler) HandleListActivities(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}
	leadID, ok := h.pathID(c)
	if !ok {
		return
	}

	activities, err := h.service.ListActivities(c.Request.Context(), leadID, id.OrgID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"activities": activities})
}

// HandleImportPreview dry-runs a CSV upload.
// POST /api/v1/admin/leads/import/preview (multipart, field "file")
func (h *Handler) HandleImportPreview(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "CSV file is required", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "could not read uploaded file", nil)
		return
	}
	defer file.Close()

	preview, err := h.service.ImportPreview(c.Request.Context(), file, id.OrgID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, preview)
}

// HandleImportConfirm creates leads from a previewed CSV.
// POST /api/v1/admin/leads/import/confirm
func (h *Handler) HandleImportConfirm(c *gin.Context) {
	id := httpkit.MustGetIdentity(c)
	if id == nil {
		return
	}

	var req ConfirmParams
	if !h.bindAndValidate(c, &req) {
		return
	}

	result, err := h.service.ImportConfirm(c.Request.Context(), req, id.OrgID(), id.UserID())
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

func (h *Handler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead ID", nil)
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
