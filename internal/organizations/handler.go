package organizations

import (
	"net/http"
	"time"

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

// UserResponse is the API view of a team member.
type UserResponse struct {
	ID                    uuid.UUID  `json:"id"`
	Email                 string     `json:"email"`
	Name                  string     `json:"name"`
	Role                  string     `json:"role"`
	ApprovalStatus        string     `json:"approvalStatus"`
	IsApproved            bool       `json:"isApproved"`
	IsActive              bool       `json:"isActive"`
	RejectionReason       *string    `json:"rejectionReason,omitempty"`
	ApprovedBy            *uuid.UUID `json:"approvedBy,omitempty"`
	ApprovedAt            *time.Time `json:"approvedAt,omitempty"`
	LeadAllocationPercent int        `json:"leadAllocationPercent"`
	ManagerID             *uuid.UUID `json:"managerId,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
}

func toUserResponse(u User) UserResponse {
	return UserResponse{
		ID:                    u.ID,
		Email:                 u.Email,
		Name:                  u.Name,
		Role:                  u.Role,
		ApprovalStatus:        u.ApprovalStatus,
		IsApproved:            u.IsApproved,
		IsActive:              u.IsActive,
		RejectionReason:       u.RejectionReason,
		ApprovedBy:            u.ApprovedBy,
		ApprovedAt:            u.ApprovedAt,
		LeadAllocationPercent: u.LeadAllocationPercent,
		ManagerID:             u.ManagerID,
		CreatedAt:             u.CreatedAt,
	}
}

// HandleListTeam lists all users in the caller's organization.
// GET /api/v1/team
func (h *Handler) HandleListTeam(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	users, err := h.service.ListTeam(c.Request.Context(), identity.OrgID())
	if httpkit.HandleError(c, err) {
		return
	}

	result := make([]UserResponse, len(users))
	for i, u := range users {
		result[i] = toUserResponse(u)
	}
	httpkit.OK(c, result)
}

// UpdateTeamSettingsRequest updates assignment-relevant user settings.
type UpdateTeamSettingsRequest struct {
	LeadAllocationPercent *int    `json:"leadAllocationPercent" validate:"omitempty,min=0,max=100"`
	ManagerID             *string `json:"managerId" validate:"omitempty,uuid"`
	IsActive              *bool   `json:"isActive"`
}

// HandleUpdateTeamSettings updates allocation percent, manager, or active flag.
// PUT /api/v1/admin/team/:userId
func (h *Handler) HandleUpdateTeamSettings(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	userID, ok := h.parseUserID(c)
	if !ok {
		return
	}

	var req UpdateTeamSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation error", err.Error())
		return
	}

	params := UpdateTeamSettingsParams{
		LeadAllocationPercent: req.LeadAllocationPercent,
		IsActive:              req.IsActive,
	}
	if req.ManagerID != nil {
		managerID, err := uuid.Parse(*req.ManagerID)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid manager ID", nil)
			return
		}
		params.ManagerID = &managerID
	}

	user, err := h.service.UpdateTeamSettings(c.Request.Context(), userID, identity.OrgID(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toUserResponse(user))
}

// HandleApprove approves a pending user.
// POST /api/v1/admin/team/:userId/approve
func (h *Handler) HandleApprove(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	userID, ok := h.parseUserID(c)
	if !ok {
		return
	}

	user, err := h.service.Approve(c.Request.Context(), userID, identity.OrgID(), identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toUserResponse(user))
}

// RejectRequest carries the optional rejection reason.
type RejectRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// HandleReject rejects a pending user. The reason is optional, but the
// status transition and reviewer stamp always happen.
// POST /api/v1/admin/team/:userId/reject
func (h *Handler) HandleReject(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	userID, ok := h.parseUserID(c)
	if !ok {
		return
	}

	var req RejectRequest
	// Body is optional; an empty reason is a valid rejection.
	_ = c.ShouldBindJSON(&req)

	user, err := h.service.Reject(c.Request.Context(), userID, identity.OrgID(), identity.UserID(), req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toUserResponse(user))
}

func (h *Handler) parseUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid user ID", nil)
		return uuid.UUID{}, false
	}
	return userID, true
}
