package auth

import (
	"net/http"

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

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin authenticates a user and issues a JWT.
// POST /api/v1/auth/login
func (h *Handler) HandleLogin(c *gin.Context) {
	var req LoginRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	result, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

type RegisterOrgRequest struct {
	OrganizationName string `json:"organizationName" validate:"required,min=2,max=200"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8"`
	Name             string `json:"name" validate:"required,min=1,max=200"`
}

// HandleRegisterOrganization creates a new organization and admin account.
// POST /api/v1/auth/register
func (h *Handler) HandleRegisterOrganization(c *gin.Context) {
	var req RegisterOrgRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	result, err := h.service.RegisterOrganization(c.Request.Context(), req.OrganizationName, req.Email, req.Password, req.Name)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

type RegisterSalesRequest struct {
	OrganizationID string `json:"organizationId" validate:"required,uuid"`
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,min=8"`
	Name           string `json:"name" validate:"required,min=1,max=200"`
}

// HandleRegisterSales creates an unapproved sales account in an organization.
// POST /api/v1/auth/register-sales
func (h *Handler) HandleRegisterSales(c *gin.Context) {
	var req RegisterSalesRequest
	if !h.bindAndValidate(c, &req) {
		return
	}

	orgID, err := uuid.Parse(req.OrganizationID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid organization ID", nil)
		return
	}

	if err := h.service.RegisterSalesUser(c.Request.Context(), orgID, req.Email, req.Password, req.Name); httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "registration received, awaiting approval"})
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
