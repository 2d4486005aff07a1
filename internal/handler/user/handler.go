package user

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-portal/internal/handler"
	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/service/user"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/httputil"
)

type Service interface {
	RegisterPatient(ctx context.Context, req model.RegisterPatientRequest) (*user.Registration, error)
	RegisterDoctor(ctx context.Context, req model.RegisterDoctorRequest) (*user.Registration, error)
	Pending(ctx context.Context, sess session.Session) ([]model.User, error)
	Activate(ctx context.Context, sess session.Session, id model.ID) error
	Delete(ctx context.Context, sess session.Session, id model.ID) error
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	register := r.Group("/register")
	{
		register.POST("/patient", h.RegisterPatient)
		register.POST("/doctor", h.RegisterDoctor)
	}
}

// RegisterRoutes mounts the account administration routes; the router puts
// them behind the admin role guard.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	users := r.Group("/admin/users")
	{
		users.GET("/pending", h.ListPending)
		users.PATCH("/:id/activate", h.ActivateUser)
		users.DELETE("/:id", h.DeleteUser)
	}
}

func (h *Handler) RegisterPatient(c *gin.Context) {
	var req model.RegisterPatientRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	reg, err := h.service.RegisterPatient(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, reg)
}

func (h *Handler) RegisterDoctor(c *gin.Context) {
	var req model.RegisterDoctorRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	reg, err := h.service.RegisterDoctor(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, reg)
}

func (h *Handler) ListPending(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	users, err := h.service.Pending(c.Request.Context(), sess)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, users)
}

func (h *Handler) ActivateUser(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Activate(c.Request.Context(), sess, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, httputil.Response{Status: "success", Message: "user activated"})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), sess, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
