package schedule

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-portal/internal/handler"
	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/httputil"
)

type Service interface {
	Slots(ctx context.Context, sess session.Session) ([]model.AvailabilitySlot, error)
	Create(ctx context.Context, sess session.Session, req model.AvailabilityRequest) error
	Update(ctx context.Context, sess session.Session, id model.ID, req model.AvailabilityRequest) error
	Delete(ctx context.Context, sess session.Session, id model.ID) error
}

// Handler serves a doctor's own availability. The router mounts it behind
// the doctor role guard.
type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/availability/mine", h.List)
	r.POST("/availability", h.Create)
	r.PATCH("/availability/:id", h.Update)
	r.DELETE("/availability/:id", h.Delete)
}

func (h *Handler) List(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	slots, err := h.svc.Slots(c.Request.Context(), sess)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, slots)
}

func (h *Handler) Create(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	var req model.AvailabilityRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	if err := h.svc.Create(c.Request.Context(), sess, req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httputil.Response{Status: "success", Message: "availability created"})
}

func (h *Handler) Update(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	var req model.AvailabilityRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	if err := h.svc.Update(c.Request.Context(), sess, id, req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, httputil.Response{Status: "success", Message: "availability updated"})
}

func (h *Handler) Delete(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), sess, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
