package appointment

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
	Get(ctx context.Context, sess session.Session, id model.ID) (*model.Appointment, error)
	Complete(ctx context.Context, sess session.Session, id model.ID) error
	Cancel(ctx context.Context, sess session.Session, id model.ID) error
	Delete(ctx context.Context, sess session.Session, id model.ID) error
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("/:id", h.GetAppointment)
		appointments.PATCH("/:id/complete", h.CompleteAppointment)
		appointments.PATCH("/:id/cancel", h.CancelAppointment)
		appointments.DELETE("/:id", h.DeleteAppointment)
	}
}

func (h *Handler) GetAppointment(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	a, err := h.service.Get(c.Request.Context(), sess, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, a)
}

func (h *Handler) CompleteAppointment(c *gin.Context) {
	h.act(c, h.service.Complete, "appointment completed")
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	h.act(c, h.service.Cancel, "appointment cancelled")
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	h.act(c, h.service.Delete, "appointment deleted")
}

func (h *Handler) act(c *gin.Context, fn func(context.Context, session.Session, model.ID) error, done string) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	if err := fn(c.Request.Context(), sess, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, httputil.Response{Status: "success", Message: done})
}
