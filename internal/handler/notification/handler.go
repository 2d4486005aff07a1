package notification

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-portal/internal/handler"
	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/service/notification"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/httputil"
)

type Service interface {
	Inbox(ctx context.Context, sess session.Session) (*notification.Inbox, error)
	MarkRead(ctx context.Context, sess session.Session, id model.ID) error
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	n := r.Group("/notifications")
	{
		n.GET("", h.List)
		n.POST("/:id/read", h.MarkRead)
	}
}

func (h *Handler) List(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	inbox, err := h.svc.Inbox(c.Request.Context(), sess)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, inbox)
}

func (h *Handler) MarkRead(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), sess, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, httputil.Response{Status: "success", Message: "notification marked as read"})
}
