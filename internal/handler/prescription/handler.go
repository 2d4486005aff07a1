package prescription

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
	Create(ctx context.Context, sess session.Session, req model.CreatePrescriptionRequest) error
	List(ctx context.Context, sess session.Session) ([]model.Prescription, error)
	Get(ctx context.Context, sess session.Session, id model.ID) (*model.Prescription, error)
	Delete(ctx context.Context, sess session.Session, id model.ID) error
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	p := r.Group("/prescriptions")
	{
		p.GET("", h.List)
		p.POST("", h.Create)
		p.GET("/:id", h.Get)
		p.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) List(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	list, err := h.svc.List(c.Request.Context(), sess)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}

func (h *Handler) Create(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	var req model.CreatePrescriptionRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	if err := h.svc.Create(c.Request.Context(), sess, req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, httputil.Response{Status: "success", Message: "prescription created"})
}

func (h *Handler) Get(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	id, ok := handler.ParamID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.Get(c.Request.Context(), sess, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
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
