package directory

import (
	"context"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-portal/internal/handler"
	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/service/availability"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/httputil"
)

type Service interface {
	Specializations(ctx context.Context, sess session.Session) ([]string, error)
	Doctors(ctx context.Context, sess session.Session, specialization string) ([]model.Doctor, error)
	Availability(ctx context.Context, sess session.Session, specialization string, date civil.Date) (*availability.Table, error)
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// AvailabilityResponse is the slot table with its times in display order.
type AvailabilityResponse struct {
	*availability.Table
	Times []string `json:"times"`
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	dir := r.Group("/directory")
	{
		dir.GET("/specializations", h.Specializations)
		dir.GET("/specializations/:spec/doctors", h.Doctors)
	}
	r.GET("/availability", h.Availability)
}

func (h *Handler) Specializations(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	specs, err := h.svc.Specializations(c.Request.Context(), sess)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, specs)
}

func (h *Handler) Doctors(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	doctors, err := h.svc.Doctors(c.Request.Context(), sess, c.Param("spec"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctors)
}

func (h *Handler) Availability(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	date, err := civil.ParseDate(strings.TrimSpace(c.Query("date")))
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("date must be YYYY-MM-DD", err))
		return
	}
	table, err := h.svc.Availability(c.Request.Context(), sess, c.Query("specialization"), date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, AvailabilityResponse{Table: table, Times: table.Times()})
}
