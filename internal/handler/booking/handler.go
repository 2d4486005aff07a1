package booking

import (
	"context"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-portal/internal/handler"
	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/service/booking"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/httputil"
)

type Service interface {
	Start(ctx context.Context, sess session.Session, preselected string) (*booking.Wizard, error)
	Get(ctx context.Context, sess session.Session, id string) (*booking.Wizard, error)
	ChooseSpecialization(ctx context.Context, sess session.Session, id, specialization string) (*booking.Wizard, error)
	LoadSlots(ctx context.Context, sess session.Session, id string, date civil.Date) (*booking.Wizard, error)
	Select(ctx context.Context, sess session.Session, id string, date civil.Date, at string, doctorID model.ID) (*booking.Wizard, error)
	Describe(ctx context.Context, sess session.Session, id, visitType, reason string) (*booking.Wizard, error)
	Back(ctx context.Context, sess session.Session, id string) (*booking.Wizard, error)
	Confirm(ctx context.Context, sess session.Session, id string) (*booking.Confirmation, error)
	Discard(ctx context.Context, sess session.Session, id string) error
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

type startRequest struct {
	Specialization string `json:"specialization"`
}

type specializationRequest struct {
	Specialization string `json:"specialization" binding:"required,notblank"`
}

type selectionRequest struct {
	Date     string   `json:"date" binding:"required"`
	Time     string   `json:"time" binding:"required"`
	DoctorID model.ID `json:"doctor_id" binding:"required"`
}

type detailsRequest struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	b := r.Group("/booking")
	{
		b.POST("", h.Start)
		b.GET("/:id", h.Get)
		b.DELETE("/:id", h.Discard)
		b.POST("/:id/specialization", h.ChooseSpecialization)
		b.GET("/:id/slots", h.LoadSlots)
		b.POST("/:id/selection", h.Select)
		b.POST("/:id/details", h.Describe)
		b.POST("/:id/confirm", h.Confirm)
		b.POST("/:id/back", h.Back)
	}
}

func (h *Handler) Start(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	var req startRequest
	if c.Request.ContentLength > 0 && !handler.BindJSON(c, &req) {
		return
	}
	w, err := h.svc.Start(c.Request.Context(), sess, strings.TrimSpace(req.Specialization))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, w)
}

func (h *Handler) Get(c *gin.Context) {
	h.step(c, func(ctx context.Context, sess session.Session, id string) (*booking.Wizard, error) {
		return h.svc.Get(ctx, sess, id)
	})
}

func (h *Handler) ChooseSpecialization(c *gin.Context) {
	var req specializationRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	h.step(c, func(ctx context.Context, sess session.Session, id string) (*booking.Wizard, error) {
		return h.svc.ChooseSpecialization(ctx, sess, id, req.Specialization)
	})
}

func (h *Handler) LoadSlots(c *gin.Context) {
	date, ok := dateParam(c, c.Query("date"))
	if !ok {
		return
	}
	h.step(c, func(ctx context.Context, sess session.Session, id string) (*booking.Wizard, error) {
		return h.svc.LoadSlots(ctx, sess, id, date)
	})
}

func (h *Handler) Select(c *gin.Context) {
	var req selectionRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	date, ok := dateParam(c, req.Date)
	if !ok {
		return
	}
	h.step(c, func(ctx context.Context, sess session.Session, id string) (*booking.Wizard, error) {
		return h.svc.Select(ctx, sess, id, date, strings.TrimSpace(req.Time), req.DoctorID)
	})
}

func (h *Handler) Describe(c *gin.Context) {
	var req detailsRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	h.step(c, func(ctx context.Context, sess session.Session, id string) (*booking.Wizard, error) {
		return h.svc.Describe(ctx, sess, id, req.Type, req.Reason)
	})
}

func (h *Handler) Back(c *gin.Context) {
	h.step(c, h.svc.Back)
}

// Confirm answers with the wizard even when submission fails, so the client
// can show where the booking went back to.
func (h *Handler) Confirm(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	res, err := h.svc.Confirm(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		if res != nil {
			httputil.RespondWithErrorData(c, err, res.Wizard)
			return
		}
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithStatus(c, http.StatusCreated, res)
}

func (h *Handler) Discard(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	if err := h.svc.Discard(c.Request.Context(), sess, c.Param("id")); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) step(c *gin.Context, fn func(ctx context.Context, sess session.Session, id string) (*booking.Wizard, error)) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	w, err := fn(c.Request.Context(), sess, c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, w)
}

func dateParam(c *gin.Context, raw string) (civil.Date, bool) {
	date, err := civil.ParseDate(strings.TrimSpace(raw))
	if err != nil {
		httputil.RespondWithError(c, errors.NewBadRequest("date must be YYYY-MM-DD", err))
		return civil.Date{}, false
	}
	return date, true
}
