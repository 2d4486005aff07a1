package profile

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-portal/internal/handler"
	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/service/identity"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/errors"
	"github.com/jwalitptl/clinic-portal/pkg/httputil"
)

type Service interface {
	Profile(ctx context.Context, sess session.Session) (*model.Patient, error)
	SaveProfile(ctx context.Context, sess session.Session, req model.UpdatePatientRequest) (*model.Patient, error)
	Appointments(ctx context.Context, sess session.Session, scope identity.Scope) ([]model.Appointment, error)
}

// profileForm carries the edit as typed; the service trims and validates it.
type profileForm struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	PESEL     string `json:"pesel"`
	Phone     string `json:"phone"`
}

type Handler struct {
	svc Service
}

func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	me := r.Group("/me")
	{
		me.GET("/profile", h.Get)
		me.PATCH("/profile", h.Update)
		me.GET("/appointments", h.Appointments)
	}
}

func (h *Handler) Get(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	p, err := h.svc.Profile(c.Request.Context(), sess)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

// Update answers a rejected edit with the last saved profile, so the form
// can be reset to it.
func (h *Handler) Update(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	var form profileForm
	if err := c.ShouldBindJSON(&form); err != nil {
		current, _ := h.svc.Profile(c.Request.Context(), sess)
		httputil.RespondWithErrorData(c, errors.NewBadRequest("invalid request body", err), current)
		return
	}
	p, err := h.svc.SaveProfile(c.Request.Context(), sess, model.UpdatePatientRequest(form))
	if err != nil {
		httputil.RespondWithErrorData(c, err, p)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) Appointments(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	scope, err := identity.ParseScope(c.Query("scope"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	list, err := h.svc.Appointments(c.Request.Context(), sess, scope)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}
