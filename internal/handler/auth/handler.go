package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-portal/internal/handler"
	"github.com/jwalitptl/clinic-portal/internal/middleware"
	"github.com/jwalitptl/clinic-portal/internal/model"
	"github.com/jwalitptl/clinic-portal/internal/session"
	"github.com/jwalitptl/clinic-portal/pkg/httputil"
)

type Service interface {
	Login(ctx context.Context, email, password string) (session.Session, error)
	Logout(ctx context.Context, sess session.Session) error
	Me(ctx context.Context, sess session.Session) (*model.AuthUser, error)
}

type CookieConfig struct {
	Name   string
	Secure bool
}

type Handler struct {
	svc    Service
	cookie CookieConfig
}

func NewHandler(svc Service, cookie CookieConfig) *Handler {
	if cookie.Name == "" {
		cookie.Name = middleware.DefaultCookieName
	}
	return &Handler{svc: svc, cookie: cookie}
}

// LoginResponse describes the new session. The backend token stays on the server.
type LoginResponse struct {
	SessionID string     `json:"session_id"`
	UserID    model.ID   `json:"user_id,omitempty"`
	PatientID model.ID   `json:"patient_id,omitempty"`
	DoctorID  model.ID   `json:"doctor_id,omitempty"`
	Role      model.Role `json:"role,omitempty"`
	ExpiresAt time.Time  `json:"expires_at"`
}

func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/auth/login", h.Login)
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	auth := r.Group("/auth")
	{
		auth.POST("/logout", h.Logout)
		auth.GET("/me", h.Me)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	sess, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	maxAge := int(time.Until(sess.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cookie.Name, sess.ID, maxAge, "/", "", h.cookie.Secure, true)
	c.Header(middleware.HeaderSessionID, sess.ID)

	httputil.RespondWithSuccess(c, LoginResponse{
		SessionID: sess.ID,
		UserID:    sess.UserID,
		PatientID: sess.PatientID,
		DoctorID:  sess.DoctorID,
		Role:      sess.Role,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	if err := h.svc.Logout(c.Request.Context(), sess); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	c.JSON(http.StatusOK, httputil.Response{Status: "success", Message: "logged out"})
}

func (h *Handler) Me(c *gin.Context) {
	sess, ok := handler.Session(c)
	if !ok {
		return
	}
	me, err := h.svc.Me(c.Request.Context(), sess)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, me)
}
