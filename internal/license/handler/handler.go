// Package handler wires the license service endpoints onto the HTTP router.
package handler

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"sonoreport/internal/identity"
	"sonoreport/internal/license"
	"sonoreport/internal/platform/httputil"
)

const sessionDuration = 24 * time.Hour

// Handler exposes license issuance, login, and device verification.
type Handler struct {
	licenses   *license.Service
	identities *identity.Service
	adminToken string
	logger     *slog.Logger
}

// New constructs the license handler.
func New(licenses *license.Service, identities *identity.Service, adminToken string, logger *slog.Logger) *Handler {
	return &Handler{
		licenses:   licenses,
		identities: identities,
		adminToken: adminToken,
		logger:     logger,
	}
}

// Register mounts the license endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/licenses", h.HandleCreateLicense)
	r.Post("/v1/auth/login", h.HandleLogin)
	r.Post("/v1/licenses/verify-device", h.HandleVerifyDevice)
}

type createLicenseRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Plan       string `json:"plan"`
	Practice   string `json:"practice"`
	VetName    string `json:"vet_name"`
	ClinicName string `json:"clinic_name"`
}

// HandleCreateLicense handles POST /v1/licenses. Issuance is an operator
// action gated by the admin token, never exposed to end users.
func (h *Handler) HandleCreateLicense(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		httputil.WriteError(w, httputil.NewError(httputil.CodeUnauthenticated, "admin token required"))
		return
	}

	req, ok := httputil.Decode[createLicenseRequest](w, r)
	if !ok {
		return
	}
	if req.Email == "" || req.Password == "" || req.Plan == "" {
		httputil.WriteError(w, httputil.NewError(httputil.CodeInvalidArgument, "email, password and plan are required"))
		return
	}

	result, err := h.licenses.CreateLicense(r.Context(), license.CreateLicenseInput{
		Email:      req.Email,
		Password:   req.Password,
		Plan:       req.Plan,
		Practice:   req.Practice,
		VetName:    req.VetName,
		ClinicName: req.ClinicName,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "create license failed", "email", req.Email, "error", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "license issued", "uid", result.UID, "plan", req.Plan)
	httputil.WriteJSON(w, http.StatusCreated, result)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	UID   string `json:"uid"`
}

// HandleLogin handles POST /v1/auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[loginRequest](w, r)
	if !ok {
		return
	}

	user, err := h.identities.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		httputil.WriteError(w, httputil.NewError(httputil.CodeUnauthenticated, "invalid credentials"))
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "login failed", "email", req.Email, "error", err)
		httputil.WriteError(w, err)
		return
	}

	token, err := h.identities.IssueToken(user, sessionDuration)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "issue token failed", "uid", user.ID, "error", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, loginResponse{Token: token, UID: user.ID})
}

type verifyDeviceRequest struct {
	DeviceID string `json:"device_id"`
}

// HandleVerifyDevice handles POST /v1/licenses/verify-device. The uid comes
// from the session token, never from the body.
func (h *Handler) HandleVerifyDevice(w http.ResponseWriter, r *http.Request) {
	claims, err := h.sessionClaims(r)
	if err != nil {
		httputil.WriteError(w, httputil.NewError(httputil.CodeUnauthenticated, "valid session token required"))
		return
	}

	req, ok := httputil.Decode[verifyDeviceRequest](w, r)
	if !ok {
		return
	}
	if req.DeviceID == "" {
		httputil.WriteError(w, httputil.NewError(httputil.CodeInvalidArgument, "device_id is required"))
		return
	}

	result, err := h.licenses.VerifyDevice(r.Context(), claims.Subject, req.DeviceID)
	if errors.Is(err, license.ErrSubscriptionNotFound) {
		httputil.WriteError(w, httputil.NewError(httputil.CodeNotFound, "no subscription for account"))
		return
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "verify device failed", "uid", claims.Subject, "error", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "device verified",
		"uid", claims.Subject,
		"allowed", result.Allowed(),
		"status", result.Status,
		"reason", result.Reason,
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) isAdmin(r *http.Request) bool {
	if h.adminToken == "" {
		return false
	}
	got := r.Header.Get("X-Admin-Token")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.adminToken)) == 1
}

func (h *Handler) sessionClaims(r *http.Request) (*identity.SessionClaims, error) {
	auth := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || raw == "" {
		return nil, errors.New("missing bearer token")
	}
	return h.identities.VerifyToken(raw)
}
