package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sante/internal/dmp/models"
	"sante/internal/platform/middleware"
	"sante/internal/rbac"
	"sante/pkg/platform/httputil"
	"sante/pkg/requestcontext"

	dErrors "sante/pkg/domain-errors"
)

//go:generate mockgen -source=handler.go -destination=mocks/dmp-mocks.go -package=mocks Service

// Service defines the DMP operations the handler needs.
type Service interface {
	GetFullDMP(ctx context.Context, patientID, requestorID string) (*models.DMP, error)
	GrantConsent(ctx context.Context, patientID, professionalID string, ttl *time.Duration) (*models.Consent, error)
	RevokeConsent(ctx context.Context, patientID string, consentID uuid.UUID) (*models.Consent, error)
	ListConsents(ctx context.Context, patientID string) ([]*models.Consent, error)
	AddConsultation(ctx context.Context, c models.Consultation) (*models.Consultation, error)
	AddPrescription(ctx context.Context, p models.Prescription) (*models.Prescription, error)
	AddLabResult(ctx context.Context, l models.LabResult) (*models.LabResult, error)
	AddImagingResult(ctx context.Context, i models.ImagingResult) (*models.ImagingResult, error)
	AddVaccination(ctx context.Context, v models.Vaccination) (*models.Vaccination, error)
	AddHistoryItem(ctx context.Context, h models.HistoryItem) (*models.HistoryItem, error)
}

// Handler serves /dmp endpoints. Reads go through the consent check; writes
// are gated only by the caller's RBAC permissions.
type Handler struct {
	logger       *slog.Logger
	dmp          Service
	jwtValidator middleware.JWTValidator
}

func New(dmp Service, jwtValidator middleware.JWTValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:       logger,
		dmp:          dmp,
		jwtValidator: jwtValidator,
	}
}

// Register registers the DMP routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/dmp/{patientID}", func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.jwtValidator, h.logger))

		r.With(middleware.RequireAnyPermission(h.logger, rbac.PermReadOwnDMP, rbac.PermReadPatientDMP)).
			Get("/", h.handleGetDMP)

		r.With(middleware.RequirePermissions(h.logger, rbac.PermGrantConsent)).
			Post("/consents", h.handleGrantConsent)
		r.With(middleware.RequireAnyPermission(h.logger, rbac.PermGrantConsent, rbac.PermRevokeConsent)).
			Get("/consents", h.handleListConsents)
		r.With(middleware.RequirePermissions(h.logger, rbac.PermRevokeConsent)).
			Post("/consents/{consentID}/revoke", h.handleRevokeConsent)

		r.With(middleware.RequirePermissions(h.logger, rbac.PermWritePatientDMP)).
			Post("/consultations", h.handleAddConsultation)
		r.With(middleware.RequirePermissions(h.logger, rbac.PermWritePrescription)).
			Post("/prescriptions", h.handleAddPrescription)
		r.With(middleware.RequirePermissions(h.logger, rbac.PermWriteLabResult)).
			Post("/lab-results", h.handleAddLabResult)
		r.With(middleware.RequirePermissions(h.logger, rbac.PermWriteImagingResult)).
			Post("/imaging-results", h.handleAddImagingResult)
		r.With(middleware.RequirePermissions(h.logger, rbac.PermWriteVaccination)).
			Post("/vaccinations", h.handleAddVaccination)
		r.With(middleware.RequirePermissions(h.logger, rbac.PermWritePatientDMP)).
			Post("/history", h.handleAddHistoryItem)
	})
}

func accessDenied() error {
	return dErrors.New(dErrors.CodeAccessDenied, "access denied")
}

// handleGetDMP answers 403 with the same body whether the patient is unknown,
// has not consented, or the caller may only read their own record.
func (h *Handler) handleGetDMP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	patientID := chi.URLParam(r, "patientID")
	requestorID := requestcontext.UserID(ctx)
	role := rbac.Role(requestcontext.Role(ctx))

	if patientID != requestorID && !rbac.HasPermission(role, rbac.PermReadPatientDMP) {
		httputil.WriteError(w, accessDenied())
		return
	}
	dmp, err := h.dmp.GetFullDMP(ctx, patientID, requestorID)
	if err != nil {
		h.writeServiceError(ctx, w, "get dmp", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dmp)
}

type grantConsentRequest struct {
	ProfessionalID string `json:"professional_id"`
	TTLSeconds     *int64 `json:"ttl_seconds,omitempty"`
}

type consentsResponse struct {
	Consents []*models.Consent `json:"consents"`
}

// ownRecord lets a patient manage consents on their own DMP only.
func (h *Handler) ownRecord(w http.ResponseWriter, r *http.Request) (string, bool) {
	patientID := chi.URLParam(r, "patientID")
	if patientID != requestcontext.UserID(r.Context()) {
		httputil.WriteError(w, accessDenied())
		return "", false
	}
	return patientID, true
}

// maxConsentTTL bounds ttl_seconds before it becomes a time.Duration.
const maxConsentTTL = 10 * 365 * 24 * time.Hour

func (h *Handler) handleGrantConsent(w http.ResponseWriter, r *http.Request) {
	patientID, ok := h.ownRecord(w, r)
	if !ok {
		return
	}
	var req grantConsentRequest
	if !h.decode(w, r, &req) {
		return
	}
	var ttl *time.Duration
	if req.TTLSeconds != nil {
		if *req.TTLSeconds > int64(maxConsentTTL/time.Second) {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "ttl_seconds must be at most ten years"))
			return
		}
		d := time.Duration(*req.TTLSeconds) * time.Second
		ttl = &d
	}
	consent, err := h.dmp.GrantConsent(r.Context(), patientID, req.ProfessionalID, ttl)
	if err != nil {
		h.writeServiceError(r.Context(), w, "grant consent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, consent)
}

func (h *Handler) handleListConsents(w http.ResponseWriter, r *http.Request) {
	patientID, ok := h.ownRecord(w, r)
	if !ok {
		return
	}
	consents, err := h.dmp.ListConsents(r.Context(), patientID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "list consents", err)
		return
	}
	if consents == nil {
		consents = []*models.Consent{}
	}
	httputil.WriteJSON(w, http.StatusOK, consentsResponse{Consents: consents})
}

func (h *Handler) handleRevokeConsent(w http.ResponseWriter, r *http.Request) {
	patientID, ok := h.ownRecord(w, r)
	if !ok {
		return
	}
	consentID, err := uuid.Parse(chi.URLParam(r, "consentID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid consent id"))
		return
	}
	consent, err := h.dmp.RevokeConsent(r.Context(), patientID, consentID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "revoke consent", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, consent)
}

// entryMeta fills the patient from the path and the author from the caller.
func entryMeta(r *http.Request) models.EntryMeta {
	return models.EntryMeta{
		PatientID: chi.URLParam(r, "patientID"),
		AuthorID:  requestcontext.UserID(r.Context()),
	}
}

func (h *Handler) handleAddConsultation(w http.ResponseWriter, r *http.Request) {
	var c models.Consultation
	if !h.decode(w, r, &c) {
		return
	}
	c.EntryMeta = entryMeta(r)
	created, err := h.dmp.AddConsultation(r.Context(), c)
	h.writeCreated(w, r, "add consultation", created, err)
}

func (h *Handler) handleAddPrescription(w http.ResponseWriter, r *http.Request) {
	var p models.Prescription
	if !h.decode(w, r, &p) {
		return
	}
	p.EntryMeta = entryMeta(r)
	created, err := h.dmp.AddPrescription(r.Context(), p)
	h.writeCreated(w, r, "add prescription", created, err)
}

func (h *Handler) handleAddLabResult(w http.ResponseWriter, r *http.Request) {
	var l models.LabResult
	if !h.decode(w, r, &l) {
		return
	}
	l.EntryMeta = entryMeta(r)
	created, err := h.dmp.AddLabResult(r.Context(), l)
	h.writeCreated(w, r, "add lab result", created, err)
}

func (h *Handler) handleAddImagingResult(w http.ResponseWriter, r *http.Request) {
	var i models.ImagingResult
	if !h.decode(w, r, &i) {
		return
	}
	i.EntryMeta = entryMeta(r)
	created, err := h.dmp.AddImagingResult(r.Context(), i)
	h.writeCreated(w, r, "add imaging result", created, err)
}

func (h *Handler) handleAddVaccination(w http.ResponseWriter, r *http.Request) {
	var v models.Vaccination
	if !h.decode(w, r, &v) {
		return
	}
	v.EntryMeta = entryMeta(r)
	created, err := h.dmp.AddVaccination(r.Context(), v)
	h.writeCreated(w, r, "add vaccination", created, err)
}

func (h *Handler) handleAddHistoryItem(w http.ResponseWriter, r *http.Request) {
	var item models.HistoryItem
	if !h.decode(w, r, &item) {
		return
	}
	item.EntryMeta = entryMeta(r)
	created, err := h.dmp.AddHistoryItem(r.Context(), item)
	h.writeCreated(w, r, "add history item", created, err)
}

func (h *Handler) writeCreated(w http.ResponseWriter, r *http.Request, op string, created any, err error) {
	if err != nil {
		h.writeServiceError(r.Context(), w, op, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.WarnContext(r.Context(), "invalid request body",
			"path", r.URL.Path,
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return false
	}
	sanitize(dst)
	return true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
