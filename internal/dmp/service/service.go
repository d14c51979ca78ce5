package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"sante/internal/dmp/models"
	"sante/internal/events"
	"sante/internal/platform/metrics"
	"sante/pkg/platform/audit"
	"sante/pkg/platform/sentinel"
	"sante/pkg/requestcontext"

	dErrors "sante/pkg/domain-errors"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ConsentRepository,EntryRepository,AuditPublisher,EventPublisher

// ConsentRepository stores consents. Revoke returns sentinel.ErrNotFound for
// an unknown consent and sentinel.ErrInvalidState when it is already revoked.
// List methods return consents in insertion order.
type ConsentRepository interface {
	Save(ctx context.Context, consent *models.Consent) error
	ListByPatient(ctx context.Context, patientID string) ([]*models.Consent, error)
	ListByPair(ctx context.Context, patientID, professionalID string) ([]*models.Consent, error)
	Revoke(ctx context.Context, patientID string, consentID uuid.UUID, revokedAt time.Time) (*models.Consent, error)
}

// EntryRepository stores one kind of clinical entry, partitioned by patient.
type EntryRepository[T models.Entry] interface {
	Append(ctx context.Context, entry T) error
	ListByPatient(ctx context.Context, patientID string) ([]T, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// EventPublisher announces DMP facts to other components.
type EventPublisher interface {
	Emit(ctx context.Context, eventType string, data map[string]any) error
}

// Repositories groups one repository per entity.
type Repositories struct {
	Consents       ConsentRepository
	Consultations  EntryRepository[models.Consultation]
	Prescriptions  EntryRepository[models.Prescription]
	LabResults     EntryRepository[models.LabResult]
	ImagingResults EntryRepository[models.ImagingResult]
	Vaccinations   EntryRepository[models.Vaccination]
	History        EntryRepository[models.HistoryItem]
}

func (r Repositories) complete() bool {
	return r.Consents != nil && r.Consultations != nil && r.Prescriptions != nil &&
		r.LabResults != nil && r.ImagingResults != nil && r.Vaccinations != nil && r.History != nil
}

// Service decides who may read a patient's DMP and records clinical entries.
// Writes perform no consent check; callers gate them with RBAC permissions.
type Service struct {
	repos          Repositories
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
	events         EventPublisher
	defaultTTL     time.Duration
	now            func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = p
	}
}

// WithEventPublisher announces consent changes and new entries on the bus.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

// WithDefaultConsentTTL sets the lifetime of consents granted without an
// explicit TTL. Zero means such consents never expire.
func WithDefaultConsentTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.defaultTTL = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(repos Repositories, opts ...Option) (*Service, error) {
	if !repos.complete() {
		return nil, errors.New("dmp service: every repository is required")
	}
	s := &Service{
		repos:  repos,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CheckAccess reports whether requestorID may read patientID's DMP. Patients
// always read their own record. Otherwise only the most recently granted
// consent for the pair counts, and it must be neither revoked nor expired.
func (s *Service) CheckAccess(ctx context.Context, patientID, requestorID string) (bool, error) {
	if patientID == "" || requestorID == "" {
		return false, nil
	}
	if patientID == requestorID {
		return true, nil
	}
	consents, err := s.repos.Consents.ListByPair(ctx, patientID, requestorID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load consents")
	}
	latest := models.MostRecent(consents)
	if latest == nil {
		return false, nil
	}
	return latest.IsActive(s.now()), nil
}

// GetFullDMP returns the whole record when CheckAccess allows it. A denial
// returns CodeAccessDenied and no data at all.
func (s *Service) GetFullDMP(ctx context.Context, patientID, requestorID string) (*models.DMP, error) {
	granted, err := s.CheckAccess(ctx, patientID, requestorID)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordAccessDecision(granted)
	if !granted {
		s.logger.WarnContext(ctx, "dmp access denied",
			"requestor_id", requestorID,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.logAudit(ctx, audit.Event{
			Action:   string(audit.EventDMPAccessDenied),
			UserID:   patientID,
			ActorID:  requestorID,
			Decision: "denied",
			Reason:   "no active consent",
		})
		return nil, dErrors.New(dErrors.CodeAccessDenied, "access denied")
	}

	dmp := &models.DMP{PatientID: patientID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(loadInto(gctx, s.repos.Consultations, patientID, &dmp.Consultations))
	g.Go(loadInto(gctx, s.repos.Prescriptions, patientID, &dmp.Prescriptions))
	g.Go(loadInto(gctx, s.repos.LabResults, patientID, &dmp.LabResults))
	g.Go(loadInto(gctx, s.repos.ImagingResults, patientID, &dmp.ImagingResults))
	g.Go(loadInto(gctx, s.repos.Vaccinations, patientID, &dmp.Vaccinations))
	g.Go(loadInto(gctx, s.repos.History, patientID, &dmp.History))
	if err := g.Wait(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load dmp")
	}
	dmp.GeneratedAt = s.now()

	s.logAudit(ctx, audit.Event{
		Action:   string(audit.EventDMPAccessGranted),
		UserID:   patientID,
		ActorID:  requestorID,
		Decision: "granted",
	})
	return dmp, nil
}

func loadInto[T models.Entry](ctx context.Context, repo EntryRepository[T], patientID string, dst *[]T) func() error {
	return func() error {
		entries, err := repo.ListByPatient(ctx, patientID)
		if err != nil {
			return err
		}
		entries = slices.Clone(entries)
		slices.SortStableFunc(entries, func(a, b T) int {
			return b.OccurredAt().Compare(a.OccurredAt())
		})
		if entries == nil {
			entries = []T{}
		}
		*dst = entries
		return nil
	}
}

// GrantConsent lets professionalID read patientID's DMP. A nil ttl falls back
// to the configured default.
func (s *Service) GrantConsent(ctx context.Context, patientID, professionalID string, ttl *time.Duration) (*models.Consent, error) {
	patientID = strings.TrimSpace(patientID)
	professionalID = strings.TrimSpace(professionalID)
	if patientID == "" || professionalID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "patient_id and professional_id are required")
	}
	if patientID == professionalID {
		return nil, dErrors.New(dErrors.CodeValidation, "a patient cannot grant consent to themselves")
	}
	lifetime := s.defaultTTL
	if ttl != nil {
		if *ttl <= 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "ttl must be positive")
		}
		lifetime = *ttl
	}

	now := s.now()
	consent := &models.Consent{
		ID:             uuid.New(),
		PatientID:      patientID,
		ProfessionalID: professionalID,
		GrantedAt:      now,
	}
	if lifetime > 0 {
		expires := now.Add(lifetime)
		consent.ExpiresAt = &expires
	}
	if err := s.repos.Consents.Save(ctx, consent); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "consent already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save consent")
	}

	s.logger.InfoContext(ctx, "consent granted",
		"consent_id", consent.ID,
		"professional_id", professionalID,
	)
	s.logAudit(ctx, audit.Event{
		Action:  string(audit.EventConsentGranted),
		UserID:  patientID,
		Subject: professionalID,
	})
	s.publish(ctx, events.DMPConsentGranted, map[string]any{
		"consent_id":      consent.ID.String(),
		"patient_id":      patientID,
		"professional_id": professionalID,
	})
	return consent, nil
}

// RevokeConsent sets RevokedAt on one of the patient's consents. Revoking
// twice is a conflict.
func (s *Service) RevokeConsent(ctx context.Context, patientID string, consentID uuid.UUID) (*models.Consent, error) {
	consent, err := s.repos.Consents.Revoke(ctx, patientID, consentID, s.now())
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.New(dErrors.CodeNotFound, "consent not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return nil, dErrors.New(dErrors.CodeConflict, "consent already revoked")
	case err != nil:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke consent")
	}

	s.logger.InfoContext(ctx, "consent revoked", "consent_id", consentID)
	s.logAudit(ctx, audit.Event{
		Action:  string(audit.EventConsentRevoked),
		UserID:  patientID,
		Subject: consent.ProfessionalID,
	})
	s.publish(ctx, events.DMPConsentRevoked, map[string]any{
		"consent_id":      consentID.String(),
		"patient_id":      patientID,
		"professional_id": consent.ProfessionalID,
	})
	return consent, nil
}

// ListConsents returns the patient's consents, newest grant first.
func (s *Service) ListConsents(ctx context.Context, patientID string) ([]*models.Consent, error) {
	consents, err := s.repos.Consents.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list consents")
	}
	// Newest first; on equal GrantedAt the later-inserted consent leads.
	slices.Reverse(consents)
	slices.SortStableFunc(consents, func(a, b *models.Consent) int {
		return b.GrantedAt.Compare(a.GrantedAt)
	})
	return consents, nil
}

func (s *Service) AddConsultation(ctx context.Context, c models.Consultation) (*models.Consultation, error) {
	c.EntryMeta = s.stamp(c.EntryMeta)
	return addEntry(ctx, s, s.repos.Consultations, c)
}

func (s *Service) AddPrescription(ctx context.Context, p models.Prescription) (*models.Prescription, error) {
	p.EntryMeta = s.stamp(p.EntryMeta)
	return addEntry(ctx, s, s.repos.Prescriptions, p)
}

func (s *Service) AddLabResult(ctx context.Context, l models.LabResult) (*models.LabResult, error) {
	l.EntryMeta = s.stamp(l.EntryMeta)
	return addEntry(ctx, s, s.repos.LabResults, l)
}

func (s *Service) AddImagingResult(ctx context.Context, i models.ImagingResult) (*models.ImagingResult, error) {
	i.EntryMeta = s.stamp(i.EntryMeta)
	return addEntry(ctx, s, s.repos.ImagingResults, i)
}

func (s *Service) AddVaccination(ctx context.Context, v models.Vaccination) (*models.Vaccination, error) {
	v.EntryMeta = s.stamp(v.EntryMeta)
	return addEntry(ctx, s, s.repos.Vaccinations, v)
}

func (s *Service) AddHistoryItem(ctx context.Context, h models.HistoryItem) (*models.HistoryItem, error) {
	h.EntryMeta = s.stamp(h.EntryMeta)
	return addEntry(ctx, s, s.repos.History, h)
}

// stamp assigns the server-side identity of a new entry.
func (s *Service) stamp(meta models.EntryMeta) models.EntryMeta {
	meta.ID = uuid.New()
	meta.PatientID = strings.TrimSpace(meta.PatientID)
	meta.AuthorID = strings.TrimSpace(meta.AuthorID)
	meta.CreatedAt = s.now()
	return meta
}

func addEntry[T models.Entry](ctx context.Context, s *Service, repo EntryRepository[T], entry T) (*T, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	if err := repo.Append(ctx, entry); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add "+string(entry.Kind()))
	}

	meta := entry.Meta()
	s.logAudit(ctx, audit.Event{
		Action:  string(audit.EventClinicalEntryAdded),
		UserID:  meta.PatientID,
		ActorID: meta.AuthorID,
		Subject: string(entry.Kind()),
	})
	s.publish(ctx, events.DMPEntryAdded, map[string]any{
		"entry_id":   meta.ID.String(),
		"kind":       string(entry.Kind()),
		"patient_id": meta.PatientID,
		"author_id":  meta.AuthorID,
	})
	return &entry, nil
}

func (s *Service) publish(ctx context.Context, eventType string, data map[string]any) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, eventType, data); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish dmp event",
			"event_type", eventType,
			"error", err,
		)
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
