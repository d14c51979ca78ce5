package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"sante/internal/dmp/models"
	"sante/internal/dmp/service/mocks"
	"sante/internal/dmp/store/memory"
	"sante/internal/eventbus"
	"sante/internal/events"
	"sante/pkg/platform/audit"
	"sante/pkg/platform/audit/publisher"
	auditmemory "sante/pkg/platform/audit/store/memory"

	dErrors "sante/pkg/domain-errors"
)

const (
	patientID = "patient-1"
	doctorID  = "doctor-1"
	otherID   = "doctor-2"
)

type ServiceSuite struct {
	suite.Suite
	ctx        context.Context
	now        time.Time
	repos      Repositories
	consents   *memory.ConsentStore
	auditStore *auditmemory.InMemoryStore
	bus        *eventbus.Bus
	service    *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.consents = memory.NewConsentStore()
	s.repos = Repositories{
		Consents:       s.consents,
		Consultations:  memory.NewEntryStore[models.Consultation](),
		Prescriptions:  memory.NewEntryStore[models.Prescription](),
		LabResults:     memory.NewEntryStore[models.LabResult](),
		ImagingResults: memory.NewEntryStore[models.ImagingResult](),
		Vaccinations:   memory.NewEntryStore[models.Vaccination](),
		History:        memory.NewEntryStore[models.HistoryItem](),
	}
	s.auditStore = auditmemory.NewInMemoryStore()
	s.bus = eventbus.New(eventbus.WithLogger(discard()))
	s.service = s.newService(s.repos)
}

func (s *ServiceSuite) newService(repos Repositories, opts ...Option) *Service {
	opts = append([]Option{
		WithLogger(discard()),
		WithClock(func() time.Time { return s.now }),
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
		WithEventPublisher(eventbus.NewEmitter(s.bus, "dmp")),
	}, opts...)
	svc, err := New(repos, opts...)
	s.Require().NoError(err)
	return svc
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *ServiceSuite) seedConsent(professional string, grantedAt time.Time, revoked bool, expiresAt *time.Time) {
	c := &models.Consent{
		ID:             uuid.New(),
		PatientID:      patientID,
		ProfessionalID: professional,
		GrantedAt:      grantedAt,
		ExpiresAt:      expiresAt,
	}
	if revoked {
		at := grantedAt.Add(time.Minute)
		c.RevokedAt = &at
	}
	s.Require().NoError(s.consents.Save(s.ctx, c))
}

func (s *ServiceSuite) auditActions() []string {
	recorded, err := s.auditStore.ListByUser(s.ctx, patientID)
	s.Require().NoError(err)
	var actions []string
	for _, e := range recorded {
		actions = append(actions, e.Action)
	}
	return actions
}

func (s *ServiceSuite) TestNewRequiresEveryRepository() {
	repos := s.repos
	repos.History = nil
	_, err := New(repos)
	s.Error(err)
}

func (s *ServiceSuite) TestCheckAccess() {
	s.Run("patient reads own record without consent", func() {
		ok, err := s.service.CheckAccess(s.ctx, patientID, patientID)
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("empty ids are denied", func() {
		ok, err := s.service.CheckAccess(s.ctx, "", "")
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("no consent", func() {
		ok, err := s.service.CheckAccess(s.ctx, patientID, doctorID)
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *ServiceSuite) TestCheckAccessConsentStates() {
	past := s.now.Add(-time.Hour)
	future := s.now.Add(time.Hour)
	now := s.now

	tests := []struct {
		name    string
		revoked bool
		expires *time.Time
		want    bool
	}{
		{"active without expiry", false, nil, true},
		{"active with future expiry", false, &future, true},
		{"revoked", true, nil, false},
		{"expired", false, &past, false},
		{"expiry equal to now", false, &now, false},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			s.seedConsent(doctorID, s.now.Add(-2*time.Hour), tt.revoked, tt.expires)

			ok, err := s.service.CheckAccess(s.ctx, patientID, doctorID)
			s.Require().NoError(err)
			s.Equal(tt.want, ok)
		})
	}
}

func (s *ServiceSuite) TestCheckAccessUsesMostRecentConsent() {
	s.Run("newer revoked consent overrides older active one", func() {
		s.SetupTest()
		s.seedConsent(doctorID, s.now.Add(-48*time.Hour), false, nil)
		s.seedConsent(doctorID, s.now.Add(-time.Hour), true, nil)

		ok, err := s.service.CheckAccess(s.ctx, patientID, doctorID)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("fresh grant after a revocation restores access", func() {
		s.SetupTest()
		s.seedConsent(doctorID, s.now.Add(-time.Hour), false, nil)
		s.seedConsent(doctorID, s.now.Add(-48*time.Hour), true, nil)

		ok, err := s.service.CheckAccess(s.ctx, patientID, doctorID)
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("another professional's consent does not count", func() {
		s.SetupTest()
		s.seedConsent(otherID, s.now.Add(-time.Hour), false, nil)

		ok, err := s.service.CheckAccess(s.ctx, patientID, doctorID)
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *ServiceSuite) TestCheckAccessStoreFailure() {
	ctrl := gomock.NewController(s.T())
	consents := mocks.NewMockConsentRepository(ctrl)
	consents.EXPECT().ListByPair(gomock.Any(), patientID, doctorID).Return(nil, errors.New("connection reset"))

	repos := s.repos
	repos.Consents = consents
	svc := s.newService(repos)

	ok, err := svc.CheckAccess(s.ctx, patientID, doctorID)
	s.False(ok)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestGetFullDMPDenied() {
	_, err := s.service.AddConsultation(s.ctx, models.Consultation{
		EntryMeta: models.EntryMeta{PatientID: patientID, AuthorID: doctorID},
		Date:      s.now,
		Reason:    "checkup",
	})
	s.Require().NoError(err)

	dmp, err := s.service.GetFullDMP(s.ctx, patientID, otherID)
	s.Nil(dmp)
	s.True(dErrors.HasCode(err, dErrors.CodeAccessDenied))
	s.Contains(s.auditActions(), string(audit.EventDMPAccessDenied))
}

func (s *ServiceSuite) TestGetFullDMPSortsEachListNewestFirst() {
	s.seedConsent(doctorID, s.now.Add(-time.Hour), false, nil)
	day := 24 * time.Hour
	for _, c := range []struct {
		reason string
		offset time.Duration
	}{
		{"oldest", -3 * day},
		{"newest", -day},
		{"middle", -2 * day},
	} {
		_, err := s.service.AddConsultation(s.ctx, models.Consultation{
			EntryMeta: models.EntryMeta{PatientID: patientID, AuthorID: doctorID},
			Date:      s.now.Add(c.offset),
			Reason:    c.reason,
		})
		s.Require().NoError(err)
	}
	for _, offset := range []time.Duration{-5 * day, -day} {
		_, err := s.service.AddLabResult(s.ctx, models.LabResult{
			EntryMeta:   models.EntryMeta{PatientID: patientID, AuthorID: "lab-1"},
			CollectedAt: s.now.Add(offset),
			TestName:    "glycemie",
			Value:       "1.0",
		})
		s.Require().NoError(err)
	}

	dmp, err := s.service.GetFullDMP(s.ctx, patientID, doctorID)
	s.Require().NoError(err)
	s.Require().Len(dmp.Consultations, 3)
	s.Equal("newest", dmp.Consultations[0].Reason)
	s.Equal("middle", dmp.Consultations[1].Reason)
	s.Equal("oldest", dmp.Consultations[2].Reason)
	s.Require().Len(dmp.LabResults, 2)
	s.True(dmp.LabResults[0].CollectedAt.After(dmp.LabResults[1].CollectedAt))
	s.NotNil(dmp.Prescriptions)
	s.Empty(dmp.Prescriptions)
	s.NotNil(dmp.History)
	s.Equal(s.now, dmp.GeneratedAt)
	s.Contains(s.auditActions(), string(audit.EventDMPAccessGranted))
}

func (s *ServiceSuite) TestGetFullDMPLoadFailure() {
	ctrl := gomock.NewController(s.T())
	vaccinations := mocks.NewMockEntryRepository[models.Vaccination](ctrl)
	vaccinations.EXPECT().ListByPatient(gomock.Any(), patientID).Return(nil, errors.New("timeout"))

	repos := s.repos
	repos.Vaccinations = vaccinations
	svc := s.newService(repos)

	dmp, err := svc.GetFullDMP(s.ctx, patientID, patientID)
	s.Nil(dmp)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestGrantConsent() {
	s.Run("validation", func() {
		_, err := s.service.GrantConsent(s.ctx, "", doctorID, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.GrantConsent(s.ctx, patientID, patientID, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		zero := time.Duration(0)
		_, err = s.service.GrantConsent(s.ctx, patientID, doctorID, &zero)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("without ttl or default never expires", func() {
		c, err := s.service.GrantConsent(s.ctx, patientID, doctorID, nil)
		s.Require().NoError(err)
		s.Nil(c.ExpiresAt)
		s.Equal(s.now, c.GrantedAt)
	})

	s.Run("explicit ttl", func() {
		ttl := 2 * time.Hour
		c, err := s.service.GrantConsent(s.ctx, patientID, doctorID, &ttl)
		s.Require().NoError(err)
		s.Require().NotNil(c.ExpiresAt)
		s.Equal(s.now.Add(ttl), *c.ExpiresAt)
	})

	s.Run("default ttl", func() {
		svc := s.newService(s.repos, WithDefaultConsentTTL(30*24*time.Hour))
		c, err := svc.GrantConsent(s.ctx, patientID, otherID, nil)
		s.Require().NoError(err)
		s.Require().NotNil(c.ExpiresAt)
		s.Equal(s.now.Add(30*24*time.Hour), *c.ExpiresAt)
	})

	s.Run("announces the grant", func() {
		history := s.bus.History(eventbus.HistoryFilter{Type: events.DMPConsentGranted})
		s.NotEmpty(history)
		s.Equal("dmp", history[0].Metadata.Source)
		s.Equal(patientID, history[0].String("patient_id"))
	})
}

func (s *ServiceSuite) TestGrantedConsentExpires() {
	ttl := time.Hour
	_, err := s.service.GrantConsent(s.ctx, patientID, doctorID, &ttl)
	s.Require().NoError(err)

	ok, err := s.service.CheckAccess(s.ctx, patientID, doctorID)
	s.Require().NoError(err)
	s.True(ok)

	s.now = s.now.Add(ttl)
	ok, err = s.service.CheckAccess(s.ctx, patientID, doctorID)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ServiceSuite) TestRevokeConsent() {
	c, err := s.service.GrantConsent(s.ctx, patientID, doctorID, nil)
	s.Require().NoError(err)

	s.now = s.now.Add(time.Minute)
	revoked, err := s.service.RevokeConsent(s.ctx, patientID, c.ID)
	s.Require().NoError(err)
	s.Require().NotNil(revoked.RevokedAt)
	s.Equal(s.now, *revoked.RevokedAt)

	_, err = s.service.RevokeConsent(s.ctx, patientID, c.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.service.RevokeConsent(s.ctx, patientID, uuid.New())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	ok, err := s.service.CheckAccess(s.ctx, patientID, doctorID)
	s.Require().NoError(err)
	s.False(ok)

	consents, err := s.service.ListConsents(s.ctx, patientID)
	s.Require().NoError(err)
	s.Len(consents, 1, "revoked consents are kept")
	s.Contains(s.auditActions(), string(audit.EventConsentRevoked))
}

func (s *ServiceSuite) TestRegrantInSameInstantRestoresAccess() {
	first, err := s.service.GrantConsent(s.ctx, patientID, doctorID, nil)
	s.Require().NoError(err)
	_, err = s.service.RevokeConsent(s.ctx, patientID, first.ID)
	s.Require().NoError(err)
	second, err := s.service.GrantConsent(s.ctx, patientID, doctorID, nil)
	s.Require().NoError(err)
	s.Equal(first.GrantedAt, second.GrantedAt)

	ok, err := s.service.CheckAccess(s.ctx, patientID, doctorID)
	s.Require().NoError(err)
	s.True(ok, "the later grant decides")

	consents, err := s.service.ListConsents(s.ctx, patientID)
	s.Require().NoError(err)
	s.Require().Len(consents, 2)
	s.Equal(second.ID, consents[0].ID)
}

func (s *ServiceSuite) TestListConsentsNewestFirst() {
	_, err := s.service.GrantConsent(s.ctx, patientID, doctorID, nil)
	s.Require().NoError(err)
	s.now = s.now.Add(time.Hour)
	_, err = s.service.GrantConsent(s.ctx, patientID, otherID, nil)
	s.Require().NoError(err)

	consents, err := s.service.ListConsents(s.ctx, patientID)
	s.Require().NoError(err)
	s.Require().Len(consents, 2)
	s.Equal(otherID, consents[0].ProfessionalID)
}

func (s *ServiceSuite) TestAddEntries() {
	meta := models.EntryMeta{PatientID: patientID, AuthorID: doctorID}

	s.Run("validation error appends nothing", func() {
		_, err := s.service.AddPrescription(s.ctx, models.Prescription{EntryMeta: meta, IssuedAt: s.now})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		list, err := s.repos.Prescriptions.ListByPatient(s.ctx, patientID)
		s.Require().NoError(err)
		s.Empty(list)
	})

	s.Run("server assigns identity", func() {
		spoofed := uuid.New()
		p, err := s.service.AddPrescription(s.ctx, models.Prescription{
			EntryMeta:   models.EntryMeta{ID: spoofed, PatientID: patientID, AuthorID: doctorID},
			IssuedAt:    s.now,
			Medications: []models.Medication{{Name: "paracetamol", Dosage: "500mg"}},
		})
		s.Require().NoError(err)
		s.NotEqual(spoofed, p.ID)
		s.Equal(s.now, p.CreatedAt)
	})

	s.Run("every kind is stored", func() {
		_, err := s.service.AddImagingResult(s.ctx, models.ImagingResult{EntryMeta: meta, PerformedAt: s.now, Modality: "xray", BodyPart: "thorax", Findings: "normal"})
		s.Require().NoError(err)
		_, err = s.service.AddVaccination(s.ctx, models.Vaccination{EntryMeta: meta, AdministeredAt: s.now, Vaccine: "fievre jaune", Dose: 1})
		s.Require().NoError(err)
		_, err = s.service.AddHistoryItem(s.ctx, models.HistoryItem{EntryMeta: meta, RecordedAt: s.now, Category: models.HistoryAllergy, Description: "penicilline"})
		s.Require().NoError(err)

		dmp, err := s.service.GetFullDMP(s.ctx, patientID, patientID)
		s.Require().NoError(err)
		s.Len(dmp.Prescriptions, 1)
		s.Len(dmp.ImagingResults, 1)
		s.Len(dmp.Vaccinations, 1)
		s.Len(dmp.History, 1)
	})

	s.Run("entries are announced", func() {
		history := s.bus.History(eventbus.HistoryFilter{Type: events.DMPEntryAdded})
		s.Len(history, 4)
		s.Equal(string(models.KindPrescription), history[0].String("kind"))
	})
}

// Doctor gets consent, writes a consultation, reads it back; a second
// professional without consent is refused.
func (s *ServiceSuite) TestConsentScenario() {
	_, err := s.service.GrantConsent(s.ctx, patientID, doctorID, nil)
	s.Require().NoError(err)

	_, err = s.service.AddConsultation(s.ctx, models.Consultation{
		EntryMeta: models.EntryMeta{PatientID: patientID, AuthorID: doctorID},
		Date:      s.now,
		Reason:    "checkup",
	})
	s.Require().NoError(err)

	dmp, err := s.service.GetFullDMP(s.ctx, patientID, doctorID)
	s.Require().NoError(err)
	s.Require().Len(dmp.Consultations, 1)
	s.Equal("checkup", dmp.Consultations[0].Reason)

	_, err = s.service.GetFullDMP(s.ctx, patientID, otherID)
	s.True(dErrors.HasCode(err, dErrors.CodeAccessDenied))
}

func (s *ServiceSuite) TestEventPublishFailureDoesNotFailWrite() {
	ctrl := gomock.NewController(s.T())
	pub := mocks.NewMockEventPublisher(ctrl)
	pub.EXPECT().Emit(gomock.Any(), events.DMPConsentGranted, gomock.Any()).Return(errors.New("bus closed"))

	svc := s.newService(s.repos, WithEventPublisher(pub))
	c, err := svc.GrantConsent(s.ctx, patientID, doctorID, nil)
	s.Require().NoError(err)
	s.NotNil(c)
}
