package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"sante/internal/dmp/handler/mocks"
	"sante/internal/dmp/models"
	"sante/internal/platform/middleware"
	"sante/internal/rbac"
	"sante/pkg/testutil"

	dErrors "sante/pkg/domain-errors"
)

const (
	patientID = "patient-1"
	doctorID  = "doctor-1"
)

// principalValidator accepts any bearer token as the current principal.
type principalValidator struct {
	claims *middleware.JWTClaims
}

func (v *principalValidator) ValidateToken(string) (*middleware.JWTClaims, error) {
	return v.claims, nil
}

type HandlerSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	service   *mocks.MockService
	validator *principalValidator
	router    chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.validator = &principalValidator{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(s.service, s.validator, logger).Register(s.router)
}

func (s *HandlerSuite) as(userID string, role rbac.Role) {
	s.validator.claims = &middleware.JWTClaims{UserID: userID, Role: string(role)}
}

func (s *HandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	req.Header.Set("Authorization", "Bearer token")
	return testutil.DoRequest(s.router, req)
}

func (s *HandlerSuite) TestGetDMP() {
	s.Run("professional with consent", func() {
		s.as(doctorID, rbac.RoleDoctorGeneral)
		s.service.EXPECT().GetFullDMP(gomock.Any(), patientID, doctorID).Return(&models.DMP{
			PatientID:     patientID,
			Consultations: []models.Consultation{{Reason: "checkup"}},
		}, nil)

		rr := s.do(http.MethodGet, "/dmp/"+patientID, nil)
		s.Equal(http.StatusOK, rr.Code)
		body := testutil.UnmarshalResponse[models.DMP](s.T(), rr)
		s.Require().Len(body.Consultations, 1)
		s.Equal("checkup", body.Consultations[0].Reason)
	})

	s.Run("denial is a generic 403", func() {
		s.as(doctorID, rbac.RoleDoctorGeneral)
		s.service.EXPECT().GetFullDMP(gomock.Any(), "unknown-patient", doctorID).
			Return(nil, dErrors.New(dErrors.CodeAccessDenied, "access denied"))

		rr := s.do(http.MethodGet, "/dmp/unknown-patient", nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, string(dErrors.CodeAccessDenied))
		s.NotContains(rr.Body.String(), "consultations")
	})

	s.Run("patient reads own record", func() {
		s.as(patientID, rbac.RolePatient)
		s.service.EXPECT().GetFullDMP(gomock.Any(), patientID, patientID).Return(&models.DMP{PatientID: patientID}, nil)

		rr := s.do(http.MethodGet, "/dmp/"+patientID, nil)
		s.Equal(http.StatusOK, rr.Code)
	})

	s.Run("patient cannot read another patient", func() {
		s.as("patient-2", rbac.RolePatient)

		rr := s.do(http.MethodGet, "/dmp/"+patientID, nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, string(dErrors.CodeAccessDenied))
	})

	s.Run("role without read permission", func() {
		s.as("lab-1", rbac.RoleLabTechnician)

		rr := s.do(http.MethodGet, "/dmp/"+patientID, nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, string(dErrors.CodeForbidden))
	})
}

func (s *HandlerSuite) TestConsents() {
	s.Run("patient grants with ttl", func() {
		s.as(patientID, rbac.RolePatient)
		ttl := time.Hour
		s.service.EXPECT().GrantConsent(gomock.Any(), patientID, doctorID, &ttl).
			Return(&models.Consent{ID: uuid.New(), PatientID: patientID, ProfessionalID: doctorID}, nil)

		rr := s.do(http.MethodPost, "/dmp/"+patientID+"/consents", map[string]any{
			"professional_id": "  " + doctorID + " ",
			"ttl_seconds":     3600,
		})
		s.Equal(http.StatusCreated, rr.Code)
	})

	s.Run("ttl beyond ten years is rejected before conversion", func() {
		s.as(patientID, rbac.RolePatient)

		for _, secs := range []int64{int64(maxConsentTTL/time.Second) + 1, 9223372036854775807} {
			rr := s.do(http.MethodPost, "/dmp/"+patientID+"/consents", map[string]any{
				"professional_id": doctorID,
				"ttl_seconds":     secs,
			})
			testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
		}
	})

	s.Run("patient cannot grant on someone else's record", func() {
		s.as("patient-2", rbac.RolePatient)

		rr := s.do(http.MethodPost, "/dmp/"+patientID+"/consents", map[string]any{"professional_id": doctorID})
		s.Equal(http.StatusForbidden, rr.Code)
	})

	s.Run("doctor cannot grant", func() {
		s.as(doctorID, rbac.RoleDoctorGeneral)

		rr := s.do(http.MethodPost, "/dmp/"+patientID+"/consents", map[string]any{"professional_id": doctorID})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, string(dErrors.CodeForbidden))
	})

	s.Run("list", func() {
		s.as(patientID, rbac.RolePatient)
		s.service.EXPECT().ListConsents(gomock.Any(), patientID).Return(nil, nil)

		rr := s.do(http.MethodGet, "/dmp/"+patientID+"/consents", nil)
		s.Equal(http.StatusOK, rr.Code)
		s.JSONEq(`{"consents":[]}`, rr.Body.String())
	})

	s.Run("revoke", func() {
		s.as(patientID, rbac.RolePatient)
		consentID := uuid.New()
		now := time.Now()
		s.service.EXPECT().RevokeConsent(gomock.Any(), patientID, consentID).
			Return(&models.Consent{ID: consentID, RevokedAt: &now}, nil)

		rr := s.do(http.MethodPost, "/dmp/"+patientID+"/consents/"+consentID.String()+"/revoke", nil)
		s.Equal(http.StatusOK, rr.Code)
	})

	s.Run("revoke twice conflicts", func() {
		s.as(patientID, rbac.RolePatient)
		consentID := uuid.New()
		s.service.EXPECT().RevokeConsent(gomock.Any(), patientID, consentID).
			Return(nil, dErrors.New(dErrors.CodeConflict, "consent already revoked"))

		rr := s.do(http.MethodPost, "/dmp/"+patientID+"/consents/"+consentID.String()+"/revoke", nil)
		s.Equal(http.StatusConflict, rr.Code)
	})

	s.Run("revoke with malformed id", func() {
		s.as(patientID, rbac.RolePatient)

		rr := s.do(http.MethodPost, "/dmp/"+patientID+"/consents/not-a-uuid/revoke", nil)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})
}

func (s *HandlerSuite) TestClinicalWrites() {
	s.Run("doctor adds a consultation authored by themselves", func() {
		s.as(doctorID, rbac.RoleDoctorGeneral)
		s.service.EXPECT().AddConsultation(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, c models.Consultation) (*models.Consultation, error) {
				s.Equal(patientID, c.PatientID)
				s.Equal(doctorID, c.AuthorID)
				s.Equal("checkup", c.Reason)
				return &c, nil
			})

		rr := s.do(http.MethodPost, "/dmp/"+patientID+"/consultations", map[string]any{
			"author_id": "someone-else",
			"date":      "2026-03-01T10:00:00Z",
			"reason":    " checkup ",
		})
		s.Equal(http.StatusCreated, rr.Code)
	})

	s.Run("prescription medications are trimmed", func() {
		s.as(doctorID, rbac.RoleDoctorGeneral)
		s.service.EXPECT().AddPrescription(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, p models.Prescription) (*models.Prescription, error) {
				s.Require().Len(p.Medications, 1)
				s.Equal("amoxicilline", p.Medications[0].Name)
				return &p, nil
			})

		rr := s.do(http.MethodPost, "/dmp/"+patientID+"/prescriptions", map[string]any{
			"issued_at":   "2026-03-01T10:00:00Z",
			"medications": []map[string]string{{"name": " amoxicilline ", "dosage": "1g"}},
		})
		s.Equal(http.StatusCreated, rr.Code)
	})

	s.Run("lab technician may only write lab results", func() {
		s.as("lab-1", rbac.RoleLabTechnician)
		s.service.EXPECT().AddLabResult(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, l models.LabResult) (*models.LabResult, error) { return &l, nil })

		rr := s.do(http.MethodPost, "/dmp/"+patientID+"/lab-results", map[string]any{
			"collected_at": "2026-03-01T10:00:00Z",
			"test_name":    "NFS",
			"value":        "normal",
		})
		s.Equal(http.StatusCreated, rr.Code)

		rr = s.do(http.MethodPost, "/dmp/"+patientID+"/consultations", map[string]any{"reason": "x"})
		s.Equal(http.StatusForbidden, rr.Code)
	})

	s.Run("validation errors map to 400", func() {
		s.as(doctorID, rbac.RoleDoctorGeneral)
		s.service.EXPECT().AddVaccination(gomock.Any(), gomock.Any()).
			Return(nil, dErrors.New(dErrors.CodeValidation, "vaccine is required"))

		rr := s.do(http.MethodPost, "/dmp/"+patientID+"/vaccinations", map[string]any{})
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("malformed body", func() {
		s.as("radio-1", rbac.RoleRadiologist)
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/dmp/"+patientID+"/imaging-results", nil)
		req.Header.Set("Authorization", "Bearer token")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("unauthenticated", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/dmp/"+patientID+"/history", map[string]any{})
		rr := testutil.DoRequest(s.router, req)
		s.Equal(http.StatusUnauthorized, rr.Code)
	})
}
