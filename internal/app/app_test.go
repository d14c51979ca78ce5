package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"sante/internal/auth/models"
	dmpmodels "sante/internal/dmp/models"
	"sante/internal/eventbus"
	"sante/internal/events"
	"sante/internal/notification"
	"sante/internal/platform/config"
	"sante/internal/platform/logger"
	"sante/pkg/testutil"
)

const (
	password     = "correct-horse-battery"
	rootID       = "root@sante.example"
	rootPassword = "root-bootstrap-secret"
)

// AppSuite drives the assembled application through HTTP and the bus.
type AppSuite struct {
	suite.Suite
	ctx context.Context
	app *App
}

func TestAppSuite(t *testing.T) {
	suite.Run(t, new(AppSuite))
}

func (s *AppSuite) SetupTest() {
	s.ctx = context.Background()
	cfg := config.Config{
		Auth: config.Auth{
			JWTSigningKey:   "app-test-signing-key",
			Issuer:          "sante",
			Audience:        "sante-api",
			TokenTTL:        time.Hour,
			ResetTokenTTL:   time.Hour,
			BcryptCost:      4,
			HashConcurrency: 2,
			AdminIdentifier: rootID,
			AdminPassword:   rootPassword,
		},
		Bus:  config.Bus{HistorySize: 1000},
		Care: config.Care{AppointmentSlot: 30 * time.Minute, NotificationQueue: 16, NotificationLog: 100},
	}
	a, err := New(cfg, logger.Discard(), prometheus.NewRegistry(), Infra{})
	s.Require().NoError(err)
	s.Require().NoError(a.Start(s.ctx))
	s.app = a
}

func (s *AppSuite) TearDownTest() {
	s.Require().NoError(s.app.Stop(s.ctx))
}

func (s *AppSuite) do(method, path, token string, body any) *httptest.ResponseRecorder {
	req := testutil.NewJSONRequest(s.T(), method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return testutil.DoRequest(s.app.Handler, req)
}

// signUp registers and logs in, returning the user id and access token.
func (s *AppSuite) signUp(identifier, role string) (string, string) {
	rr := s.do(http.MethodPost, "/auth/register", "", models.RegisterRequest{
		Identifier: identifier,
		Password:   password,
		Role:       role,
	})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	return s.login(identifier, password)
}

func (s *AppSuite) login(identifier, pw string) (string, string) {
	rr := s.do(http.MethodPost, "/auth/login", "", models.LoginRequest{Identifier: identifier, Password: pw})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	res := testutil.UnmarshalResponse[models.LoginResult](s.T(), rr)
	return res.User.ID, res.Token
}

func (s *AppSuite) publish(eventType string, data map[string]any) {
	_, err := s.app.Bus.Publish(s.ctx, eventType, data, eventbus.Metadata{Source: "test"})
	s.Require().NoError(err)
}

func (s *AppSuite) TestConsentGatedRecordAccess() {
	patientID, patientToken := s.signUp("awa.ndong@example.com", "patient")
	doctorID, doctorToken := s.signUp("dr.obiang@example.com", "doctor_general")
	dmpPath := "/dmp/" + patientID

	testutil.AssertStatusAndError(s.T(), s.do(http.MethodGet, dmpPath, doctorToken, nil), http.StatusForbidden, "access_denied")

	rr := s.do(http.MethodPost, dmpPath+"/consents", patientToken, map[string]any{"professional_id": doctorID})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	consent := testutil.UnmarshalResponse[dmpmodels.Consent](s.T(), rr)

	rr = s.do(http.MethodPost, dmpPath+"/consultations", doctorToken, map[string]any{
		"date":   time.Now().Add(-time.Hour),
		"reason": "fever",
	})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(http.MethodGet, dmpPath, doctorToken, nil)
	s.Require().Equal(http.StatusOK, rr.Code)
	record := testutil.UnmarshalResponse[dmpmodels.DMP](s.T(), rr)
	s.Require().Len(record.Consultations, 1)
	s.Equal(doctorID, record.Consultations[0].AuthorID)

	rr = s.do(http.MethodPost, dmpPath+"/consents/"+consent.ID.String()+"/revoke", patientToken, nil)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	testutil.AssertStatusAndError(s.T(), s.do(http.MethodGet, dmpPath, doctorToken, nil), http.StatusForbidden, "access_denied")

	rr = s.do(http.MethodGet, dmpPath, patientToken, nil)
	s.Equal(http.StatusOK, rr.Code, "patients always read their own record")

	s.Len(s.app.Bus.History(eventbus.HistoryFilter{Type: events.DMPEntryAdded}), 1)
}

func (s *AppSuite) TestAppointmentFlow() {
	patientID, _ := s.signUp("+241 77 00 00 01", "patient")
	doctorID, _ := s.signUp("dr.mba@example.com", "doctor_specialist")

	p, err := s.app.Patients.Profile(s.ctx, patientID)
	s.Require().NoError(err)
	s.NotEmpty(p.Identifier)
	pro, err := s.app.Professionals.Profile(s.ctx, doctorID)
	s.Require().NoError(err)
	s.False(pro.Verified)

	at := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	s.publish(events.AppointmentRequested, map[string]any{"patient_id": patientID, "professional_id": doctorID, "scheduled_at": at})
	rejected := s.app.Bus.History(eventbus.HistoryFilter{Type: events.AppointmentRejected})
	s.Require().Len(rejected, 1)
	s.Equal("unverified_professional", rejected[0].String("reason"))

	s.publish(events.ProfessionalVerificationRequested, map[string]any{"user_id": doctorID, "verified_by": "ministry-1"})
	s.publish(events.AppointmentRequested, map[string]any{"patient_id": patientID, "professional_id": doctorID, "scheduled_at": at})
	s.Require().Len(s.app.Bus.History(eventbus.HistoryFilter{Type: events.AppointmentScheduled}), 1)

	// verified + confirmation to the patient + confirmation to the doctor
	s.Eventually(func() bool { return len(s.app.Notifications.Log()) == 3 }, time.Second, 5*time.Millisecond)
	channels := map[notification.Channel]int{}
	for _, n := range s.app.Notifications.Log() {
		channels[n.Channel]++
		s.Equal(notification.StatusSent, n.Status)
	}
	s.Equal(map[notification.Channel]int{notification.ChannelEmail: 2, notification.ChannelSMS: 1}, channels)
}

func (s *AppSuite) TestPasswordResetDeliveredByNotification() {
	s.signUp("kassa@example.com", "nurse")

	rr := s.do(http.MethodPost, "/auth/password-reset/request", "", models.PasswordResetRequest{Identifier: "kassa@example.com"})
	s.Require().Equal(http.StatusAccepted, rr.Code)
	s.NotContains(rr.Body.String(), "token")

	var code string
	s.Eventually(func() bool {
		for _, n := range s.app.Notifications.Log() {
			if n.Trigger == events.AuthPasswordResetIssued {
				code = strings.TrimPrefix(n.Body, "Use this code to reset your password: ")
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	s.Require().NotEmpty(code)

	rr = s.do(http.MethodPost, "/auth/password-reset/confirm", "", models.PasswordResetConfirm{Token: code, NewPassword: "a-brand-new-secret"})
	s.Require().Equal(http.StatusNoContent, rr.Code, rr.Body.String())
	s.login("kassa@example.com", "a-brand-new-secret")

	rr = s.do(http.MethodPost, "/auth/password-reset/confirm", "", models.PasswordResetConfirm{Token: code, NewPassword: "yet-another-secret"})
	s.NotEqual(http.StatusNoContent, rr.Code, "reset codes are single use")
}

func (s *AppSuite) TestMonitoringSurface() {
	rr := testutil.DoRequest(s.app.Handler, httptest.NewRequest(http.MethodGet, "/health", nil))
	s.Equal(http.StatusOK, rr.Code)

	_, rootToken := s.login(rootID, rootPassword)
	rr = s.do(http.MethodPost, "/auth/register", rootToken, models.RegisterRequest{
		Identifier: "ops@example.com",
		Password:   password,
		Role:       "admin",
	})
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	_, adminToken := s.login("ops@example.com", password)

	rr = s.do(http.MethodGet, "/admin/neurons", adminToken, nil)
	s.Require().Equal(http.StatusOK, rr.Code)
	for _, name := range []string{"auth", "patient", "professional", "appointment", "notification"} {
		s.Contains(rr.Body.String(), `"name":"`+name+`"`)
	}
	s.NotContains(rr.Body.String(), `"name":"relay"`)
}

func (s *AppSuite) TestPublicSignUpCannotTakeAdminRoles() {
	for _, role := range []string{"super_admin", "admin", "ministry_official"} {
		rr := s.do(http.MethodPost, "/auth/register", "", models.RegisterRequest{
			Identifier: "mallory@example.com",
			Password:   password,
			Role:       role,
		})
		s.Equal(http.StatusUnauthorized, rr.Code, role)
	}

	_, patientToken := s.signUp("awa@example.com", "patient")
	rr := s.do(http.MethodPost, "/auth/register", patientToken, models.RegisterRequest{
		Identifier: "mallory@example.com",
		Password:   password,
		Role:       "super_admin",
	})
	testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
}

func (s *AppSuite) TestBusHistoryNeverExposesSecrets() {
	s.publish(events.AuthRegisterRequested, map[string]any{
		"identifier": "victim@example.com",
		"password":   "victim-secret-pw",
		"role":       "patient",
	})
	s.Require().Len(s.app.Bus.History(eventbus.HistoryFilter{Type: events.AuthUserRegistered}), 1)

	rr := s.do(http.MethodPost, "/auth/password-reset/request", "", models.PasswordResetRequest{Identifier: "victim@example.com"})
	s.Require().Equal(http.StatusAccepted, rr.Code)
	var code string
	s.Eventually(func() bool {
		for _, n := range s.app.Notifications.Log() {
			if n.Trigger == events.AuthPasswordResetIssued {
				code = strings.TrimPrefix(n.Body, "Use this code to reset your password: ")
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	s.Require().NotEmpty(code)

	_, rootToken := s.login(rootID, rootPassword)
	rr = s.do(http.MethodGet, "/admin/bus/history?limit=1000", rootToken, nil)
	s.Require().Equal(http.StatusOK, rr.Code)
	body := rr.Body.String()
	s.Contains(body, events.AuthPasswordResetIssued)
	s.NotContains(body, "victim-secret-pw")
	s.NotContains(body, code)
	s.NotContains(body, `"reset_token"`)
	s.NotContains(body, `"password"`)
}
