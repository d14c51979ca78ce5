// Package events names the event types exchanged between neurons.
package events

const (
	AuthRegisterRequested      = "auth.register_requested"
	AuthLoginRequested         = "auth.login_requested"
	AuthPasswordResetRequested = "auth.password_reset_requested"
	AuthUserRegistered         = "auth.user_registered"
	AuthRegistrationFailed     = "auth.registration_failed"
	AuthLoginSucceeded         = "auth.login_succeeded"
	AuthLoginFailed            = "auth.login_failed"
	AuthPasswordResetIssued    = "auth.password_reset_issued"

	PatientProfileCreated         = "patient.profile_created"
	PatientProfileUpdateRequested = "patient.profile_update_requested"
	PatientProfileUpdated         = "patient.profile_updated"

	ProfessionalProfileCreated        = "professional.profile_created"
	ProfessionalVerificationRequested = "professional.verification_requested"
	ProfessionalVerified              = "professional.verified"

	AppointmentRequested       = "appointment.requested"
	AppointmentScheduled       = "appointment.scheduled"
	AppointmentRejected        = "appointment.rejected"
	AppointmentCancelRequested = "appointment.cancel_requested"
	AppointmentCancelled       = "appointment.cancelled"

	NotificationSent   = "notification.sent"
	NotificationFailed = "notification.failed"

	DMPConsentGranted = "dmp.consent_granted"
	DMPConsentRevoked = "dmp.consent_revoked"
	DMPEntryAdded     = "dmp.entry_added"
)
