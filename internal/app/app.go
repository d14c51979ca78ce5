// Package app assembles the bus, neurons, services and HTTP surface into one
// runnable unit.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"sante/internal/appointment"
	"sante/internal/auth"
	authhandler "sante/internal/auth/handler"
	authmodels "sante/internal/auth/models"
	authservice "sante/internal/auth/service"
	"sante/internal/auth/store/reset"
	"sante/internal/auth/store/user"
	dmphandler "sante/internal/dmp/handler"
	"sante/internal/dmp/models"
	dmpservice "sante/internal/dmp/service"
	dmpmemory "sante/internal/dmp/store/memory"
	dmppostgres "sante/internal/dmp/store/postgres"
	"sante/internal/eventbus"
	jwttoken "sante/internal/jwt_token"
	"sante/internal/monitoring"
	"sante/internal/neuron"
	"sante/internal/notification"
	"sante/internal/patient"
	"sante/internal/platform/config"
	"sante/internal/platform/metrics"
	"sante/internal/platform/middleware"
	"sante/internal/platform/ratelimit"
	"sante/internal/platform/redis"
	"sante/internal/professional"
	"sante/internal/rbac"
	"sante/internal/relay"
	dErrors "sante/pkg/domain-errors"
	audit "sante/pkg/platform/audit"
	"sante/pkg/platform/audit/publisher"
	auditmemory "sante/pkg/platform/audit/store/memory"
	auditpostgres "sante/pkg/platform/audit/store/postgres"
)

// Infra holds optional external connections. Nil fields fall back to
// in-process implementations; a nil Producer disables the relay.
type Infra struct {
	DB       *sql.DB
	Redis    *redis.Client
	Producer relay.Producer
}

type App struct {
	Handler  http.Handler
	Bus      *eventbus.Bus
	Registry *neuron.Registry

	Auth          *auth.Neuron
	Patients      *patient.Neuron
	Professionals *professional.Neuron
	Appointments  *appointment.Neuron
	Notifications *notification.Neuron
	DMP           *dmpservice.Service

	logger *slog.Logger
	audit  *publisher.Publisher
}

// New wires every component. reg receives the Prometheus collectors and backs /metrics.
func New(cfg config.Config, logger *slog.Logger, reg *prometheus.Registry, infra Infra) (*App, error) {
	m := metrics.New(reg)
	bus := eventbus.New(
		eventbus.WithLogger(logger),
		eventbus.WithMetrics(m),
		eventbus.WithHistorySize(cfg.Bus.HistorySize),
	)
	neuronOpts := []neuron.Option{neuron.WithLogger(logger), neuron.WithMetrics(m)}

	auditPublisher := publisher.NewPublisher(auditStore(infra.DB), publisher.WithLogger(logger))

	jwt := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	validator := jwttoken.NewJWTServiceAdapter(jwt)

	authSvc, err := authservice.New(user.New(), resetStore(infra.Redis), jwt,
		authservice.Config{
			TokenTTL:        cfg.Auth.TokenTTL,
			ResetTokenTTL:   cfg.Auth.ResetTokenTTL,
			BcryptCost:      cfg.Auth.BcryptCost,
			HashConcurrency: cfg.Auth.HashConcurrency,
		},
		authservice.WithLogger(logger),
		authservice.WithMetrics(m),
		authservice.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		return nil, fmt.Errorf("build auth service: %w", err)
	}

	if err := seedAdmin(authSvc, cfg.Auth, logger); err != nil {
		return nil, err
	}

	dmpSvc, err := dmpservice.New(dmpRepositories(infra.DB),
		dmpservice.WithLogger(logger),
		dmpservice.WithMetrics(m),
		dmpservice.WithAuditPublisher(auditPublisher),
		dmpservice.WithEventPublisher(eventbus.NewEmitter(bus, "dmp")),
		dmpservice.WithDefaultConsentTTL(cfg.DMP.DefaultConsentTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("build dmp service: %w", err)
	}

	a := &App{
		Bus:           bus,
		Registry:      neuron.NewRegistry(logger),
		Auth:          auth.NewNeuron(authSvc, bus, neuronOpts...),
		Patients:      patient.NewNeuron(patient.NewInMemoryStore(), bus, neuronOpts...),
		Professionals: professional.NewNeuron(professional.NewInMemoryStore(), bus, neuronOpts...),
		Appointments:  appointment.NewNeuron(appointment.NewInMemoryStore(), bus, cfg.Care.AppointmentSlot, neuronOpts...),
		Notifications: notification.NewNeuron(notification.NewLogSender(logger), bus, notification.Config{
			QueueSize: cfg.Care.NotificationQueue,
			LogSize:   cfg.Care.NotificationLog,
			Metrics:   m,
		}, neuronOpts...),
		DMP:    dmpSvc,
		logger: logger,
		audit:  auditPublisher,
	}
	if err := a.Registry.Register(a.Auth, a.Patients, a.Professionals, a.Appointments, a.Notifications); err != nil {
		return nil, err
	}
	if infra.Producer != nil {
		if err := a.Registry.Register(relay.NewNeuron(infra.Producer, bus, cfg.Kafka.EventTypes, neuronOpts...)); err != nil {
			return nil, err
		}
	}

	var checks []monitoring.Option
	if infra.DB != nil {
		checks = append(checks, monitoring.WithCheck("postgres", infra.DB.PingContext))
	}
	if infra.Redis != nil {
		checks = append(checks, monitoring.WithCheck("redis", infra.Redis.Health))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger, m))
	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(rateLimitStore(infra.Redis), cfg.Auth.RateLimit, cfg.Auth.RateWindow, logger))
		authhandler.New(a.Auth, a.Auth, validator, logger).Register(r)
	})
	dmphandler.New(dmpSvc, validator, logger).Register(r)
	monitoring.New(bus, a.Registry, validator, logger,
		append(checks, monitoring.WithGatherer(reg))...,
	).Register(r)
	a.Handler = r

	return a, nil
}

// Start activates every neuron.
func (a *App) Start(ctx context.Context) error {
	return a.Registry.ActivateAll(ctx)
}

// Stop deactivates neurons, closes the bus and flushes audit events.
func (a *App) Stop(ctx context.Context) error {
	err := a.Registry.DeactivateAll(ctx)
	a.Bus.Close()
	a.audit.Close()
	if err != nil {
		a.logger.ErrorContext(ctx, "shutdown incomplete", "error", err)
	}
	return err
}

// seedAdmin creates the configured super_admin once; an existing account is
// left untouched.
func seedAdmin(svc *authservice.Service, cfg config.Auth, logger *slog.Logger) error {
	if cfg.AdminIdentifier == "" {
		return nil
	}
	ctx := context.Background()
	_, err := svc.Register(ctx, authmodels.RegisterRequest{
		Identifier: cfg.AdminIdentifier,
		Password:   cfg.AdminPassword,
		Role:       string(rbac.RoleSuperAdmin),
	})
	switch {
	case err == nil:
		logger.InfoContext(ctx, "bootstrap admin created")
	case dErrors.HasCode(err, dErrors.CodeConflict):
	default:
		return fmt.Errorf("seed admin: %w", err)
	}
	return nil
}

func auditStore(db *sql.DB) audit.Store {
	if db != nil {
		return auditpostgres.New(db)
	}
	return auditmemory.NewInMemoryStore()
}

func resetStore(client *redis.Client) authservice.ResetTokenStore {
	if client != nil {
		return reset.NewRedisStore(client.Client)
	}
	return reset.NewInMemoryStore()
}

func rateLimitStore(client *redis.Client) ratelimit.Store {
	if client != nil {
		return ratelimit.NewRedisStore(client.Client)
	}
	return ratelimit.NewMemoryStore()
}

func dmpRepositories(db *sql.DB) dmpservice.Repositories {
	if db != nil {
		return dmpservice.Repositories{
			Consents:       dmppostgres.NewConsentStore(db),
			Consultations:  dmppostgres.NewEntryStore[models.Consultation](db),
			Prescriptions:  dmppostgres.NewEntryStore[models.Prescription](db),
			LabResults:     dmppostgres.NewEntryStore[models.LabResult](db),
			ImagingResults: dmppostgres.NewEntryStore[models.ImagingResult](db),
			Vaccinations:   dmppostgres.NewEntryStore[models.Vaccination](db),
			History:        dmppostgres.NewEntryStore[models.HistoryItem](db),
		}
	}
	return dmpservice.Repositories{
		Consents:       dmpmemory.NewConsentStore(),
		Consultations:  dmpmemory.NewEntryStore[models.Consultation](),
		Prescriptions:  dmpmemory.NewEntryStore[models.Prescription](),
		LabResults:     dmpmemory.NewEntryStore[models.LabResult](),
		ImagingResults: dmpmemory.NewEntryStore[models.ImagingResult](),
		Vaccinations:   dmpmemory.NewEntryStore[models.Vaccination](),
		History:        dmpmemory.NewEntryStore[models.HistoryItem](),
	}
}
