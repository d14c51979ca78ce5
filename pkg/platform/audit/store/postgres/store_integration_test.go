//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	platformpg "sante/internal/platform/postgres"
	audit "sante/pkg/platform/audit"
	"sante/pkg/testutil/containers"
)

type AuditStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Store
	ctx   context.Context
}

func TestAuditStoreSuite(t *testing.T) {
	suite.Run(t, new(AuditStoreSuite))
}

func (s *AuditStoreSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.Require().NoError(platformpg.Migrate(s.ctx, s.pg.DB))
	s.store = New(s.pg.DB)
}

func (s *AuditStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx, "audit_events"))
}

func (s *AuditStoreSuite) TestAppendAndListByUser() {
	base := time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.store.Append(s.ctx, audit.Event{
		Timestamp: base,
		UserID:    "p-1",
		Action:    string(audit.EventConsentGranted),
		ActorID:   "p-1",
		RequestID: "req-1",
	}))
	s.Require().NoError(s.store.Append(s.ctx, audit.Event{
		Timestamp: base.Add(time.Second),
		UserID:    "p-1",
		Action:    string(audit.EventDMPAccessDenied),
		Decision:  "denied",
		Reason:    "no_consent",
		ActorID:   "d-1",
	}))
	s.Require().NoError(s.store.Append(s.ctx, audit.Event{
		Timestamp: base,
		UserID:    "p-2",
		Action:    string(audit.EventUserRegistered),
	}))

	events, err := s.store.ListByUser(s.ctx, "p-1")
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventConsentGranted), events[0].Action)
	s.Equal(audit.EventConsentGranted.Category(), events[0].Category)
	s.True(base.Equal(events[0].Timestamp))
	s.Equal("req-1", events[0].RequestID)
	s.Equal("d-1", events[1].ActorID)
	s.Equal("no_consent", events[1].Reason)
}

func (s *AuditStoreSuite) TestListRecentNewestFirst() {
	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := range 3 {
		s.Require().NoError(s.store.Append(s.ctx, audit.Event{
			Timestamp: base.Add(time.Duration(i) * time.Second),
			UserID:    "p-1",
			Action:    string(audit.EventLoginSucceeded),
			RequestID: []string{"a", "b", "c"}[i],
		}))
	}

	events, err := s.store.ListRecent(s.ctx, 2)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal("c", events[0].RequestID)
	s.Equal("b", events[1].RequestID)
}
