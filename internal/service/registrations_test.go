package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rx3lixir/event-listing/internal/db"
	"github.com/rx3lixir/event-listing/internal/query"
	"github.com/rx3lixir/event-listing/pkg/logger"
)

type RegistrationsTestSuite struct {
	suite.Suite

	ctx   context.Context
	store *db.SQLiteStore
	svc   *Registrations
}

func TestRegistrations(t *testing.T) {
	suite.Run(t, new(RegistrationsTestSuite))
}

func (s *RegistrationsTestSuite) SetupTest() {
	s.ctx = context.Background()

	store, err := db.OpenSQLite(s.ctx, ":memory:")
	s.Require().NoError(err)
	s.store = store
	s.svc = NewRegistrations(store, store, logger.NewNop())
}

func (s *RegistrationsTestSuite) TearDownTest() {
	s.NoError(s.store.Close())
}

func (s *RegistrationsTestSuite) event(owner string, places *int, private bool) string {
	ev, err := s.store.CreateEvent(s.ctx, &query.Event{
		Title:        "Go Meetup",
		Location:     "Kyiv",
		StartDate:    time.Date(2024, 7, 1, 18, 0, 0, 0, time.UTC),
		MaxAttendees: places,
		IsPrivate:    private,
		OwnerID:      owner,
	})
	s.Require().NoError(err)
	return ev.ID
}

func (s *RegistrationsTestSuite) TestRegister() {
	eventID := s.event("org", nil, false)

	_, err := s.svc.Register(s.ctx, "", eventID)
	s.ErrorIs(err, ErrForbidden)

	_, err = s.svc.Register(s.ctx, "u1", "missing")
	s.ErrorIs(err, ErrEventNotFound)

	r, err := s.svc.Register(s.ctx, "u1", eventID)
	s.Require().NoError(err)
	s.Equal(db.RegistrationPending, r.Status)
	s.Equal("u1", r.UserID)

	_, err = s.svc.Register(s.ctx, "u1", eventID)
	s.ErrorIs(err, ErrConflict, "one active registration per user")
}

func (s *RegistrationsTestSuite) TestRegister_RespectsCapacity() {
	places := 1
	eventID := s.event("org", &places, false)

	first, err := s.svc.Register(s.ctx, "u1", eventID)
	s.Require().NoError(err)

	_, err = s.svc.Register(s.ctx, "u2", eventID)
	s.ErrorIs(err, ErrConflict)

	_, err = s.svc.SetStatus(s.ctx, "u1", eventID, first.ID, db.RegistrationCancelled)
	s.Require().NoError(err)

	_, err = s.svc.Register(s.ctx, "u2", eventID)
	s.NoError(err, "cancelled registration frees the place")
}

func (s *RegistrationsTestSuite) TestPrivateEventIsHidden() {
	eventID := s.event("org", nil, true)

	_, err := s.svc.Register(s.ctx, "u1", eventID)
	s.ErrorIs(err, ErrEventNotFound)

	_, err = s.svc.Register(s.ctx, "org", eventID)
	s.NoError(err)
}

func (s *RegistrationsTestSuite) TestList_OrganizerSeesAll() {
	eventID := s.event("org", nil, false)
	for _, user := range []string{"u1", "u2"} {
		_, err := s.svc.Register(s.ctx, user, eventID)
		s.Require().NoError(err)
	}

	all, err := s.svc.List(s.ctx, "org", eventID)
	s.Require().NoError(err)
	s.Len(all, 2)

	own, err := s.svc.List(s.ctx, "u2", eventID)
	s.Require().NoError(err)
	s.Require().Len(own, 1)
	s.Equal("u2", own[0].UserID)

	_, err = s.svc.List(s.ctx, "", eventID)
	s.ErrorIs(err, ErrForbidden)
}

func (s *RegistrationsTestSuite) TestSetStatus_Permissions() {
	eventID := s.event("org", nil, false)
	r, err := s.svc.Register(s.ctx, "u1", eventID)
	s.Require().NoError(err)

	_, err = s.svc.SetStatus(s.ctx, "u1", eventID, r.ID, db.RegistrationConfirmed)
	s.ErrorIs(err, ErrForbidden, "attendee cannot confirm")

	_, err = s.svc.SetStatus(s.ctx, "u2", eventID, r.ID, db.RegistrationCancelled)
	s.ErrorIs(err, ErrForbidden, "stranger cannot cancel")

	confirmed, err := s.svc.SetStatus(s.ctx, "org", eventID, r.ID, db.RegistrationConfirmed)
	s.Require().NoError(err)
	s.Equal(db.RegistrationConfirmed, confirmed.Status)

	_, err = s.svc.SetStatus(s.ctx, "org", eventID, r.ID, db.RegistrationPending)
	s.ErrorIs(err, ErrConflict)

	again, err := s.svc.SetStatus(s.ctx, "org", eventID, r.ID, db.RegistrationConfirmed)
	s.Require().NoError(err)
	s.Equal(db.RegistrationConfirmed, again.Status)

	cancelled, err := s.svc.SetStatus(s.ctx, "u1", eventID, r.ID, db.RegistrationCancelled)
	s.Require().NoError(err)
	s.Equal(db.RegistrationCancelled, cancelled.Status)

	_, err = s.svc.SetStatus(s.ctx, "org", eventID, r.ID, db.RegistrationConfirmed)
	s.ErrorIs(err, ErrConflict, "cancelled is final")
}

func (s *RegistrationsTestSuite) TestSetStatus_WrongEvent() {
	eventID := s.event("org", nil, false)
	other := s.event("org", nil, false)
	r, err := s.svc.Register(s.ctx, "u1", eventID)
	s.Require().NoError(err)

	_, err = s.svc.SetStatus(s.ctx, "org", other, r.ID, db.RegistrationConfirmed)
	s.ErrorIs(err, ErrRegistrationNotFound)

	_, err = s.svc.SetStatus(s.ctx, "org", eventID, "missing", db.RegistrationConfirmed)
	s.ErrorIs(err, ErrRegistrationNotFound)
}
