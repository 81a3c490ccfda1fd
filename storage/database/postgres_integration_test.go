//go:build integration

package database_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/tributes/core"
	"github.com/trezcool/tributes/core/session"
	"github.com/trezcool/tributes/core/tribute"
	"github.com/trezcool/tributes/storage/database"
	boiledrepos "github.com/trezcool/tributes/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/tributes/storage/database/sqlx"
	"github.com/trezcool/tributes/tests"
)

type PostgresSuite struct {
	suite.Suite
	db       *sql.DB
	tributes tribute.Repository
	sessions session.Repository
}

func TestPostgresSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresSuite))
}

func (s *PostgresSuite) SetupSuite() {
	s.db, _ = testutil.PrepareDB(s.T())
	s.tributes = boiledrepos.NewTributeRepository(s.db)
	s.sessions = sqlxrepos.NewSessionRepository(s.db)
}

func (s *PostgresSuite) SetupTest() {
	testutil.ResetDB(s.T(), s.db)
}

func (s *PostgresSuite) TestMigrateIsIdempotent() {
	s.NoError(database.Migrate(s.db))
}

func (s *PostgresSuite) TestTributeLifecycle() {
	ctx := context.Background()
	created := time.Now().UTC().Truncate(time.Microsecond)

	trib := testutil.CreateTribute(s.T(), s.tributes, "Ann", "Rest easy.",
		testutil.CreatedAt(created), testutil.WithEmail("ann@test.cd"), testutil.WithImage("/api/images/a.png"))
	s.Positive(trib.ID)
	s.True(trib.CreatedAt.Equal(created))
	s.False(trib.Phone.Valid)

	got, err := s.tributes.GetTribute(ctx, trib.ID)
	s.Require().NoError(err)
	s.Equal(trib, got)

	_, err = s.tributes.GetTribute(ctx, trib.ID+1000)
	s.Equal(tribute.ErrNotFound, err)

	approvedAt := created.Add(time.Hour)
	approved, err := s.tributes.UpdateModeration(ctx, trib.ID, true, null.TimeFrom(approvedAt), null.StringFrom("ok"))
	s.Require().NoError(err)
	s.True(approved.Approved)
	s.True(approved.ApprovedAt.Time.Equal(approvedAt))
	s.Equal("ok", approved.AdminNotes.String)
	s.Equal(trib.Email, approved.Email)

	revoked, err := s.tributes.UpdateModeration(ctx, trib.ID, false, null.Time{}, null.String{})
	s.Require().NoError(err)
	s.NoError(revoked.CheckInvariants())
	s.False(revoked.AdminNotes.Valid)

	_, err = s.tributes.UpdateModeration(ctx, 999999, true, null.TimeFrom(approvedAt), null.String{})
	s.Equal(tribute.ErrNotFound, err)
}

func (s *PostgresSuite) TestApprovalConsistencyIsEnforced() {
	ctx := context.Background()
	trib := testutil.CreateTribute(s.T(), s.tributes, "Ann", "m")

	_, err := s.tributes.UpdateModeration(ctx, trib.ID, true, null.Time{}, null.String{})
	s.Error(err)
}

func (s *PostgresSuite) TestQueryTributes() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	old := testutil.CreateTribute(s.T(), s.tributes, "Old", "m", testutil.CreatedAt(now.Add(-2*time.Hour)), testutil.Approved(now))
	pending := testutil.CreateTribute(s.T(), s.tributes, "Pending", "m", testutil.CreatedAt(now.Add(-time.Hour)))
	recent := testutil.CreateTribute(s.T(), s.tributes, "Recent", "m", testutil.CreatedAt(now), testutil.Approved(now))

	all, err := s.tributes.QueryTributes(ctx, tribute.QueryFilter{}, tribute.DefaultOrdering)
	s.Require().NoError(err)
	s.Equal([]tribute.Tribute{recent, pending, old}, all)

	approvedOnly := true
	approved, err := s.tributes.QueryTributes(ctx, tribute.QueryFilter{Approved: &approvedOnly}, tribute.DefaultOrdering)
	s.Require().NoError(err)
	s.Equal([]tribute.Tribute{recent, old}, approved)

	// unknown fields never reach the SQL
	byName, err := s.tributes.QueryTributes(ctx, tribute.QueryFilter{}, []core.DBOrdering{
		{Field: "name; DROP TABLE tributes", Ascending: true},
		{Field: "name", Ascending: true},
	})
	s.Require().NoError(err)
	s.Equal([]tribute.Tribute{old, pending, recent}, byName)
}

// Concurrent moderation of the same tribute: last write wins and the row stays consistent.
func (s *PostgresSuite) TestConcurrentModeration() {
	ctx := context.Background()
	trib := testutil.CreateTribute(s.T(), s.tributes, "Ann", "m")
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(approve bool) {
			defer wg.Done()
			next := tribute.Transition(trib, approve, "", now)
			_, err := s.tributes.UpdateModeration(ctx, trib.ID, next.Approved, next.ApprovedAt, next.AdminNotes)
			s.NoError(err)
		}(i%2 == 0)
	}
	wg.Wait()

	got, err := s.tributes.GetTribute(ctx, trib.ID)
	s.Require().NoError(err)
	s.NoError(got.CheckInvariants())
}

func (s *PostgresSuite) TestSessions() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	live := session.Session{ID: "live", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	stale := session.Session{ID: "stale", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	s.Require().NoError(s.sessions.CreateSession(ctx, live))
	s.Require().NoError(s.sessions.CreateSession(ctx, stale))

	got, err := s.sessions.GetSession(ctx, "live")
	s.Require().NoError(err)
	s.Equal(live, got)

	_, err = s.sessions.GetSession(ctx, "nope")
	s.Equal(session.ErrNotFound, err)

	n, err := s.sessions.DeleteExpiredSessions(ctx, now)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	s.Require().NoError(s.sessions.DeleteSession(ctx, "live"))
	_, err = s.sessions.GetSession(ctx, "live")
	s.Equal(session.ErrNotFound, err)
}
