package audit

import (
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotel-pms/hotel-pms/internal/rbac"
	"github.com/hotel-pms/hotel-pms/internal/shared"
)

type stubRepo struct {
	rows []TimelineRow
	last Query
}

func (s *stubRepo) Timeline(_ context.Context, q Query) ([]TimelineRow, error) {
	s.last = q
	end := q.Offset + q.Limit
	if q.Offset >= len(s.rows) {
		return nil, nil
	}
	if end > len(s.rows) {
		end = len(s.rows)
	}
	return s.rows[q.Offset:end], nil
}

func sampleRows(n int) []TimelineRow {
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rows := make([]TimelineRow, n)
	for i := range rows {
		rows[i] = TimelineRow{ID: int64(n - i), At: base.Add(-time.Duration(i) * time.Hour), ActorID: 3, Action: "booking.confirm", Entity: "booking", EntityID: "7"}
	}
	return rows
}

func TestTimelinePaging(t *testing.T) {
	repo := &stubRepo{rows: sampleRows(3)}
	svc := NewService(repo)
	filters := TimelineFilters{
		From:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		Entity:   " booking ",
		Page:     1,
		PageSize: 2,
	}

	res, err := svc.Timeline(context.Background(), filters)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
	assert.True(t, res.Paging.HasNext)
	assert.Equal(t, 2, res.Paging.NextPage)
	assert.Equal(t, 3, repo.last.Limit)
	assert.Equal(t, 0, repo.last.Offset)
	assert.Equal(t, "booking", repo.last.Entity)

	filters.Page = 2
	res, err = svc.Timeline(context.Background(), filters)
	require.NoError(t, err)
	assert.Len(t, res.Rows, 1)
	assert.False(t, res.Paging.HasNext)
	assert.Equal(t, 1, res.Paging.PrevPage)
	assert.Equal(t, 2, repo.last.Offset)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)
	res, err := svc.Timeline(context.Background(), TimelineFilters{
		From: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), To: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), PageSize: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize+1, repo.last.Limit)
	assert.NotNil(t, res.Rows)
}

func TestTimelineRejectsBadRange(t *testing.T) {
	svc := NewService(&stubRepo{})
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := svc.Timeline(context.Background(), TimelineFilters{From: from, To: from.Add(-time.Hour)})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.Timeline(context.Background(), TimelineFilters{From: from, To: from.Add(MaxRange + time.Hour)})
	require.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.Export(context.Background(), TimelineFilters{To: from})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestWriteCSV(t *testing.T) {
	rows := sampleRows(2)
	rows[0].Meta = map[string]any{"to": "confirmada"}
	rows[1].ActorID = 0

	out, err := WriteCSV(rows)
	require.NoError(t, err)
	records, err := csv.NewReader(strings.NewReader(string(out))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"at", "actor_id", "action", "entity", "entity_id", "meta"}, records[0])
	assert.Equal(t, "2026-03-10T12:00:00Z", records[1][0])
	assert.Equal(t, `{"to":"confirmada"}`, records[1][5])
	assert.Equal(t, "", records[2][1])
}

func TestHandlerTimelineAndExport(t *testing.T) {
	repo := &stubRepo{rows: sampleRows(3)}
	h := NewHandler(NewService(repo), rbac.Middleware{Service: rbac.NewService()}, nil)
	h.now = func() time.Time { return time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC) }
	router := chi.NewRouter()
	h.MountRoutes(router)

	manager := shared.ContextWithIdentity(context.Background(), shared.Identity{UserID: 2, Role: rbac.RoleManager})
	req := httptest.NewRequest(http.MethodGet, "/audit?entity=booking&actor_id=3", nil).WithContext(manager)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), repo.last.ActorID)
	assert.Equal(t, time.Date(2026, 3, 3, 18, 0, 0, 0, time.UTC), repo.last.From)

	req = httptest.NewRequest(http.MethodGet, "/audit/export.csv?from=2026-03-01&to=2026-03-10", nil).WithContext(manager)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, exportLimit, repo.last.Limit)

	req = httptest.NewRequest(http.MethodGet, "/audit?from=2026-03-10&to=2026-03-01", nil).WithContext(manager)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	receptionist := shared.ContextWithIdentity(context.Background(), shared.Identity{UserID: 5, Role: rbac.RoleReceptionist})
	req = httptest.NewRequest(http.MethodGet, "/audit", nil).WithContext(receptionist)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
