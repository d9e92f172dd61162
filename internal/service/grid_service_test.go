package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/internal/models"
	"github.com/noah-isme/agenda-api/pkg/caldate"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

func newTestGridService(store ScheduleStore, cache *CacheService) *GridService {
	return NewGridService(store, cache, NewMetricsService(), nil, GridServiceConfig{
		Location: time.UTC,
		CacheTTL: time.Minute,
	})
}

func TestGridServiceWindowSteps(t *testing.T) {
	svc := newTestGridService(&scheduleStoreStub{}, nil)

	info := svc.Window(caldate.MustParse("2024-05-08"), models.GranularityWeek, 1)
	assert.Equal(t, "2024-05-13", info.RangeStart.String())
	assert.Equal(t, "2024-05-19", info.RangeEnd.String())
	assert.Equal(t, "2024-05-08", info.Previous.String())
	assert.Len(t, info.Days, 7)

	day := svc.Window(caldate.MustParse("2024-05-08"), models.GranularityDay, -2)
	assert.Equal(t, "2024-05-06", day.RangeStart.String())
	assert.Equal(t, day.RangeStart, day.RangeEnd)
}

func TestGridServiceBuildUsesCache(t *testing.T) {
	store := &scheduleStoreStub{
		resources: testResources(),
		records: [][]models.AppointmentRecord{{
			testRecord(1, 1, "2024-05-06", "09:00", "10:00"),
			testRecord(2, 2, "2024-05-06", "11:00", "12:00"),
		}},
	}
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := newTestGridService(store, cache)
	window := models.ViewWindow{AnchorDate: caldate.MustParse("2024-05-06"), Granularity: models.GranularityDay}
	session := models.Session{UserID: "u1", Role: models.RoleScheduler}

	grid, err := svc.Build(context.Background(), session, window, models.AllResources())
	require.NoError(t, err)
	assert.Equal(t, 2, grid.Summary.Rendered)
	require.Len(t, grid.Columns, 1)
	assert.Len(t, grid.Columns[0].Resources, 3)

	again, status, err := svc.BuildCached(context.Background(), session, window, models.AllResources())
	require.NoError(t, err)
	assert.True(t, status.Hit)
	assert.Equal(t, "agenda:grid:day:2024-05-06:all", status.Key)
	assert.Equal(t, time.Minute, status.TTL)
	assert.Equal(t, grid.Summary, again.Summary)
	assert.Equal(t, 1, store.listCalls)

	single, err := svc.Build(context.Background(), session, window, models.SingleResource(2))
	require.NoError(t, err)
	require.Len(t, single.Blocks, 1)
	assert.Equal(t, int64(2), single.Blocks[0].AppointmentID)
	assert.Equal(t, 2, store.listCalls)
}

func TestGridServiceBuildSurfacesFetchFailure(t *testing.T) {
	store := &scheduleStoreStub{resources: testResources(), listErr: errors.New("connection refused")}
	svc := newTestGridService(store, nil)

	_, err := svc.Build(context.Background(), models.Session{Role: models.RoleAdmin},
		models.ViewWindow{AnchorDate: caldate.MustParse("2024-05-06")}, models.AllResources())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrFetchFailed))
}

func TestGridServiceAppointmentsScopedToSelection(t *testing.T) {
	store := &scheduleStoreStub{
		resources: testResources(),
		records: [][]models.AppointmentRecord{{
			testRecord(1, 1, "2024-05-06", "09:00", "10:00"),
			testRecord(2, 2, "2024-05-07", "11:00", "12:00"),
		}},
	}
	svc := newTestGridService(store, nil)

	appts, resources, err := svc.Appointments(context.Background(), models.Session{Role: models.RoleAdmin},
		weekOf("2024-05-08"), models.SingleResource(1))
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, int64(1), appts[0].ID)
	require.Len(t, resources, 1)
	assert.Equal(t, int64(1), resources[0].ID)
}
