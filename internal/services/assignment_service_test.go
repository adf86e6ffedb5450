package services

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-booking/internal/status"
	"tour-booking/internal/store"
	"tour-booking/models"
)

func coords(lat, lng float64) *models.Coordinates {
	return &models.Coordinates{Lat: lat, Lng: lng}
}

func TestReassign_PicksNearestPerRegion(t *testing.T) {
	hotels := store.NewMemoryHotels(
		models.Hotel{ID: "h1", Name: "Central Hotel", Coordinates: coords(13.75, 100.50)},
	)
	// p-far is ~5km north, p-near ~3km east
	points := store.NewMemoryMeetingPoints(
		models.MeetingPoint{ID: "p-far", Region: models.RegionSouth, Coordinates: coords(13.795, 100.50)},
		models.MeetingPoint{ID: "p-near", Region: models.RegionSouth, Coordinates: coords(13.75, 100.5277)},
		models.MeetingPoint{ID: "p-north", Region: models.RegionNorth, Coordinates: coords(13.80, 100.50)},
	)
	svc := NewAssignmentService(hotels, points, nil, AssignmentConfig{})

	result, err := svc.Reassign(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.UpdatedCount)
	assert.Equal(t, 0, result.SkippedCount)

	h, err := hotels.FindByID(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, "p-near", h.AssignedMeetingPoints[models.RegionSouth])
	assert.Equal(t, "p-north", h.AssignedMeetingPoints[models.RegionNorth])
	// p-near is also the global closest
	assert.Equal(t, "p-near", h.AssignedMeetingPointID)
}

func TestReassign_SkipsHotelsWithoutCoordinates(t *testing.T) {
	hotels := store.NewMemoryHotels(
		models.Hotel{ID: "h1", Name: "Located", Coordinates: coords(13.75, 100.50)},
		models.Hotel{ID: "h2", Name: "Unlocated"},
		models.Hotel{ID: "h3", Name: "Null Island", Coordinates: coords(0, 0)},
	)
	points := store.NewMemoryMeetingPoints(
		models.MeetingPoint{ID: "p1", Region: models.RegionSouth, Coordinates: coords(13.76, 100.51)},
	)
	svc := NewAssignmentService(hotels, points, nil, AssignmentConfig{})

	result, err := svc.Reassign(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.UpdatedCount)
	assert.Equal(t, 2, result.SkippedCount)
	assert.Len(t, result.Warnings, 2)
}

func TestReassign_SkippedHotelKeepsPreviousAssignment(t *testing.T) {
	hotels := store.NewMemoryHotels(
		models.Hotel{
			ID:                     "h1",
			Name:                   "Unlocated",
			AssignedMeetingPointID: "p-old",
			AssignedMeetingPoints:  map[models.Region]string{models.RegionSouth: "p-old"},
		},
	)
	points := store.NewMemoryMeetingPoints(
		models.MeetingPoint{ID: "p1", Region: models.RegionSouth, Coordinates: coords(13.76, 100.51)},
	)
	svc := NewAssignmentService(hotels, points, nil, AssignmentConfig{})

	result, err := svc.Reassign(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, result.SkippedCount)

	h, err := hotels.FindByID(context.Background(), "h1")
	require.NoError(t, err)
	assert.Equal(t, "p-old", h.AssignedMeetingPointID)
	assert.Equal(t, "p-old", h.AssignedMeetingPoints[models.RegionSouth])
}

func TestReassign_IgnoresPointsWithoutCoordinates(t *testing.T) {
	hotels := store.NewMemoryHotels(
		models.Hotel{ID: "h1", Coordinates: coords(13.75, 100.50)},
	)
	points := store.NewMemoryMeetingPoints(
		models.MeetingPoint{ID: "p-blind", Region: models.RegionSouth},
		models.MeetingPoint{ID: "p-ok", Region: models.RegionSouth, Coordinates: coords(13.80, 100.55)},
	)
	svc := NewAssignmentService(hotels, points, nil, AssignmentConfig{})

	_, err := svc.Reassign(context.Background())

	require.NoError(t, err)
	h, _ := hotels.FindByID(context.Background(), "h1")
	assert.Equal(t, "p-ok", h.AssignedMeetingPoints[models.RegionSouth])
}

func TestReassign_TieKeepsLowestID(t *testing.T) {
	hotels := store.NewMemoryHotels(
		models.Hotel{ID: "h1", Coordinates: coords(13.75, 100.50)},
	)
	// equidistant: same coordinates for both candidates
	points := store.NewMemoryMeetingPoints(
		models.MeetingPoint{ID: "p-b", Region: models.RegionSouth, Coordinates: coords(13.76, 100.51)},
		models.MeetingPoint{ID: "p-a", Region: models.RegionSouth, Coordinates: coords(13.76, 100.51)},
	)
	svc := NewAssignmentService(hotels, points, nil, AssignmentConfig{})

	_, err := svc.Reassign(context.Background())

	require.NoError(t, err)
	h, _ := hotels.FindByID(context.Background(), "h1")
	assert.Equal(t, "p-a", h.AssignedMeetingPoints[models.RegionSouth])
}

func TestReassign_NoHotels(t *testing.T) {
	svc := NewAssignmentService(store.NewMemoryHotels(), store.NewMemoryMeetingPoints(
		models.MeetingPoint{ID: "p1", Region: models.RegionSouth, Coordinates: coords(13.76, 100.51)},
	), nil, AssignmentConfig{})

	_, err := svc.Reassign(context.Background())

	assert.ErrorContains(t, err, "no hotels")
}

func TestReassign_NoUsablePoints(t *testing.T) {
	svc := NewAssignmentService(store.NewMemoryHotels(
		models.Hotel{ID: "h1", Coordinates: coords(13.75, 100.50)},
	), store.NewMemoryMeetingPoints(
		models.MeetingPoint{ID: "p-blind", Region: models.RegionSouth},
	), nil, AssignmentConfig{})

	_, err := svc.Reassign(context.Background())

	assert.ErrorContains(t, err, "no meeting points")
}

func TestReassign_Idempotent(t *testing.T) {
	hotels := store.NewMemoryHotels(
		models.Hotel{ID: "h1", Coordinates: coords(13.75, 100.50)},
		models.Hotel{ID: "h2", Coordinates: coords(13.90, 100.60)},
	)
	points := store.NewMemoryMeetingPoints(
		models.MeetingPoint{ID: "p1", Region: models.RegionSouth, Coordinates: coords(13.76, 100.51)},
		models.MeetingPoint{ID: "p2", Region: models.RegionNorth, Coordinates: coords(13.91, 100.61)},
	)
	svc := NewAssignmentService(hotels, points, nil, AssignmentConfig{Workers: 2})

	first, err := svc.Reassign(context.Background())
	require.NoError(t, err)

	firstH1, _ := hotels.FindByID(context.Background(), "h1")

	second, err := svc.Reassign(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.UpdatedCount, second.UpdatedCount)

	secondH1, _ := hotels.FindByID(context.Background(), "h1")
	assert.Equal(t, firstH1.AssignedMeetingPoints, secondH1.AssignedMeetingPoints)
	assert.Equal(t, firstH1.AssignedMeetingPointID, secondH1.AssignedMeetingPointID)
}

func TestReassign_RunLockConflict(t *testing.T) {
	db, mock := redismock.NewClientMock()
	mock.ExpectSetNX(assignmentLockKey, "1", assignmentLockTTL).SetVal(false)

	svc := NewAssignmentService(store.NewMemoryHotels(), store.NewMemoryMeetingPoints(), db, AssignmentConfig{})

	_, err := svc.Reassign(context.Background())

	assert.ErrorIs(t, err, status.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
