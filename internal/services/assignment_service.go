package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"tour-booking/internal/geo"
	"tour-booking/internal/status"
	"tour-booking/internal/store"
	"tour-booking/models"
	"tour-booking/monitoring"
)

const (
	assignmentLockKey = "assignment:run_lock"
	assignmentLockTTL = 10 * time.Minute
)

type AssignmentConfig struct {
	// Workers bounds how many hotels are measured concurrently.
	Workers int
}

// AssignmentResult summarizes a recomputation run.
type AssignmentResult struct {
	UpdatedCount int      `json:"updated_count"`
	SkippedCount int      `json:"skipped_count"`
	Warnings     []string `json:"warnings,omitempty"`
}

// AssignmentService recomputes each hotel's nearest meeting point, per
// region and globally, from scratch on every run. A redis lock keeps
// concurrent runs from interleaving their writes.
type AssignmentService struct {
	hotels store.HotelStore
	points store.MeetingPointStore
	redis  *redis.Client

	workers int
}

func NewAssignmentService(hotels store.HotelStore, points store.MeetingPointStore, redisClient *redis.Client, cfg AssignmentConfig) *AssignmentService {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &AssignmentService{
		hotels:  hotels,
		points:  points,
		redis:   redisClient,
		workers: cfg.Workers,
	}
}

// Reassign recomputes the assignment for every hotel. Hotels without usable
// coordinates are skipped with a warning and keep their previous
// assignments. Returns status.ErrConflict when a run is already in flight.
func (s *AssignmentService) Reassign(ctx context.Context) (*AssignmentResult, error) {
	if s.redis != nil {
		ok, err := s.redis.SetNX(ctx, assignmentLockKey, "1", assignmentLockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return nil, fmt.Errorf("reassignment already running: %w", status.ErrConflict)
		}
		defer s.redis.Del(context.WithoutCancel(ctx), assignmentLockKey)
	}

	started := time.Now()
	result, err := s.run(ctx)
	monitoring.ObserveAssignmentRun(time.Since(started), err == nil)
	return result, err
}

func (s *AssignmentService) run(ctx context.Context) (*AssignmentResult, error) {
	hotels, err := s.hotels.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(hotels) == 0 {
		return nil, fmt.Errorf("no hotels to assign")
	}

	points, err := s.points.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	byRegion, all := groupPoints(points)
	if len(all) == 0 {
		return nil, fmt.Errorf("no meeting points with usable coordinates")
	}

	jobs := make(chan models.Hotel)
	var (
		mu       sync.Mutex
		result   AssignmentResult
		firstErr error
		wg       sync.WaitGroup
	)

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for hotel := range jobs {
				if !geo.ValidCoordinates(hotel.Coordinates) {
					mu.Lock()
					result.SkippedCount++
					result.Warnings = append(result.Warnings, fmt.Sprintf("hotel %s (%s): no usable coordinates", hotel.ID, hotel.Name))
					mu.Unlock()
					continue
				}

				perRegion := make(map[models.Region]string, len(byRegion))
				for region, candidates := range byRegion {
					if id := nearest(*hotel.Coordinates, candidates); id != "" {
						perRegion[region] = id
					}
				}
				globalID := nearest(*hotel.Coordinates, all)

				if err := s.hotels.UpdateAssignments(ctx, hotel.ID, perRegion, globalID); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = fmt.Errorf("update hotel %s: %w", hotel.ID, err)
					}
					mu.Unlock()
					continue
				}

				mu.Lock()
				result.UpdatedCount++
				mu.Unlock()
			}
		}()
	}

	for _, hotel := range hotels {
		jobs <- hotel
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	log.Printf("reassignment done: %d updated, %d skipped", result.UpdatedCount, result.SkippedCount)
	return &result, nil
}

// groupPoints splits points by region and collects the global candidate
// list, dropping any point without usable coordinates. Order is preserved
// from the store, which returns points sorted by id, so distance ties
// resolve to the lowest id deterministically.
func groupPoints(points []models.MeetingPoint) (map[models.Region][]models.MeetingPoint, []models.MeetingPoint) {
	byRegion := make(map[models.Region][]models.MeetingPoint)
	all := make([]models.MeetingPoint, 0, len(points))

	for _, p := range points {
		if !geo.ValidCoordinates(p.Coordinates) {
			continue
		}
		all = append(all, p)
		byRegion[p.Region] = append(byRegion[p.Region], p)
	}
	return byRegion, all
}

// nearest returns the id of the candidate closest to from. Strictly-closer
// wins, so the first of equidistant candidates keeps the spot.
func nearest(from models.Coordinates, candidates []models.MeetingPoint) string {
	var (
		bestID   string
		bestDist float64
	)
	for _, p := range candidates {
		d := geo.Distance(from, *p.Coordinates)
		if bestID == "" || d < bestDist {
			bestID = p.ID
			bestDist = d
		}
	}
	return bestID
}
