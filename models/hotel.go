package models

type Region string

const (
	RegionNorth   Region = "North"
	RegionEast    Region = "East"
	RegionSouth   Region = "South"
	RegionWest    Region = "West"
	RegionCentral Region = "Central"
)

// AllRegions returns the five fixed zones in a stable order.
func AllRegions() []Region {
	return []Region{RegionNorth, RegionEast, RegionSouth, RegionWest, RegionCentral}
}

func (r Region) Valid() bool {
	switch r {
	case RegionNorth, RegionEast, RegionSouth, RegionWest, RegionCentral:
		return true
	}
	return false
}

// Coordinates is a WGS84 point. Hotels and meeting points imported from the
// CMS often lack one, so it is always carried as a pointer.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type Hotel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// Region of the hotel itself, not of its pickup points.
	Region      Region       `json:"region"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`

	// AssignedMeetingPoints maps tour region -> nearest meeting point id.
	// Recomputed wholesale by every assignment run; bookings only read it.
	AssignedMeetingPoints map[Region]string `json:"assigned_meeting_points,omitempty"`

	// AssignedMeetingPointID is the pre-regions single global assignment.
	// Kept as a fallback for hotels the regional run has not covered yet.
	AssignedMeetingPointID string `json:"assigned_meeting_point_id,omitempty"`
}

type MeetingPoint struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Region      Region       `json:"region"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	// SourceLink is the map link the coordinates were geocoded from.
	SourceLink string `json:"source_link,omitempty"`
}
