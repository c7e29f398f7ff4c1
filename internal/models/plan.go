package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Place is a point of interest saved into a plan. Itineraries embed places
// by value; they never reference the bucket by id.
type Place struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ItineraryDay is one day of a plan. DayIndex is the zero-based position
// of the day in the itinerary.
type ItineraryDay struct {
	DayIndex int       `json:"day_index"`
	Date     time.Time `json:"date"`
	Places   []Place   `json:"places"`
}

// Plan is a user's trip workspace.
type Plan struct {
	ID               uint                              `gorm:"primaryKey" json:"id"`
	AuthorID         uint                              `gorm:"not null;index" json:"author_id"`
	AuthorName       string                            `gorm:"size:150;not null" json:"author_name"`
	City             string                            `gorm:"size:255;not null;index" json:"city"`
	FromDate         time.Time                         `gorm:"not null" json:"from_date"`
	ToDate           time.Time                         `gorm:"not null" json:"to_date"`
	IsPublic         bool                              `gorm:"not null;index" json:"is_public"`
	PlaceBucket      datatypes.JSONSlice[Place]        `gorm:"not null" json:"place_bucket"`
	Itinerary        datatypes.JSONSlice[ItineraryDay] `gorm:"not null" json:"itinerary"`
	ClonedFrom       *uint                             `gorm:"index" json:"cloned_from,omitempty"`
	ClonedFromPlanID *uint                             `gorm:"index" json:"cloned_from_plan_id,omitempty"`
	Engagement       `gorm:"embedded"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (p *Plan) BeforeSave(_ *gorm.DB) error {
	if p.PlaceBucket == nil {
		p.PlaceBucket = datatypes.JSONSlice[Place]{}
	}
	if p.Itinerary == nil {
		p.Itinerary = datatypes.JSONSlice[ItineraryDay]{}
	}
	p.Engagement.Normalize()
	return nil
}

// Snapshot deep-copies the plan's trip data.
func (p *Plan) Snapshot() PlanSnapshot {
	return PlanSnapshot{
		City:        p.City,
		FromDate:    p.FromDate,
		ToDate:      p.ToDate,
		PlaceBucket: ClonePlaces(p.PlaceBucket),
		Itinerary:   CloneItinerary(p.Itinerary),
	}
}

// PlanSnapshot is the frozen copy of a plan stored on a publication.
type PlanSnapshot struct {
	City        string         `json:"city"`
	FromDate    time.Time      `json:"from_date"`
	ToDate      time.Time      `json:"to_date"`
	PlaceBucket []Place        `json:"place_bucket"`
	Itinerary   []ItineraryDay `json:"itinerary"`
}

// ClonePlaces returns an independent copy of places.
func ClonePlaces(in []Place) datatypes.JSONSlice[Place] {
	out := make(datatypes.JSONSlice[Place], len(in))
	copy(out, in)
	return out
}

// CloneItinerary returns an independent copy of days, including each day's places.
func CloneItinerary(in []ItineraryDay) datatypes.JSONSlice[ItineraryDay] {
	out := make(datatypes.JSONSlice[ItineraryDay], len(in))
	for i, day := range in {
		out[i] = ItineraryDay{
			DayIndex: day.DayIndex,
			Date:     day.Date,
			Places:   ClonePlaces(day.Places),
		}
	}
	return out
}
