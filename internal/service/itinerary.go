package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"wanderplan/internal/models"
)

// DisplayDateLayout is the day/month/year form dates are echoed in.
const DisplayDateLayout = "02/01/2006"

var itineraryDateLayouts = []string{DisplayDateLayout, "2006-01-02"}

// PlaceRef is a place id submitted as either a JSON string or a number.
type PlaceRef string

func (r *PlaceRef) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = PlaceRef(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("place id must be a string or number")
	}
	*r = PlaceRef(n.String())
	return nil
}

// PlaceInput accepts both the id/name and placeId/placeName spellings.
type PlaceInput struct {
	ID        PlaceRef `json:"id"`
	PlaceID   PlaceRef `json:"placeId"`
	Name      string   `json:"name"`
	PlaceName string   `json:"placeName"`
}

func (p PlaceInput) resolve() models.Place {
	id := strings.TrimSpace(string(p.ID))
	if id == "" {
		id = strings.TrimSpace(string(p.PlaceID))
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = strings.TrimSpace(p.PlaceName)
	}
	return models.Place{ID: id, Name: name}
}

// DayInput is one day as submitted by a client.
type DayInput struct {
	Date   string       `json:"date"`
	Places []PlaceInput `json:"places"`
}

// DayView is one itinerary day as returned to clients.
type DayView struct {
	DayIndex int            `json:"day_index"`
	Date     string         `json:"date"`
	Places   []models.Place `json:"places"`
}

// ParseDate accepts 02/01/2006 first, then 2006-01-02.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range itineraryDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// ParseItinerary validates days and converts them to stored form. A day
// without places is an empty day. The first invalid entry is reported with
// its day and place index.
func ParseItinerary(days []DayInput) ([]models.ItineraryDay, error) {
	if len(days) == 0 {
		return nil, models.NewValidationError("days must not be empty")
	}
	out := make([]models.ItineraryDay, 0, len(days))
	for i, day := range days {
		if strings.TrimSpace(day.Date) == "" {
			return nil, models.NewValidationError(fmt.Sprintf("day %d: date is required", i))
		}
		date, err := ParseDate(day.Date)
		if err != nil {
			return nil, models.NewValidationError(fmt.Sprintf("day %d: date must be DD/MM/YYYY or YYYY-MM-DD", i))
		}
		places := make([]models.Place, 0, len(day.Places))
		for j, in := range day.Places {
			p := in.resolve()
			if p.ID == "" {
				return nil, models.NewValidationError(fmt.Sprintf("day %d, place %d: id is required", i, j))
			}
			if p.Name == "" {
				return nil, models.NewValidationError(fmt.Sprintf("day %d, place %d: name is required", i, j))
			}
			places = append(places, p)
		}
		out = append(out, models.ItineraryDay{DayIndex: i, Date: date, Places: places})
	}
	return out, nil
}

// RenderItinerary converts stored days to their client form.
func RenderItinerary(days []models.ItineraryDay) []DayView {
	out := make([]DayView, 0, len(days))
	for _, day := range days {
		places := day.Places
		if places == nil {
			places = []models.Place{}
		}
		out = append(out, DayView{
			DayIndex: day.DayIndex,
			Date:     day.Date.Format(DisplayDateLayout),
			Places:   places,
		})
	}
	return out
}

// ToInput turns rendered days back into submission form.
func ToInput(days []DayView) []DayInput {
	out := make([]DayInput, 0, len(days))
	for _, day := range days {
		places := make([]PlaceInput, 0, len(day.Places))
		for _, p := range day.Places {
			places = append(places, PlaceInput{ID: PlaceRef(p.ID), Name: p.Name})
		}
		out = append(out, DayInput{Date: day.Date, Places: places})
	}
	return out
}

// ValidateBucket checks a place bucket replacement.
func ValidateBucket(places []models.Place) ([]models.Place, error) {
	out := make([]models.Place, 0, len(places))
	for i, p := range places {
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		if p.ID == "" || p.Name == "" {
			return nil, models.NewValidationError(fmt.Sprintf("place %d: id and name are required", i))
		}
		out = append(out, p)
	}
	return out, nil
}

// ResolvePlaces maps submitted places onto their canonical id/name form.
func ResolvePlaces(in []PlaceInput) []models.Place {
	out := make([]models.Place, 0, len(in))
	for _, p := range in {
		out = append(out, p.resolve())
	}
	return out
}
