package service

import (
	"encoding/json"
	"testing"
	"time"

	"wanderplan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	for _, raw := range []string{"01/06/2025", "2025-06-01", " 01/06/2025 "} {
		got, err := ParseDate(raw)
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(got), raw)
	}

	for _, raw := range []string{"", "06-01-2025", "2025/06/01", "32/01/2025"} {
		_, err := ParseDate(raw)
		assert.Error(t, err, raw)
	}
}

func TestParseItinerary_EchoesDisplayFormat(t *testing.T) {
	days, err := ParseItinerary([]DayInput{
		{Date: "2025-06-01", Places: []PlaceInput{{ID: "p1", Name: "Louvre"}}},
		{Date: "02/06/2025", Places: []PlaceInput{}},
	})
	require.NoError(t, err)

	views := RenderItinerary(days)
	require.Len(t, views, 2)
	assert.Equal(t, "01/06/2025", views[0].Date)
	assert.Equal(t, 0, views[0].DayIndex)
	assert.Equal(t, []models.Place{{ID: "p1", Name: "Louvre"}}, views[0].Places)
	assert.Equal(t, "02/06/2025", views[1].Date)
	assert.Equal(t, 1, views[1].DayIndex)
	assert.Empty(t, views[1].Places)
}

func TestParseItinerary_AcceptsAlternateKeys(t *testing.T) {
	days, err := ParseItinerary([]DayInput{
		{Date: "01/06/2025", Places: []PlaceInput{{PlaceID: "p9", PlaceName: "Orsay"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.Place{ID: "p9", Name: "Orsay"}, days[0].Places[0])
}

func TestParseItinerary_Idempotent(t *testing.T) {
	input := []DayInput{
		{Date: "2025-06-01", Places: []PlaceInput{{ID: "a", Name: "A"}, {PlaceID: "b", PlaceName: "B"}}},
		{Date: "03/06/2025", Places: []PlaceInput{{ID: "c", Name: "C"}}},
	}
	first, err := ParseItinerary(input)
	require.NoError(t, err)
	rendered := RenderItinerary(first)

	second, err := ParseItinerary(ToInput(rendered))
	require.NoError(t, err)
	assert.Equal(t, rendered, RenderItinerary(second))
}

func TestParseItinerary_Errors(t *testing.T) {
	tests := []struct {
		name string
		days []DayInput
		want string
	}{
		{"empty", nil, "days must not be empty"},
		{"missing date", []DayInput{{Places: []PlaceInput{}}}, "day 0: date is required"},
		{"bad date", []DayInput{{Date: "June 1", Places: []PlaceInput{}}}, "day 0: date must be"},
		{
			"missing place id",
			[]DayInput{
				{Date: "01/06/2025", Places: []PlaceInput{}},
				{Date: "02/06/2025", Places: []PlaceInput{{ID: "ok", Name: "ok"}, {Name: "no id"}}},
			},
			"day 1, place 1: id is required",
		},
		{
			"missing place name",
			[]DayInput{{Date: "01/06/2025", Places: []PlaceInput{{ID: "x"}}}},
			"day 0, place 0: name is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseItinerary(tt.days)
			assertValidationError(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateBucket(t *testing.T) {
	out, err := ValidateBucket([]models.Place{{ID: " a ", Name: " Alpha "}})
	require.NoError(t, err)
	assert.Equal(t, []models.Place{{ID: "a", Name: "Alpha"}}, out)

	_, err = ValidateBucket([]models.Place{{ID: "a", Name: "A"}, {ID: "", Name: "B"}})
	assertValidationError(t, err)
	assert.Contains(t, err.Error(), "place 1")
}

func TestResolvePlaces(t *testing.T) {
	out := ResolvePlaces([]PlaceInput{
		{ID: "a", Name: "Alpha"},
		{PlaceID: "b", PlaceName: "Beta"},
		{ID: "c", PlaceName: "Gamma"},
	})
	assert.Equal(t, []models.Place{{ID: "a", Name: "Alpha"}, {ID: "b", Name: "Beta"}, {ID: "c", Name: "Gamma"}}, out)
}

func TestParseItinerary_DecodedBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []models.Place
	}{
		{"missing places key", `[{"date":"01/06/2025"}]`, []models.Place{}},
		{"numeric id", `[{"date":"01/06/2025","places":[{"id":42,"name":"Acropolis"}]}]`, []models.Place{{ID: "42", Name: "Acropolis"}}},
		{"numeric placeId", `[{"date":"01/06/2025","places":[{"placeId":7,"placeName":"Agora"}]}]`, []models.Place{{ID: "7", Name: "Agora"}}},
		{"string id", `[{"date":"01/06/2025","places":[{"id":"ChIJ","name":"Plaka"}]}]`, []models.Place{{ID: "ChIJ", Name: "Plaka"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var days []DayInput
			require.NoError(t, json.Unmarshal([]byte(tt.body), &days))

			out, err := ParseItinerary(days)
			require.NoError(t, err)
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].Places)
		})
	}

	var days []DayInput
	assert.Error(t, json.Unmarshal([]byte(`[{"date":"01/06/2025","places":[{"id":true,"name":"x"}]}]`), &days))
}
