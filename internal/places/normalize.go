package places

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Place is the normalized form of one SerpApi result.
type Place struct {
	PlaceID     string  `json:"place_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Address     string  `json:"address"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	Image       string  `json:"image"`
	Phone       string  `json:"phone"`
	Website     string  `json:"website"`
}

// resultKeys lists the SerpApi result arrays in lookup order: google_local,
// then google local pack, then organic results.
var resultKeys = []string{"results", "local_results", "organic_results"}

// extractResults returns the first result array present in body.
func extractResults(body map[string]any) []any {
	for _, key := range resultKeys {
		if v, ok := body[key]; ok {
			items, _ := v.([]any)
			return items
		}
	}
	return nil
}

// Normalize converts raw SerpApi records into Places. Records without
// non-zero coordinates are dropped.
func Normalize(raw []any) []Place {
	out := make([]Place, 0, len(raw))
	for _, item := range raw {
		rec, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if p, ok := normalizeOne(rec); ok {
			out = append(out, p)
		}
	}
	return out
}

func normalizeOne(rec map[string]any) (Place, bool) {
	lat, lng := coordinates(rec)
	if lat == 0 || lng == 0 {
		return Place{}, false
	}

	rating, _ := toFloat(truthy(rec, "rating"))
	reviews, _ := toInt(truthy(rec, "review_count"))

	return Place{
		PlaceID:     stringify(lookup(rec, "place_id", "link")),
		Title:       stringify(lookup(rec, "title", "name")),
		Description: stringify(lookup(rec, "description", "snippet", "type")),
		Address:     stringify(lookup(rec, "address")),
		Latitude:    lat,
		Longitude:   lng,
		Rating:      rating,
		ReviewCount: reviews,
		Image:       stringify(truthy(rec, "image", "thumbnail", "photo")),
		Phone:       stringify(lookup(rec, "phone", "review_snippets")),
		Website:     stringify(lookup(rec, "website", "link")),
	}, true
}

// coordinates reads flat latitude/longitude fields, falling back to a nested
// gps_coordinates or coordinates object.
func coordinates(rec map[string]any) (float64, float64) {
	lat, latOK := toFloat(truthy(rec, "latitude", "lat"))
	lng, lngOK := toFloat(truthy(rec, "longitude", "lng"))
	if latOK && lngOK && lat != 0 && lng != 0 {
		return lat, lng
	}

	geo, _ := truthy(rec, "gps_coordinates", "coordinates").(map[string]any)
	if len(geo) == 0 {
		return 0, 0
	}
	lat, latOK = toFloat(geo["latitude"])
	lng, lngOK = toFloat(geo["longitude"])
	if !latOK || !lngOK {
		return 0, 0
	}
	return lat, lng
}

// lookup returns the value of the first key present in rec, even if empty.
func lookup(rec map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := rec[k]; ok {
			return v
		}
	}
	return nil
}

// truthy returns the first value that is present and non-empty.
func truthy(rec map[string]any, keys ...string) any {
	for _, k := range keys {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t == "" {
				continue
			}
		case float64:
			if t == 0 {
				continue
			}
		case bool:
			if !t {
				continue
			}
		case map[string]any:
			if len(t) == 0 {
				continue
			}
		case []any:
			if len(t) == 0 {
				continue
			}
		}
		return v
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	default:
		return fmt.Sprint(t)
	}
}
