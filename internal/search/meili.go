// Package search mirrors publications into Meilisearch for city lookups.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync/atomic"
	"time"

	"wanderplan/internal/models"
	"wanderplan/internal/observability"

	meili "github.com/meilisearch/meilisearch-go"
)

const (
	// PublicationsIndex is the Meilisearch index uid.
	PublicationsIndex = "wanderplan_publications"
	healthInterval    = 10 * time.Second
	defaultLimit      = 20
)

// ErrUnavailable is returned while Meilisearch is unreachable.
var ErrUnavailable = errors.New("meilisearch unavailable")

// Document is the indexed form of a publication.
type Document struct {
	ID          uint   `json:"id"`
	City        string `json:"city"`
	AuthorID    uint   `json:"author_id"`
	AuthorName  string `json:"author_name"`
	Description string `json:"description"`
	CreatedAt   int64  `json:"created_at"`
}

// ToDocument extracts the searchable fields of pub.
func ToDocument(pub *models.Publication) Document {
	city := pub.City
	if city == "" {
		city = pub.PlanSnapshot.Data().City
	}
	return Document{
		ID:          pub.ID,
		City:        city,
		AuthorID:    pub.AuthorID,
		AuthorName:  pub.AuthorName,
		Description: pub.Description,
		CreatedAt:   pub.CreatedAt.Unix(),
	}
}

// Meili implements the publication index on top of Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
}

// NewMeili connects to url and configures the index. An unreachable server
// is not an error: the index reports unavailable until Watch sees it recover.
func NewMeili(url, apiKey string) *Meili {
	m := &Meili{client: meili.New(url, meili.WithAPIKey(apiKey))}

	if _, err := m.client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		return m
	}
	m.healthy.Store(true)
	m.configureIndex()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        PublicationsIndex,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", PublicationsIndex, err)
	}

	index := m.client.Index(PublicationsIndex)
	filterable := []interface{}{"author_id"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attributes: %v", err)
	}
	searchable := []string{"city"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attributes: %v", err)
	}
	sortable := []string{"created_at"}
	if _, err := index.UpdateSortableAttributes(&sortable); err != nil {
		log.Printf("search: update sortable attributes: %v", err)
	}
}

// Watch polls server health until ctx ends, reconfiguring the index when
// the server comes back.
func (m *Meili) Watch(ctx context.Context) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, err := m.client.Health()
			was := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !was {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Healthy reports whether the last health probe succeeded.
func (m *Meili) Healthy() bool {
	return m != nil && m.healthy.Load()
}

// Index adds or replaces pub in the index.
func (m *Meili) Index(ctx context.Context, pub *models.Publication) error {
	return m.IndexMany(ctx, []Document{ToDocument(pub)})
}

// IndexMany adds or replaces docs in one task.
func (m *Meili) IndexMany(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	if !m.Healthy() {
		return ErrUnavailable
	}
	_, span := observability.StartClientSpan(ctx, "meilisearch", "add_documents")
	_, err := m.client.Index(PublicationsIndex).AddDocuments(docs, nil)
	observability.EndSpan(span, err)
	return m.observe(err)
}

// Remove deletes publications from the index.
func (m *Meili) Remove(ctx context.Context, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	if !m.Healthy() {
		return ErrUnavailable
	}
	_, span := observability.StartClientSpan(ctx, "meilisearch", "delete_documents")
	var err error
	index := m.client.Index(PublicationsIndex)
	for _, id := range ids {
		if _, err = index.DeleteDocument(strconv.FormatUint(uint64(id), 10), nil); err != nil {
			break
		}
	}
	observability.EndSpan(span, err)
	return m.observe(err)
}

// SearchByCity returns matching publication ids, newest first, leaving out
// excludeAuthorID when it is non-zero.
func (m *Meili) SearchByCity(ctx context.Context, city string, excludeAuthorID uint, limit, offset int) ([]uint, error) {
	if !m.Healthy() {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	req := &meili.SearchRequest{
		Limit:                int64(limit),
		Offset:               int64(offset),
		AttributesToRetrieve: []string{"id"},
		Sort:                 []string{"created_at:desc"},
	}
	if f := excludeFilter(excludeAuthorID); f != "" {
		req.Filter = f
	}

	_, span := observability.StartClientSpan(ctx, "meilisearch", "search")
	resp, err := m.client.Index(PublicationsIndex).Search(city, req)
	observability.EndSpan(span, err)
	if err := m.observe(err); err != nil {
		return nil, err
	}
	return decodeIDs(resp.Hits)
}

func (m *Meili) observe(err error) error {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		m.healthy.Store(false)
	}
	observability.UpstreamRequests.WithLabelValues("meilisearch", outcome).Inc()
	if err != nil {
		return fmt.Errorf("meilisearch: %w", err)
	}
	return nil
}

func excludeFilter(authorID uint) string {
	if authorID == 0 {
		return ""
	}
	return fmt.Sprintf("author_id != %d", authorID)
}

func decodeIDs(hits meili.Hits) ([]uint, error) {
	out := make([]uint, 0, len(hits))
	for _, hit := range hits {
		raw, ok := hit["id"]
		if !ok {
			continue
		}
		var id uint
		if err := json.Unmarshal(raw, &id); err != nil {
			return nil, fmt.Errorf("decode hit id: %w", err)
		}
		out = append(out, id)
	}
	return out, nil
}
