package store

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"peanut/internal/models"
)

const linkFile = "links.json"

// LinkStore keeps per-user saved URLs on disk. Links are stored as shared,
// without any content analysis.
type LinkStore struct {
	baseDir string
	locks   userLocks

	now func() time.Time
}

// NewLinkStore creates a link store rooted at baseDir
func NewLinkStore(baseDir string) *LinkStore {
	return &LinkStore{baseDir: baseDir, now: time.Now}
}

// LinkFilter narrows Query results
type LinkFilter struct {
	Keyword string // matches URL or title
	Since   time.Time
	Limit   int
}

// Create saves a shared URL
func (s *LinkStore) Create(userID, url, title string) (models.SavedLink, error) {
	mu := s.locks.lock(userID)
	defer mu.Unlock()

	link := models.SavedLink{
		ID:      uuid.New().String(),
		URL:     strings.TrimSpace(url),
		Title:   strings.TrimSpace(title),
		SavedAt: s.now(),
	}

	path := userFile(s.baseDir, userID, linkFile)
	records := readRecords[models.SavedLink](path)
	records = append(records, link)
	if err := writeRecords(path, records); err != nil {
		log.Printf("❌ [LINK] Failed to save link for user %s: %v", userID, err)
		return models.SavedLink{}, fmt.Errorf("failed to save link: %w", err)
	}

	log.Printf("🔗 [LINK] Saved link for user %s: %s", userID, link.URL)
	return link, nil
}

// Query returns the user's saved links matching the filter, newest-first
func (s *LinkStore) Query(userID string, filter LinkFilter) []models.SavedLink {
	records := readRecords[models.SavedLink](userFile(s.baseDir, userID, linkFile))

	var out []models.SavedLink
	for _, r := range records {
		if filter.Keyword != "" &&
			!strings.Contains(r.URL, filter.Keyword) &&
			!strings.Contains(r.Title, filter.Keyword) {
			continue
		}
		if !filter.Since.IsZero() && r.SavedAt.Before(filter.Since) {
			continue
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SavedAt.After(out[j].SavedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Delete removes links matched by exact id or URL/title keyword
func (s *LinkStore) Delete(userID, idOrKeyword string) Result {
	mu := s.locks.lock(userID)
	defer mu.Unlock()

	path := userFile(s.baseDir, userID, linkFile)
	records := readRecords[models.SavedLink](path)

	kept := records[:0]
	deleted := 0
	for _, r := range records {
		if r.ID == idOrKeyword || (idOrKeyword != "" &&
			(strings.Contains(r.URL, idOrKeyword) || strings.Contains(r.Title, idOrKeyword))) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}

	if deleted == 0 {
		return notFound()
	}
	if err := writeRecords(path, kept); err != nil {
		log.Printf("❌ [LINK] Failed to delete links for user %s: %v", userID, err)
		return failed(err)
	}

	log.Printf("🗑️  [LINK] Deleted %d link(s) for user %s", deleted, userID)
	return Result{Success: true, Count: deleted}
}
