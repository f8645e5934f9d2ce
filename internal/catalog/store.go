package catalog

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/techpulse/techpulse-backend/internal/pkg/logger"
	"github.com/techpulse/techpulse-backend/internal/textutil"
	"github.com/techpulse/techpulse-backend/internal/types"
)

// MergeResult summarizes one batch merge.
type MergeResult struct {
	New     int
	Updated int
	Evicted int
}

// Store is the bounded in-memory catalog. Mutations serialize through
// one writer lock; reads take consistent snapshots. Merged records are
// replaced, never mutated in place, so a snapshot handed to a reader
// stays stable while merges continue.
type Store struct {
	log        *logger.Logger
	maxRecords int

	mu         sync.RWMutex
	records    map[string]*types.Record
	byExternal map[string]string
	byTitle    map[string]string

	lastFetchTime time.Time
	lastPaperDate time.Time
}

func NewStore(log *logger.Logger, maxRecords int) *Store {
	if maxRecords <= 0 {
		maxRecords = 10000
	}
	return &Store{
		log:        log.With("service", "CatalogStore"),
		maxRecords: maxRecords,
		records:    map[string]*types.Record{},
		byExternal: map[string]string{},
		byTitle:    map[string]string{},
	}
}

// MergeBatch collapses the batch internally, then resolves each
// survivor against the catalog. Misses insert, hits merge into a
// replacement record. Returns counts including any evictions the
// ceiling forced.
func (s *Store) MergeBatch(batch []*types.Record) MergeResult {
	collapsed := CollapseBatch(batch)

	s.mu.Lock()
	defer s.mu.Unlock()

	var res MergeResult
	for _, r := range collapsed {
		if r == nil || r.ID == "" {
			continue
		}
		if existingID := s.resolveLocked(r); existingID != "" {
			merged := mergeRecords(s.records[existingID], r)
			s.storeLocked(merged)
			res.Updated++
		} else {
			s.storeLocked(r)
			res.New++
		}
	}
	res.Evicted = s.evictLocked()
	return res
}

// resolveLocked finds an existing record id for an incoming record:
// direct id, then each external namespace, then the normalized title.
func (s *Store) resolveLocked(r *types.Record) string {
	if _, ok := s.records[r.ID]; ok {
		return r.ID
	}
	for ns, id := range r.ExternalIDs {
		if existing, ok := s.byExternal[ns+"\x00"+id]; ok {
			return existing
		}
	}
	title := textutil.NormalizeTitle(r.Title)
	if len(title) >= minFingerprintTitle {
		if existing, ok := s.byTitle[title]; ok {
			return existing
		}
	}
	return ""
}

func (s *Store) storeLocked(r *types.Record) {
	s.records[r.ID] = r
	for ns, id := range r.ExternalIDs {
		s.byExternal[ns+"\x00"+id] = r.ID
	}
	if title := textutil.NormalizeTitle(r.Title); len(title) >= minFingerprintTitle {
		s.byTitle[title] = r.ID
	}
	if r.Type == types.RecordPaper && r.Published.After(s.lastPaperDate) {
		s.lastPaperDate = r.Published
	}
}

func (s *Store) dropLocked(r *types.Record) {
	delete(s.records, r.ID)
	for ns, id := range r.ExternalIDs {
		if s.byExternal[ns+"\x00"+id] == r.ID {
			delete(s.byExternal, ns+"\x00"+id)
		}
	}
	if title := textutil.NormalizeTitle(r.Title); len(title) >= minFingerprintTitle {
		if s.byTitle[title] == r.ID {
			delete(s.byTitle, title)
		}
	}
}

// evictLocked enforces the ceiling by dropping the oldest-published
// records until the store fits again.
func (s *Store) evictLocked() int {
	over := len(s.records) - s.maxRecords
	if over <= 0 {
		return 0
	}
	all := make([]*types.Record, 0, len(s.records))
	for _, r := range s.records {
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Published.Equal(all[j].Published) {
			return all[i].Published.Before(all[j].Published)
		}
		return all[i].ID < all[j].ID
	})
	for i := 0; i < over; i++ {
		s.dropLocked(all[i])
	}
	s.log.Info("Catalog ceiling reached, evicted oldest records", "evicted", over, "ceiling", s.maxRecords)
	return over
}

// Get returns a record by id.
func (s *Store) Get(id string) (*types.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	return r, ok
}

// AttachBreakdown sets metadata.breakdown on a stored record. The
// record is swapped for a copy so snapshots handed out earlier stay
// stable.
func (s *Store) AttachBreakdown(id string, bd any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return false
	}
	clone := *r
	meta := make(map[string]any, len(r.Metadata)+1)
	for k, v := range r.Metadata {
		meta[k] = v
	}
	meta["breakdown"] = bd
	clone.Metadata = meta
	s.records[id] = &clone
	return true
}

// Lookup resolves an id, external id reference ("ns:id"), or exact
// title against the indices.
func (s *Store) Lookup(ref string) (*types.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.records[ref]; ok {
		return r, true
	}
	if i := strings.IndexByte(ref, ':'); i > 0 {
		if id, ok := s.byExternal[ref[:i]+"\x00"+ref[i+1:]]; ok {
			return s.records[id], true
		}
	}
	if title := textutil.NormalizeTitle(ref); len(title) >= minFingerprintTitle {
		if id, ok := s.byTitle[title]; ok {
			return s.records[id], true
		}
	}
	return nil, false
}

// Snapshot returns all records sorted newest first. The slice is owned
// by the caller; the records must be treated as read-only.
func (s *Store) Snapshot() []*types.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Published.Equal(out[j].Published) {
			return out[i].Published.After(out[j].Published)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// LastPaperDate is the latest published date among paper records.
func (s *Store) LastPaperDate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastPaperDate
}

func (s *Store) LastFetchTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastFetchTime
}

func (s *Store) SetLastFetchTime(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFetchTime = t
}

// Document captures the store for persistence.
func (s *Store) Document() *Document {
	return &Document{
		Papers:        s.Snapshot(),
		LastFetchTime: s.LastFetchTime(),
		LastPaperDate: s.LastPaperDate(),
	}
}

// Hydrate replaces the store contents from a persisted document,
// rebuilding the indices and watermarks.
func (s *Store) Hydrate(doc *Document) {
	if doc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*types.Record, len(doc.Papers))
	s.byExternal = map[string]string{}
	s.byTitle = map[string]string{}
	s.lastPaperDate = time.Time{}
	for _, r := range doc.Papers {
		if r == nil || r.ID == "" {
			continue
		}
		s.storeLocked(r)
	}
	s.lastFetchTime = doc.LastFetchTime
	if doc.LastPaperDate.After(s.lastPaperDate) {
		s.lastPaperDate = doc.LastPaperDate
	}
	s.evictLocked()
}
