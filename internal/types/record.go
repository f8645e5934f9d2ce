package types

import (
	"time"
)

type RecordType string

const (
	RecordPaper   RecordType = "paper"
	RecordNews    RecordType = "news"
	RecordGitHub  RecordType = "github"
	RecordPatent  RecordType = "patent"
	RecordJob     RecordType = "job"
	RecordPodcast RecordType = "podcast"
)

// DateFidelity records how precise the upstream publication date was.
// Some sources only report a year; merges prefer higher fidelity.
type DateFidelity string

const (
	FidelityYear  DateFidelity = "year"
	FidelityMonth DateFidelity = "month"
	FidelityDay   DateFidelity = "day"
)

// External identifier namespaces recognized across sources.
const (
	NSArxiv           = "arxiv"
	NSDOI             = "doi"
	NSSemanticScholar = "semanticScholar"
	NSOpenAlex        = "openAlex"
	NSPubmed          = "pubmed"
	NSCrossref        = "crossref"
	NSDBLP            = "dblp"
	NSYouTube         = "youtube"
)

// Record is the canonical schema every source normalizes into. Papers,
// news items, repositories, patents, job postings and podcast episodes
// all share it; source-specific fields go into Metadata.
type Record struct {
	ID           string            `json:"id"`
	Type         RecordType        `json:"type"`
	Title        string            `json:"title"`
	Summary      string            `json:"summary,omitempty"`
	Published    time.Time         `json:"published"`
	Updated      time.Time         `json:"updated,omitempty"`
	DateFidelity DateFidelity      `json:"dateFidelity,omitempty"`
	Authors      []string          `json:"authors,omitempty"`
	Link         string            `json:"link,omitempty"`
	PDFLink      string            `json:"pdfLink,omitempty"`
	Venue        string            `json:"venue,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Categories   []string          `json:"categories,omitempty"`
	Citations    int               `json:"citations"`
	ExternalIDs  map[string]string `json:"externalIds,omitempty"`
	Technologies []string          `json:"technologies,omitempty"`
	Industries   []string          `json:"industries,omitempty"`
	Metadata     map[string]any    `json:"metadata,omitempty"`
}

// UpdatedOrPublished returns Updated, defaulting to Published.
func (r *Record) UpdatedOrPublished() time.Time {
	if r.Updated.IsZero() {
		return r.Published
	}
	return r.Updated
}

// ExternalID returns the identifier for a namespace, "" when absent.
func (r *Record) ExternalID(ns string) string {
	if r.ExternalIDs == nil {
		return ""
	}
	return r.ExternalIDs[ns]
}

// SetExternalID records an identifier, allocating the map lazily.
func (r *Record) SetExternalID(ns, id string) {
	if id == "" {
		return
	}
	if r.ExternalIDs == nil {
		r.ExternalIDs = map[string]string{}
	}
	r.ExternalIDs[ns] = id
}

// HasTechnology reports membership in the normalized technology set.
func (r *Record) HasTechnology(tech string) bool {
	for _, t := range r.Technologies {
		if t == tech {
			return true
		}
	}
	return false
}

// FirstAuthorLastName is used by the title fingerprint identity rule.
func (r *Record) FirstAuthorLastName() string {
	if len(r.Authors) == 0 {
		return ""
	}
	name := r.Authors[0]
	last := name
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == ' ' {
			last = name[i+1:]
			break
		}
	}
	return last
}
