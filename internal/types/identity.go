package types

import (
	"github.com/techpulse/techpulse-backend/internal/textutil"
)

// Identity rules, strongest first. The first populated namespace decides
// the record id; records with no external identifier fall back to a
// normalized-title fingerprint.
var identityTiers = []struct {
	ns     string
	prefix string
}{
	{NSArxiv, "arxiv:"},
	{NSDOI, "doi:"},
	{NSSemanticScholar, "ss:"},
	{NSOpenAlex, "oa:"},
	{NSPubmed, "pmid:"},
	{NSDBLP, "dblp:"},
	{NSYouTube, "yt:"},
}

// IdentityKey computes the deterministic id for a record. It never
// returns ""; the fingerprint tier always applies.
func IdentityKey(r *Record) string {
	for _, tier := range identityTiers {
		if id := r.ExternalID(tier.ns); id != "" {
			return tier.prefix + id
		}
	}
	return "fp:" + textutil.Fingerprint(
		textutil.NormalizeTitle(r.Title),
		r.FirstAuthorLastName(),
		r.Published.Year(),
	)
}

// AssignID sets r.ID from the identity rules when unset. IDs are
// immutable once assigned.
func AssignID(r *Record) {
	if r.ID == "" {
		r.ID = IdentityKey(r)
	}
}
