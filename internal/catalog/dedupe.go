package catalog

import (
	"time"

	"github.com/techpulse/techpulse-backend/internal/textutil"
	"github.com/techpulse/techpulse-backend/internal/types"
)

// minFingerprintTitle is the shortest title the normalized-title pass
// applies to. Shorter titles collide too easily to be trusted.
const minFingerprintTitle = 5

// CollapseBatch folds duplicates within one fetch batch before the
// catalog sees them. Records collide when they share an identity key,
// any external id, or a normalized title. The survivor keeps the
// earlier batch position's id and absorbs the other record's fields.
func CollapseBatch(in []*types.Record) []*types.Record {
	if len(in) < 2 {
		return in
	}
	var out []*types.Record
	byKey := map[string]int{}

	keysOf := func(r *types.Record) []string {
		keys := []string{types.IdentityKey(r)}
		for ns, id := range r.ExternalIDs {
			keys = append(keys, ns+"\x00"+id)
		}
		if title := textutil.NormalizeTitle(r.Title); len(title) >= minFingerprintTitle {
			keys = append(keys, "title\x00"+title)
		}
		return keys
	}

	for _, r := range in {
		if r == nil {
			continue
		}
		match := -1
		keys := keysOf(r)
		for _, k := range keys {
			if i, ok := byKey[k]; ok {
				match = i
				break
			}
		}
		if match < 0 {
			out = append(out, r)
			match = len(out) - 1
		} else {
			out[match] = mergeRecords(out[match], r)
		}
		for _, k := range keysOf(out[match]) {
			byKey[k] = match
		}
	}
	return out
}

// mergeRecords combines an existing record with an incoming duplicate
// into a fresh record. The existing record's id wins; sets union,
// numeric counters take the maximum, published keeps the earliest date
// (preferring the higher-fidelity variant of the same date), updated
// keeps the latest, and the more complete summary survives.
func mergeRecords(existing, incoming *types.Record) *types.Record {
	m := *existing

	m.Published, m.DateFidelity = mergePublished(
		existing.Published, existing.DateFidelity,
		incoming.Published, incoming.DateFidelity,
	)
	if incoming.Updated.After(m.Updated) {
		m.Updated = incoming.Updated
	}
	if incoming.Citations > m.Citations {
		m.Citations = incoming.Citations
	}
	if len(incoming.Summary) > len(m.Summary) {
		m.Summary = incoming.Summary
	}
	if m.Title == "" {
		m.Title = incoming.Title
	}
	if m.Link == "" {
		m.Link = incoming.Link
	}
	if m.PDFLink == "" {
		m.PDFLink = incoming.PDFLink
	}
	if m.Venue == "" {
		m.Venue = incoming.Venue
	}
	if len(m.Authors) == 0 {
		m.Authors = incoming.Authors
	}

	m.Tags = unionStrings(existing.Tags, incoming.Tags)
	m.Categories = unionStrings(existing.Categories, incoming.Categories)
	m.Technologies = unionStrings(existing.Technologies, incoming.Technologies)
	m.Industries = unionStrings(existing.Industries, incoming.Industries)

	if len(incoming.ExternalIDs) > 0 {
		ids := make(map[string]string, len(existing.ExternalIDs)+len(incoming.ExternalIDs))
		for ns, id := range existing.ExternalIDs {
			ids[ns] = id
		}
		for ns, id := range incoming.ExternalIDs {
			if _, ok := ids[ns]; !ok {
				ids[ns] = id
			}
		}
		m.ExternalIDs = ids
	}
	if len(incoming.Metadata) > 0 {
		meta := make(map[string]any, len(existing.Metadata)+len(incoming.Metadata))
		for k, v := range existing.Metadata {
			meta[k] = v
		}
		for k, v := range incoming.Metadata {
			if _, ok := meta[k]; !ok {
				meta[k] = v
			}
		}
		m.Metadata = meta
	}
	return &m
}

var fidelityRank = map[types.DateFidelity]int{
	types.FidelityYear:  1,
	types.FidelityMonth: 2,
	types.FidelityDay:   3,
}

// mergePublished keeps the earliest date, except when the earlier value
// is just a coarser rendering of the finer one (a year-only source
// reports January 1 of the same year a day-fidelity source pins down).
func mergePublished(at time.Time, af types.DateFidelity, bt time.Time, bf types.DateFidelity) (time.Time, types.DateFidelity) {
	switch {
	case at.IsZero():
		return bt, bf
	case bt.IsZero():
		return at, af
	}
	coarse, coarseF, fine, fineF := at, af, bt, bf
	if fidelityRank[bf] < fidelityRank[af] {
		coarse, coarseF, fine, fineF = bt, bf, at, af
	}
	if coarseF != fineF && sameCoarseDate(coarse, coarseF, fine) {
		return fine, fineF
	}
	if bt.Before(at) {
		return bt, bf
	}
	return at, af
}

func sameCoarseDate(coarse time.Time, f types.DateFidelity, fine time.Time) bool {
	switch f {
	case types.FidelityYear:
		return coarse.Year() == fine.Year()
	case types.FidelityMonth:
		return coarse.Year() == fine.Year() && coarse.Month() == fine.Month()
	}
	return false
}

func unionStrings(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	if len(a) == 0 {
		return b
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
