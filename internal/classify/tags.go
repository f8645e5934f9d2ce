package classify

import (
	"strings"
)

// Canonical tags for upstream category codes. arXiv codes dominate the
// table; other sources map their own vocabularies through the same
// helper so downstream only sees the canonical set.
var categoryTags = map[string]string{
	"cs.ai":          "Artificial Intelligence",
	"cs.lg":          "Machine Learning",
	"cs.cl":          "Natural Language Processing",
	"cs.cv":          "Computer Vision",
	"cs.ne":          "Neural Computing",
	"cs.ro":          "Robotics",
	"cs.cr":          "Security & Cryptography",
	"cs.dc":          "Distributed Computing",
	"cs.db":          "Databases",
	"cs.se":          "Software Engineering",
	"cs.hc":          "Human-Computer Interaction",
	"cs.ir":          "Information Retrieval",
	"cs.ar":          "Hardware Architecture",
	"cs.os":          "Operating Systems",
	"cs.pl":          "Programming Languages",
	"stat.ml":        "Machine Learning",
	"eess.as":        "Audio & Speech Processing",
	"eess.iv":        "Image & Video Processing",
	"eess.sp":        "Signal Processing",
	"quant-ph":       "Quantum Computing",
	"q-bio.gn":       "Genomics",
	"q-bio.nc":       "Neuroscience",
	"cond-mat.supr":  "Superconductivity",
	"physics.optics": "Optics & Photonics",
}

// Subject-class prefixes contribute a general domain tag.
var subjectPrefixTags = map[string]string{
	"cs":       "Computer Science",
	"math":     "Mathematics",
	"stat":     "Statistics",
	"physics":  "Physics",
	"q-bio":    "Biology",
	"q-fin":    "Finance",
	"eess":     "Electrical Engineering",
	"cond-mat": "Condensed Matter",
	"econ":     "Economics",
	"astro-ph": "Astrophysics",
}

// TagsForCategories maps upstream classification codes to the canonical
// tag set. Unknown codes contribute nothing beyond their subject prefix.
func TagsForCategories(categories []string) []string {
	seen := map[string]bool{}
	var tags []string
	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}
	for _, raw := range categories {
		code := strings.ToLower(strings.TrimSpace(raw))
		if code == "" {
			continue
		}
		add(categoryTags[code])
		prefix := code
		if i := strings.IndexAny(code, "."); i > 0 {
			prefix = code[:i]
		}
		add(subjectPrefixTags[prefix])
	}
	return tags
}
