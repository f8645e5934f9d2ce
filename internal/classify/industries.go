package classify

import (
	"sort"
	"strings"
)

// industryKeywords maps an industry label to indicator phrases. A record
// may belong to several industries at once.
var industryKeywords = map[string][]string{
	"Healthcare":        {"clinical", "medical", "diagnosis", "patient", "drug discovery", "radiology", "healthcare"},
	"Finance":           {"trading", "banking", "fintech", "fraud detection", "credit risk", "payments"},
	"Manufacturing":     {"factory", "assembly line", "industrial automation", "supply chain", "manufacturing"},
	"Transportation":    {"autonomous driving", "logistics", "fleet", "aviation", "railway", "shipping"},
	"Energy":            {"power grid", "renewable", "solar", "wind turbine", "battery", "nuclear", "energy"},
	"Agriculture":       {"crop", "farming", "agricultural", "precision agriculture", "livestock"},
	"Education":         {"tutoring", "learning platform", "classroom", "curriculum", "education"},
	"Retail":            {"e-commerce", "recommendation system", "inventory", "retail", "consumer"},
	"Defense":           {"military", "defense", "surveillance", "battlefield"},
	"Media":             {"streaming", "content generation", "journalism", "advertising", "entertainment"},
	"Legal":             {"contract analysis", "legal", "compliance", "regulatory"},
	"Telecommunications": {"5g", "6g", "network infrastructure", "spectrum", "telecom"},
	"Construction":      {"construction", "building information", "infrastructure project"},
	"Pharmaceuticals":   {"pharmaceutical", "clinical trial", "vaccine", "biotech", "molecule"},
}

// Industries classifies the given text fields into industry labels via
// keyword match over title + summary + tags.
func Industries(texts ...string) []string {
	haystack := strings.ToLower(strings.Join(texts, " "))
	if haystack == "" {
		return nil
	}
	var out []string
	for industry, keywords := range industryKeywords {
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				out = append(out, industry)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// KnownIndustries returns the industry vocabulary.
func KnownIndustries() []string {
	out := make([]string, 0, len(industryKeywords))
	for industry := range industryKeywords {
		out = append(out, industry)
	}
	sort.Strings(out)
	return out
}
