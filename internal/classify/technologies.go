package classify

import (
	"sort"
	"strings"
)

// technologyKeywords maps a normalized technology tag to the phrases
// that indicate it in a title or summary. Matching is case-insensitive
// and word-boundary-agnostic on purpose: upstream titles hyphenate and
// concatenate these terms freely.
var technologyKeywords = map[string][]string{
	"Large Language Models":  {"large language model", "llm", "gpt", "transformer language", "foundation model"},
	"Generative AI":          {"generative ai", "diffusion model", "text-to-image", "image generation", "text-to-video"},
	"Reinforcement Learning": {"reinforcement learning", "rlhf", "policy gradient", "q-learning"},
	"Computer Vision":        {"computer vision", "object detection", "image segmentation", "visual recognition"},
	"Speech Recognition":     {"speech recognition", "speech-to-text", "automatic transcription", "asr"},
	"Robotics":               {"robotics", "robot learning", "manipulation", "humanoid robot"},
	"Autonomous Vehicles":    {"autonomous driving", "self-driving", "autonomous vehicle"},
	"Quantum Computing":      {"quantum computing", "quantum processor", "qubit", "quantum error correction"},
	"Edge Computing":         {"edge computing", "edge inference", "on-device"},
	"Blockchain":             {"blockchain", "smart contract", "decentralized ledger"},
	"AR/VR":                  {"augmented reality", "virtual reality", "mixed reality", "spatial computing"},
	"Biotechnology":          {"crispr", "gene editing", "protein folding", "synthetic biology"},
	"Brain-Computer Interfaces": {"brain-computer interface", "neural interface", "neuroprosthetic"},
	"Semiconductors":         {"semiconductor", "chip design", "photonic chip", "asic", "gpu architecture"},
	"Energy Storage":         {"battery technology", "solid-state battery", "energy storage", "grid storage"},
	"Fusion Energy":          {"nuclear fusion", "fusion reactor", "tokamak", "plasma confinement"},
	"Vector Databases":       {"vector database", "vector search", "similarity search", "embedding index"},
	"Retrieval-Augmented Generation": {"retrieval-augmented", "retrieval augmented", "rag pipeline"},
	"AI Agents":              {"ai agent", "agentic", "multi-agent", "tool use"},
	"Federated Learning":     {"federated learning", "privacy-preserving learning"},
	"Knowledge Graphs":       {"knowledge graph", "graph embedding", "entity linking"},
	"Cybersecurity":          {"zero-day", "threat detection", "intrusion detection", "ransomware"},
	"Cloud Native":           {"kubernetes", "serverless", "service mesh", "container orchestration"},
	"Synthetic Data":         {"synthetic data", "data augmentation pipeline"},
	"Digital Twins":          {"digital twin", "simulation model"},
	"3D Printing":            {"additive manufacturing", "3d printing", "3d-printed"},
}

// Technologies extracts the normalized technology tags mentioned in the
// given text fields.
func Technologies(texts ...string) []string {
	haystack := strings.ToLower(strings.Join(texts, " "))
	if haystack == "" {
		return nil
	}
	var out []string
	for tech, keywords := range technologyKeywords {
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				out = append(out, tech)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// KnownTechnologies returns the canonical technology vocabulary.
func KnownTechnologies() []string {
	out := make([]string, 0, len(technologyKeywords))
	for tech := range technologyKeywords {
		out = append(out, tech)
	}
	sort.Strings(out)
	return out
}
