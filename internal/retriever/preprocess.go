package retriever

import "strings"

// abbreviations maps common legal shorthand to the full form the corpus uses.
// Matching is case-insensitive and token-based so "IPC" inside a longer word
// is left alone.
var abbreviations = map[string]string{
	"sec.":  "section",
	"sec":   "section",
	"s.":    "section",
	"art.":  "article",
	"art":   "article",
	"ipc":   "indian penal code",
	"crpc":  "code of criminal procedure",
	"cpc":   "code of civil procedure",
	"crpc.": "code of criminal procedure",
	"hma":   "hindu marriage act",
	"nia":   "negotiable instruments act",
	"poa":   "power of attorney",
	"vs":    "versus",
	"vs.":   "versus",
	"u/s":   "under section",
}

// preprocess normalizes a query for embedding and keyword search: whitespace
// is collapsed and legal abbreviations are expanded to their statutory names.
func preprocess(query string) string {
	words := strings.Fields(query)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if full, ok := abbreviations[strings.ToLower(w)]; ok {
			out = append(out, full)
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}
