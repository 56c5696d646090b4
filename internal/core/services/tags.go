package services

import "strings"

// tagKeywords maps each category tag to the question words that imply it.
// Order matters: categories are checked in declaration order and at most
// maxTags are kept.
var tagKeywords = []struct {
	tag      string
	keywords []string
}{
	{"implementation", []string{"how", "build", "create", "develop"}},
	{"explanation", []string{"what", "explain", "describe", "why"}},
	{"troubleshooting", []string{"error", "bug", "fix", "issue", "problem"}},
	{"design", []string{"architecture", "design", "pattern", "structure"}},
}

const maxTags = 3

// extractTags derives category tags from the question text by keyword
// matching. A crude heuristic, but enough for topical memory lookup.
func extractTags(query string) []string {
	lowered := strings.ToLower(query)

	var tags []string
	for _, category := range tagKeywords {
		for _, keyword := range category.keywords {
			if strings.Contains(lowered, keyword) {
				tags = append(tags, category.tag)
				break
			}
		}
		if len(tags) == maxTags {
			break
		}
	}

	return tags
}
