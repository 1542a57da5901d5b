package diagnosis

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Label is a tag returned by the image-labeling service.
// Score is in [0,1]; sequences keep the service's descending-confidence order.
type Label struct {
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// plantKeywords gate the matcher: an image whose labels mention none of them
// is not treated as a plant.
var plantKeywords = []string{"plant", "leaf", "tree", "flower", "fruit", "vegetation", "foliage"}

// IsPlant reports whether any label mentions a plant keyword.
func IsPlant(labels []Label) bool {
	for _, l := range labels {
		d := normalize(l.Description)
		for _, kw := range plantKeywords {
			if strings.Contains(d, kw) {
				return true
			}
		}
	}
	return false
}

// TopLabels returns at most n labels; n <= 0 returns all of them.
func TopLabels(labels []Label, n int) []Label {
	if n <= 0 || n >= len(labels) {
		return labels
	}
	return labels[:n]
}

// Descriptions joins label descriptions with ", ".
func Descriptions(labels []Label) string {
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, l.Description)
	}
	return strings.Join(parts, ", ")
}

func normalize(s string) string {
	s = norm.NFKC.String(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
