package orchestrator

import "strings"

// urlToSnakeCase derives a filesystem-safe base name from a URL, grounded
// on original_source/src/utils/mod.rs's url_to_snake_case.
func urlToSnakeCase(rawURL string) string {
	s := strings.ToLower(rawURL)
	s = strings.ReplaceAll(s, "https", "")
	s = strings.ReplaceAll(s, "http", "")
	s = strings.ReplaceAll(s, "://", "")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	s = b.String()

	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return strings.Trim(s, "_")
}
