package crawler

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// jsLocationRegexp catches the common window.location(.href)? = "..." and
// location.replace("...") redirect idioms that goquery's selector-based API
// can't express directly.
var jsLocationRegexp = regexp.MustCompile(`(?:window\.)?location(?:\.href)?\s*=\s*["']([^"']+)["']|location\.replace\(\s*["']([^"']+)["']\s*\)`)

// detectClientRedirect scans an HTML document for a meta-refresh tag or an
// inline JavaScript location redirect, returning the target URL if found.
func detectClientRedirect(body string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err == nil {
		if target, ok := metaRefreshTarget(doc); ok {
			return target, true
		}
	}

	if m := jsLocationRegexp.FindStringSubmatch(body); m != nil {
		for _, group := range m[1:] {
			if group != "" {
				return group, true
			}
		}
	}

	return "", false
}

func metaRefreshTarget(doc *goquery.Document) (string, bool) {
	var target string
	var found bool

	doc.Find("meta[http-equiv]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		equiv, _ := s.Attr("http-equiv")
		if !strings.EqualFold(equiv, "refresh") {
			return true
		}
		content, ok := s.Attr("content")
		if !ok {
			return true
		}
		if url, ok := parseRefreshContent(content); ok {
			target, found = url, true
			return false
		}
		return true
	})

	return target, found
}

// parseRefreshContent parses a meta-refresh "content" attribute of the form
// "5; url=https://example.com/next".
func parseRefreshContent(content string) (string, bool) {
	parts := strings.SplitN(content, ";", 2)
	if len(parts) != 2 {
		return "", false
	}
	rest := strings.TrimSpace(parts[1])
	idx := strings.IndexByte(rest, '=')
	if idx < 0 {
		return "", false
	}
	key := strings.TrimSpace(rest[:idx])
	if !strings.EqualFold(key, "url") {
		return "", false
	}
	value := strings.TrimSpace(rest[idx+1:])
	value = strings.Trim(value, `"'`)
	if value == "" {
		return "", false
	}
	return value, true
}
