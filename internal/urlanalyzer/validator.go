package urlanalyzer

import (
	"strings"

	"github.com/BetterCallFirewall/urlscreen/internal/apierr"
)

// MaxURLLength is the maximum allowable URL length, grounded on
// original_source/src/url_parser/url_validator.rs's MAX_URL_LENGTH.
const MaxURLLength = 2048

// ValidateURL checks the basic shape requirements a URL must meet before
// analysis: non-empty, within length bounds, http(s) scheme.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return apierr.New(apierr.KindInvalidURL, "URL cannot be empty")
	}
	if len(rawURL) > MaxURLLength {
		return apierr.New(apierr.KindInvalidURL, "URL exceeds maximum length")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return apierr.New(apierr.KindInvalidURL, "URL must start with http:// or https://")
	}
	return nil
}

func stripWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}
