package urlanalyzer

import "net/url"

// ReconstructURL rebuilds a URL from original, replacing its query string
// entirely with replacementParams. Path segments are left untouched, even
// if they carried sensitive data. Grounded on
// original_source/src/url_parser/url_reconstructor.rs's reconstruct_url.
func ReconstructURL(original *url.URL, replacementParams url.Values) string {
	rebuilt := *original
	rebuilt.RawQuery = replacementParams.Encode()
	return rebuilt.String()
}
