// Package urlanalyzer validates and analyzes URLs for embedded sensitive
// data, grounded on original_source/src/url_parser/{mod,identifier,
// url_validator,url_reconstructor}.rs.
package urlanalyzer

import (
	"encoding/base64"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/BetterCallFirewall/urlscreen/internal/anonymizer"
	"github.com/BetterCallFirewall/urlscreen/internal/apierr"
)

// urlParamKeys is the set of query parameter names treated as carrying a
// referenced URL, grounded on original_source/src/url_parser/mod.rs's
// matching arm in ParsedUrl::new.
var urlParamKeys = map[string]struct{}{
	"url": {}, "redirect": {}, "redirectUrl": {}, "redirect_uri": {},
	"callback": {}, "return": {}, "next": {}, "target": {}, "destination": {},
	"returnTo": {}, "successUrl": {}, "failureUrl": {}, "href": {}, "link": {},
	"referrer": {}, "referer": {},
}

// Collection tracks every URL discovered while analyzing the original one:
// the input, its anonymized form, any URLs referenced from query
// parameters, and all unique domains encountered.
type Collection struct {
	OriginalURL    string
	AnonymizedURL  string
	ReferencedURLs []string
	UniqueDomains  map[string]struct{}
	ParameterURLs  map[string]string // parameter name -> referenced URL
}

func newCollection(originalURL string) *Collection {
	c := &Collection{
		OriginalURL:   originalURL,
		AnonymizedURL: originalURL,
		UniqueDomains: make(map[string]struct{}),
		ParameterURLs: make(map[string]string),
	}
	if parsed, err := url.Parse(originalURL); err == nil && parsed.Hostname() != "" {
		c.UniqueDomains[stripWWW(parsed.Hostname())] = struct{}{}
	}
	return c
}

func (c *Collection) addReferencedURL(ref, parameterName string) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return
	}
	c.ReferencedURLs = append(c.ReferencedURLs, ref)
	if parsed.Hostname() != "" {
		c.UniqueDomains[stripWWW(parsed.Hostname())] = struct{}{}
	}
	if parameterName != "" {
		c.ParameterURLs[parameterName] = ref
	}
}

// ParsedURL is the result of analyzing a URL for sensitive data and
// related references.
type ParsedURL struct {
	Domain         string
	Identifiers    []Identifier
	AnonymizedURL  string
	DecodedURL     string
	ReplacementURL string
	Collection     *Collection
}

// Analyzer validates and analyzes URLs, anonymizing any sensitive data it
// finds embedded in query parameters or path segments.
type Analyzer struct {
	log  *zap.Logger
	anon *anonymizer.Anonymizer
}

// New builds an Analyzer.
func New(log *zap.Logger, anon *anonymizer.Anonymizer) *Analyzer {
	return &Analyzer{log: log, anon: anon}
}

// Analyze validates and parses rawURL, extracting any base64-encoded
// sensitive data from its query parameters and path segments, and returns
// the parsed result with an anonymized URL and discovered references.
func (a *Analyzer) Analyze(rawURL string) (*ParsedURL, error) {
	if err := ValidateURL(rawURL); err != nil {
		return nil, err
	}

	collection := newCollection(rawURL)

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindInvalidURL, "failed to parse URL", err)
	}

	domain := stripWWW(parsed.Hostname())
	a.log.Debug("parsed URL", zap.String("domain", domain))

	var identifiers []Identifier
	replacementParams := url.Values{}

	query := parsed.Query()
	for key, values := range query {
		replacementParams[key] = append([]string(nil), values...)
		for i, value := range values {
			if _, isURLParam := urlParamKeys[key]; isURLParam {
				a.collectReferencedURL(collection, parsed, key, value)
			}

			if len(identifiers) >= maxIdentifiers {
				a.log.Warn("maximum number of identifiers reached, skipping remaining parameters")
				break
			}

			if len(value) < minCandidateLength {
				continue
			}

			if id := analyzePotentialBase64(a.log, a.anon, value, "query parameter "+key); id != nil {
				identifiers = append(identifiers, *id)
				replacementParams[key][i] = base64.StdEncoding.EncodeToString([]byte(id.AnonymizedValue))
			}
		}
	}

	// Path segments are identified but never substituted, preserving URL
	// structure (original_source/src/url_parser/mod.rs notes this
	// explicitly). Segments containing "." are treated as file-like and
	// skipped, along with any candidate shorter than minCandidateLength.
	for _, segment := range pathSegments(parsed.Path) {
		if len(identifiers) >= maxIdentifiers {
			a.log.Warn("maximum number of identifiers reached, skipping remaining path segments")
			break
		}
		if strings.Contains(segment, ".") || len(segment) < minCandidateLength {
			continue
		}
		if id := analyzePotentialBase64(a.log, a.anon, segment, "path segment"); id != nil {
			identifiers = append(identifiers, *id)
		}
	}

	anonymizedURLString := ReconstructURL(parsed, replacementParams)
	collection.AnonymizedURL = anonymizedURLString

	decodedURL := substituteIdentifiers(rawURL, identifiers, func(id Identifier) string { return id.DecodedValue })
	replacementURL := substituteIdentifiers(rawURL, identifiers, func(id Identifier) string { return id.AnonymizedValue })

	a.log.Info("URL analysis complete", zap.Int("identifiers", len(identifiers)))

	return &ParsedURL{
		Domain:         domain,
		Identifiers:    identifiers,
		AnonymizedURL:  anonymizedURLString,
		DecodedURL:     decodedURL,
		ReplacementURL: replacementURL,
		Collection:     collection,
	}, nil
}

// substituteIdentifiers returns rawURL with each Identifier's raw value
// textually replaced, in discovery order, by pick(id). Each substitution
// only touches the first remaining occurrence of the raw value, applied
// independently per Identifier, per original_source/src/url_parser/mod.rs's
// decoded_url/replacement_url construction.
func substituteIdentifiers(rawURL string, identifiers []Identifier, pick func(Identifier) string) string {
	out := rawURL
	for _, id := range identifiers {
		out = strings.Replace(out, id.Value, pick(id), 1)
	}
	return out
}

func (a *Analyzer) collectReferencedURL(collection *Collection, parsed *url.URL, key, value string) {
	switch {
	case strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://"):
		collection.addReferencedURL(value, key)
	case strings.HasPrefix(value, "/"):
		base := parsed.Scheme + "://" + parsed.Host
		collection.addReferencedURL(base+value, key)
	}
}

func pathSegments(path string) []string {
	var segments []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				segments = append(segments, path[start:i])
			}
			start = i + 1
		}
	}
	return segments
}
