package urlanalyzer

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/BetterCallFirewall/urlscreen/internal/anonymizer"
	"github.com/BetterCallFirewall/urlscreen/internal/classifier"
)

// maxIdentifiers bounds how many sensitive-data identifiers a single URL's
// analysis will collect, grounded on original_source/src/url_parser/mod.rs's
// MAX_IDENTIFIERS.
const maxIdentifiers = 100

// minCandidateLength is the shortest candidate value worth attempting to
// decode as base64; shorter values are too likely to be noise.
const minCandidateLength = 8

// Identifier is a candidate value found in a URL (query parameter or path
// segment) that decoded to recognizable sensitive data.
type Identifier struct {
	Value           string // the original encoded value found in the URL
	DecodedValue    string // the decoded value, if decodable
	Classification  string // the sensitive-data kind, e.g. "email"
	AnonymizedValue string // anonymized replacement for the sensitive data
	Context         string // where it was found, e.g. "query parameter id"
}

// analyzePotentialBase64 decodes value as standard base64, checks whether
// the decoded text classifies as sensitive, and if so returns an Identifier
// with an anonymized replacement. Grounded on
// original_source/src/url_parser/identifier.rs's analyze_base64_internal.
func analyzePotentialBase64(log *zap.Logger, anon *anonymizer.Anonymizer, value, context string) *Identifier {
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil
	}

	if !utf8.Valid(decoded) {
		log.Debug("base64 decoded to non-utf8 bytes, skipping", zap.String("context", context))
		return nil
	}
	decodedStr := string(decoded)

	kind := classifier.Classify(decodedStr)
	if kind == classifier.None {
		return nil
	}

	log.Info("found sensitive data", zap.String("context", context), zap.String("kind", kind.String()))
	anonymized := anon.AnonymizeValue(decodedStr, kind)

	return &Identifier{
		Value:           value,
		DecodedValue:    decodedStr,
		Classification:  strings.ToLower(kind.String()),
		AnonymizedValue: anonymized,
		Context:         context,
	}
}
