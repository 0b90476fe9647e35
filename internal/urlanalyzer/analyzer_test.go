package urlanalyzer

import (
	"encoding/base64"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BetterCallFirewall/urlscreen/internal/anonymizer"
)

func newTestAnalyzer() *Analyzer {
	return New(zap.NewNop(), anonymizer.New(zap.NewNop()))
}

func TestValidateURL(t *testing.T) {
	assert.NoError(t, ValidateURL("https://example.com/path"))
	assert.Error(t, ValidateURL(""))
	assert.Error(t, ValidateURL("ftp://example.com"))
}

func TestAnalyzeStripsWWWAndExtractsDomain(t *testing.T) {
	a := newTestAnalyzer()
	result, err := a.Analyze("https://www.example.com/a/b?x=1")
	require.NoError(t, err)
	assert.Equal(t, "example.com", result.Domain)
}

func TestAnalyzeFindsBase64SensitiveQueryParam(t *testing.T) {
	a := newTestAnalyzer()
	encoded := base64.StdEncoding.EncodeToString([]byte("alice@example.com"))
	result, err := a.Analyze("https://example.com/?id=" + url.QueryEscape(encoded))
	require.NoError(t, err)
	require.Len(t, result.Identifiers, 1)
	assert.Equal(t, "alice@example.com", result.Identifiers[0].DecodedValue)
	assert.Contains(t, result.AnonymizedURL, "example.com")
}

func TestAnalyzeCollectsReferencedURLParam(t *testing.T) {
	a := newTestAnalyzer()
	result, err := a.Analyze("https://example.com/?redirect=https://evil.test/x")
	require.NoError(t, err)
	assert.Contains(t, result.Collection.UniqueDomains, "evil.test")
	assert.Equal(t, "https://evil.test/x", result.Collection.ParameterURLs["redirect"])
}

func TestAnalyzePathSegmentsNeverMutateURL(t *testing.T) {
	a := newTestAnalyzer()
	encoded := base64.StdEncoding.EncodeToString([]byte("bob@example.com"))
	result, err := a.Analyze("https://example.com/" + encoded + "/page")
	require.NoError(t, err)
	require.Len(t, result.Identifiers, 1)
	assert.Equal(t, "path segment", result.Identifiers[0].Context)
	assert.Contains(t, result.AnonymizedURL, encoded)
}
