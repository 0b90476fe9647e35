package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BetterCallFirewall/urlscreen/internal/urlanalyzer"
)

func TestURLToSnakeCase(t *testing.T) {
	assert.Equal(t, "example_com_path", urlToSnakeCase("https://example.com/path"))
	assert.Equal(t, "sub_example_com", urlToSnakeCase("http://sub.example.com"))
}

func TestExtractDomain(t *testing.T) {
	assert.Equal(t, "example.com", extractDomain("https://example.com/a?b=c"))
	assert.Equal(t, "", extractDomain("://not a url"))
}

func TestDomainList(t *testing.T) {
	domains := map[string]struct{}{"a.com": {}, "b.com": {}}
	list := domainList(domains)
	assert.ElementsMatch(t, []string{"a.com", "b.com"}, list)
}

func TestToModelIdentifiers(t *testing.T) {
	ids := []urlanalyzer.Identifier{
		{Value: "enc", DecodedValue: "dec", Classification: "email", AnonymizedValue: "fake@example.com", Context: "query parameter id"},
	}
	out := toModelIdentifiers(ids)
	if assert.Len(t, out, 1) {
		assert.Equal(t, "email", out[0].ValueClassification)
		assert.Equal(t, "fake@example.com", out[0].ReplacementValue)
	}
}
