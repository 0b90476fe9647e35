package whois

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFieldFindsFirstMatchingKey(t *testing.T) {
	raw := "Domain Name: EXAMPLE.COM\nOrganization: Example Org\nCreated: 1995-08-14T04:00:00Z\n"
	assert.Equal(t, "Example Org", extractField(raw, "organisation", "organization", "orgname"))
	assert.Equal(t, "1995-08-14T04:00:00Z", extractField(raw, "created"))
	assert.Equal(t, "", extractField(raw, "changed"))
}

func TestExtractFieldIsCaseInsensitive(t *testing.T) {
	raw := "ORGANISATION: Upper Case Org\n"
	assert.Equal(t, "Upper Case Org", extractField(raw, "organisation"))
}
