package anonymizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/BetterCallFirewall/urlscreen/internal/classifier"
)

func TestAnonymizeValueEmail(t *testing.T) {
	a := New(zap.NewNop())
	result := a.AnonymizeValue("someone@secret.org", classifier.Email)
	assert.Contains(t, result, "@")
	assert.True(t, strings.HasSuffix(result, "example.com"))
	assert.Equal(t, classifier.Email, classifier.Classify(result))
}

func TestAnonymizeValuePhone(t *testing.T) {
	a := New(zap.NewNop())
	result := a.AnonymizeValue("+15551234567", classifier.Phone)
	assert.Equal(t, classifier.Phone, classifier.Classify(result))
}

func TestAnonymizeValueUsername(t *testing.T) {
	a := New(zap.NewNop())
	result := a.AnonymizeValue("jdoe_42", classifier.Username)
	assert.NotContains(t, result, "@")
	assert.Equal(t, classifier.Username, classifier.Classify(result))
}

func TestAnonymizeValueOtherReturnsSentinel(t *testing.T) {
	a := New(zap.NewNop())
	result := a.AnonymizeValue("hello there world", classifier.Other)
	assert.Equal(t, "anonymized_value", result)
}

func TestAnonymizeValueNoneReturnsSentinel(t *testing.T) {
	a := New(zap.NewNop())
	result := a.AnonymizeValue("", classifier.None)
	assert.Equal(t, "anonymized_value", result)
}

func TestAnonymizeValueNeverReturnsInput(t *testing.T) {
	a := New(zap.NewNop())
	for _, tc := range []struct {
		value string
		kind  classifier.Type
	}{
		{"someone@secret.org", classifier.Email},
		{"+15551234567", classifier.Phone},
		{"jdoe_42", classifier.Username},
		{"hello there world", classifier.Other},
	} {
		assert.NotEqual(t, tc.value, a.AnonymizeValue(tc.value, tc.kind))
	}
}
