package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  Type
	}{
		{"email", "alice@example.com", Email},
		{"phone", "+1 415-555-0199", Phone},
		{"bare word username", "jdoe123", Username},
		{"sentence falls to other", "hello there world", Other},
		{"empty behaves like username per upstream quirk", "", Username},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.value))
		})
	}
}

func TestClassifyPrefersEmailOverUsernameShape(t *testing.T) {
	assert.Equal(t, Email, Classify("bob@work.io"))
}
