// Package anonymizer replaces sensitive values recovered from a URL with
// innocuous stand-ins, grounded on original_source/src/utils/anonymizer.rs.
package anonymizer

import (
	"crypto/rand"
	"math/big"

	"go.uber.org/zap"

	"github.com/BetterCallFirewall/urlscreen/internal/classifier"
)

// anonymizedSentinel is the fixed replacement for Other/None values, per
// the classifier's lack of a safe-to-fake shape for them.
const anonymizedSentinel = "anonymized_value"

// Anonymizer replaces sensitive values with one of a small set of
// deterministic-looking fakes, picked at random per call, keyed strictly by
// the classifier's verdict so the replacement always reclassifies to the
// same kind (or None).
type Anonymizer struct {
	log           *zap.Logger
	fakeEmails    []string
	fakePhones    []string
	fakeUsernames []string
}

// New builds an Anonymizer with the default fake-value pools.
func New(log *zap.Logger) *Anonymizer {
	return &Anonymizer{
		log: log,
		fakeEmails: []string{
			"user@example.com",
			"test@example.com",
			"demo@example.com",
		},
		fakePhones: []string{
			"+1 555 0100",
			"+1 555 0101",
			"+1 555 0102",
		},
		fakeUsernames: []string{
			"testuser",
			"demouser",
			"exampleuser",
		},
	}
}

// AnonymizeValue replaces value with a fake appropriate to kind: a fixed
// pool for Email/Phone/Username, and the literal sentinel for Other/None.
// Never returns value itself.
func (a *Anonymizer) AnonymizeValue(value string, kind classifier.Type) string {
	a.log.Debug("anonymizing value", zap.String("kind", kind.String()))

	switch kind {
	case classifier.Email:
		replacement := a.fakeEmails[randomIndex(len(a.fakeEmails))]
		a.log.Info("replaced email", zap.String("replacement", replacement))
		return replacement

	case classifier.Phone:
		replacement := a.fakePhones[randomIndex(len(a.fakePhones))]
		a.log.Info("replaced phone", zap.String("replacement", replacement))
		return replacement

	case classifier.Username:
		replacement := a.fakeUsernames[randomIndex(len(a.fakeUsernames))]
		a.log.Info("replaced username", zap.String("replacement", replacement))
		return replacement

	default:
		a.log.Info("replaced value with sentinel")
		return anonymizedSentinel
	}
}

func randomIndex(n int) int {
	if n <= 1 {
		return 0
	}
	i, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(i.Int64())
}
