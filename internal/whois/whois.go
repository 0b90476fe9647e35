// Package whois looks up domain registration data by invoking the system
// "whois" binary, grounded on original_source/src/utils/whois.rs.
package whois

import (
	"context"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/BetterCallFirewall/urlscreen/internal/apierr"
)

// Result is the domain ownership and registration information extracted
// from a whois lookup.
type Result struct {
	Domain       string
	Organisation string
	Created      string
	Changed      string
}

// Fetcher runs whois lookups via the external "whois" command.
type Fetcher struct {
	log *zap.Logger
}

// New builds a Fetcher.
func New(log *zap.Logger) *Fetcher {
	return &Fetcher{log: log}
}

// Lookup runs "whois <domain>" and extracts organisation/created/changed
// fields from the raw output, tolerating the inconsistent field names used
// across whois servers.
func (f *Fetcher) Lookup(ctx context.Context, domain string) (*Result, error) {
	f.log.Info("performing whois lookup", zap.String("domain", domain))

	cmd := exec.CommandContext(ctx, "whois", domain)
	output, err := cmd.Output()
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return nil, apierr.Wrap(apierr.KindWhoisSubprocess, "failed to spawn whois command", err)
		}
		f.log.Warn("whois exited non-zero, parsing captured output anyway",
			zap.String("domain", domain), zap.Error(err))
	}

	raw := string(output)
	result := &Result{
		Domain:       domain,
		Organisation: extractField(raw, "organisation", "organization", "orgname"),
		Created:      extractField(raw, "created"),
		Changed:      extractField(raw, "changed"),
	}

	f.log.Debug("whois lookup complete",
		zap.Bool("has_organisation", result.Organisation != ""),
		zap.Bool("has_created", result.Created != ""),
		zap.Bool("has_changed", result.Changed != ""),
	)

	return result, nil
}

// extractField scans raw line-by-line for the first "<key>: value" line
// whose key (case-insensitively) matches one of keys, and returns the
// trimmed value.
func extractField(raw string, keys ...string) string {
	for _, line := range strings.Split(raw, "\n") {
		lower := strings.ToLower(line)
		for _, key := range keys {
			prefix := strings.ToLower(key) + ":"
			if strings.HasPrefix(lower, prefix) {
				parts := strings.SplitN(line, ":", 2)
				if len(parts) == 2 {
					return strings.TrimSpace(parts[1])
				}
			}
		}
	}
	return ""
}
