package extension

import (
	"fmt"

	"github.com/hashicorp/go-version"
)

// parseVersion parses a dotted numeric version. Missing components count as
// zero and any prerelease or build suffix is ignored.
func parseVersion(v string) (*version.Version, error) {
	parsed, err := version.NewVersion(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidVersion, v, err)
	}
	return parsed.Core(), nil
}

// checkHostVersion verifies host lies within md's inclusive bounds.
func checkHostVersion(host string, md Metadata) error {
	if md.MinVersion == "" && md.MaxVersion == "" {
		return nil
	}

	hv, err := parseVersion(host)
	if err != nil {
		return fmt.Errorf("host version: %w", err)
	}

	if md.MinVersion != "" {
		minV, err := parseVersion(md.MinVersion)
		if err != nil {
			return fmt.Errorf("minVersion of %s: %w", md.Name, err)
		}
		if hv.LessThan(minV) {
			return fmt.Errorf("%w: %s requires >= %s, host is %s", ErrVersionTooLow, md.Name, md.MinVersion, host)
		}
	}

	if md.MaxVersion != "" {
		maxV, err := parseVersion(md.MaxVersion)
		if err != nil {
			return fmt.Errorf("maxVersion of %s: %w", md.Name, err)
		}
		if hv.GreaterThan(maxV) {
			return fmt.Errorf("%w: %s requires <= %s, host is %s", ErrVersionTooHigh, md.Name, md.MaxVersion, host)
		}
	}
	return nil
}
