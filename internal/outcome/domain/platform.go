package domain

import (
	"fmt"

	"github.com/allisson/conversions/internal/errors"
)

// Platform identifies a third-party conversion API target.
// Extending the enum requires a new write/read port implementation and a
// mapper branch; the exhaustive switches below flag anything left unmapped.
type Platform string

const (
	PlatformMeta   Platform = "meta"
	PlatformSnap   Platform = "snap"
	PlatformTikTok Platform = "tiktok"
)

// AllPlatforms returns every supported platform in canonical order.
// The first entry is the canonical platform used as the event-id derivation input.
func AllPlatforms() []Platform {
	return []Platform{PlatformMeta, PlatformSnap, PlatformTikTok}
}

// ParsePlatform converts a string to a Platform, failing fast on unknown values.
func ParsePlatform(value string) (Platform, error) {
	switch Platform(value) {
	case PlatformMeta, PlatformSnap, PlatformTikTok:
		return Platform(value), nil
	default:
		return "", errors.Wrap(ErrUnknownPlatform, fmt.Sprintf("value: %q", value))
	}
}

// ParsePlatforms converts a list of strings to platforms.
// An empty list resolves to all supported platforms.
func ParsePlatforms(values []string) ([]Platform, error) {
	if len(values) == 0 {
		return AllPlatforms(), nil
	}

	platforms := make([]Platform, 0, len(values))
	for _, value := range values {
		platform, err := ParsePlatform(value)
		if err != nil {
			return nil, err
		}
		platforms = append(platforms, platform)
	}
	return platforms, nil
}

// String returns the wire value of the platform.
func (p Platform) String() string {
	return string(p)
}
