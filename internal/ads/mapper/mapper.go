// Package mapper translates platform-agnostic outcome events into each
// platform's event payload shape. All functions are pure; the closed enums
// make every switch exhaustive, so an unmapped combination is a programming
// error rather than something to recover from at runtime.
package mapper

import (
	"github.com/allisson/conversions/internal/ads/domain"
	outcomedomain "github.com/allisson/conversions/internal/outcome/domain"
)

// ForPlatform maps the event to the payload shape of the given platform.
func ForPlatform(platform outcomedomain.Platform, event *outcomedomain.OutcomeEvent) domain.Payload {
	switch platform {
	case outcomedomain.PlatformMeta:
		return ForMeta(event)
	case outcomedomain.PlatformSnap:
		return ForSnap(event)
	case outcomedomain.PlatformTikTok:
		return ForTikTok(event)
	default:
		return nil
	}
}
