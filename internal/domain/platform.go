package domain

import (
	"net/url"
	"regexp"
	"strings"
)

// Platform represents the source site of a download URL
type Platform string

const (
	PlatformYouTube   Platform = "youtube"
	PlatformFacebook  Platform = "facebook"
	PlatformTikTok    Platform = "tiktok"
	PlatformInstagram Platform = "instagram"
	PlatformTwitter   Platform = "twitter"
	PlatformOther     Platform = "other"
)

// platformPatterns maps each platform to the host+path patterns that
// identify it. Matching runs against the lowercased host with common
// mobile prefixes stripped, joined with the URL path.
var platformPatterns = map[Platform][]*regexp.Regexp{
	PlatformYouTube: {
		regexp.MustCompile(`^youtube\.com/watch`),
		regexp.MustCompile(`^youtube\.com/embed/`),
		regexp.MustCompile(`^youtube\.com/shorts/`),
		regexp.MustCompile(`^youtu\.be/`),
	},
	PlatformFacebook: {
		regexp.MustCompile(`^facebook\.com/`),
		regexp.MustCompile(`^fb\.watch/`),
		regexp.MustCompile(`^fb\.com/`),
	},
	PlatformTikTok: {
		regexp.MustCompile(`^tiktok\.com/@[^/]+/video/`),
		regexp.MustCompile(`^tiktok\.com/t/`),
		regexp.MustCompile(`^vm\.tiktok\.com/`),
	},
	PlatformInstagram: {
		regexp.MustCompile(`^instagram\.com/p/`),
		regexp.MustCompile(`^instagram\.com/reel/`),
	},
	PlatformTwitter: {
		regexp.MustCompile(`^twitter\.com/`),
		regexp.MustCompile(`^x\.com/`),
	},
}

// classifyOrder keeps classification deterministic across map iteration
var classifyOrder = []Platform{
	PlatformYouTube,
	PlatformFacebook,
	PlatformTikTok,
	PlatformInstagram,
	PlatformTwitter,
}

// ClassifyURL assigns a platform tag to a URL. It is pure pattern
// matching on the host and path: it never checks that the resource
// exists. Unrecognized URLs classify as PlatformOther.
func ClassifyURL(rawURL string) Platform {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" {
		return PlatformOther
	}

	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	// Mobile subdomains resolve to the same content. vm.tiktok.com is
	// a short-link host, not a mobile mirror, so it stays intact.
	if host != "vm.tiktok.com" {
		host = strings.TrimPrefix(host, "m.")
	}

	subject := host + parsed.Path
	if parsed.RawQuery != "" {
		subject += "?" + parsed.RawQuery
	}

	for _, platform := range classifyOrder {
		for _, pattern := range platformPatterns[platform] {
			if pattern.MatchString(subject) {
				return platform
			}
		}
	}
	return PlatformOther
}

// ValidPlatform checks if a platform tag belongs to the closed set
func ValidPlatform(p Platform) bool {
	switch p {
	case PlatformYouTube, PlatformFacebook, PlatformTikTok,
		PlatformInstagram, PlatformTwitter, PlatformOther:
		return true
	}
	return false
}
