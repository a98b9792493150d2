// Package classifier derives descriptive attributes of a page view from its
// user-agent string and referrer URL.
//
// Every attribute is resolved by an ordered rule list evaluated top to bottom;
// the first matching rule wins. Several vendors embed each other's tokens
// (Edge and Safari user agents both mention "Chrome", Android user agents
// mention "Linux"), so the order of each list is part of its meaning.
package classifier

import (
	"regexp"
	"strings"

	"sitestats/api/models"
)

// Client describes the browser environment that emitted an event.
type Client struct {
	DeviceType     string `json:"device_type"`
	Browser        string `json:"browser"`
	BrowserVersion string `json:"browser_version"`
	OS             string `json:"os"`
}

// Classify runs every user-agent classifier.
func Classify(userAgent string) Client {
	browser, version := Browser(userAgent)
	return Client{
		DeviceType:     DeviceType(userAgent),
		Browser:        browser,
		BrowserVersion: version,
		OS:             OS(userAgent),
	}
}

type deviceRule struct {
	match  func(ua string) bool
	device string
}

var (
	tabletTokens = regexp.MustCompile(`(?i)tablet|ipad|playbook|silk`)
	mobileTokens = regexp.MustCompile(`Mobile|Android|iP(hone|od)|IEMobile|BlackBerry|Kindle|Silk-Accelerated|(hpw|web)OS|Opera M(obi|ini)`)
)

// androidWithoutMobile matches Android tablets, which omit the "mobi" token phones carry.
func androidWithoutMobile(ua string) bool {
	lower := strings.ToLower(ua)
	return strings.Contains(lower, "android") && !strings.Contains(lower, "mobi")
}

// Tablet runs first: many tablets also carry generic mobile tokens.
var deviceRules = []deviceRule{
	{match: func(ua string) bool { return tabletTokens.MatchString(ua) || androidWithoutMobile(ua) }, device: models.DeviceTablet},
	{match: mobileTokens.MatchString, device: models.DeviceMobile},
}

// DeviceType returns "tablet", "mobile" or "desktop".
func DeviceType(userAgent string) string {
	for _, r := range deviceRules {
		if r.match(userAgent) {
			return r.device
		}
	}
	return models.DeviceDesktop
}

type browserRule struct {
	name    string
	match   func(ua string) bool
	version *regexp.Regexp
}

func contains(token string) func(string) bool {
	return func(ua string) bool { return strings.Contains(ua, token) }
}

func containsWithout(token, excluded string) func(string) bool {
	return func(ua string) bool {
		return strings.Contains(ua, token) && !strings.Contains(ua, excluded)
	}
}

// Precedence: Firefox, Chrome (not Edge), Safari (not Chrome), Edge, Internet Explorer.
var browserRules = []browserRule{
	{name: "Firefox", match: contains("Firefox"), version: regexp.MustCompile(`Firefox/([0-9.]+)`)},
	{name: "Chrome", match: containsWithout("Chrome", "Edg"), version: regexp.MustCompile(`Chrome/([0-9.]+)`)},
	{name: "Safari", match: containsWithout("Safari", "Chrome"), version: regexp.MustCompile(`Version/([0-9.]+)`)},
	{name: "Edge", match: contains("Edg"), version: regexp.MustCompile(`Edg/([0-9.]+)`)},
	{
		name:    "Internet Explorer",
		match:   func(ua string) bool { return strings.Contains(ua, "MSIE") || strings.Contains(ua, "Trident") },
		version: regexp.MustCompile(`(?:MSIE |rv:)([0-9.]+)`),
	},
}

// Browser returns the browser name and version. An undetected browser is
// "Unknown"; a detected browser without a version token has an empty version.
func Browser(userAgent string) (name, version string) {
	for _, r := range browserRules {
		if !r.match(userAgent) {
			continue
		}
		if m := r.version.FindStringSubmatch(userAgent); m != nil {
			version = m[1]
		}
		return r.name, version
	}
	return models.Unknown, ""
}

type osRule struct {
	tokens []string
	name   string
}

// Windows, macOS, Linux, Android, iOS. Most Android and iOS user agents
// resolve earlier through their "Linux" and "Mac OS X" tokens.
var osRules = []osRule{
	{tokens: []string{"Win"}, name: "Windows"},
	{tokens: []string{"Mac"}, name: "macOS"},
	{tokens: []string{"Linux"}, name: "Linux"},
	{tokens: []string{"Android"}, name: "Android"},
	{tokens: []string{"iOS", "iPhone", "iPad"}, name: "iOS"},
}

// OS returns the operating system name or "Unknown".
func OS(userAgent string) string {
	for _, r := range osRules {
		for _, token := range r.tokens {
			if strings.Contains(userAgent, token) {
				return r.name
			}
		}
	}
	return models.Unknown
}
