package classifier

import "strings"

// Traffic source categories.
const (
	SourceDirect   = "Direct"
	SourceReferral = "Referral"
)

type sourceRule struct {
	hosts  []string
	source string
}

// Matched as plain substrings of the whole referrer URL.
var sourceRules = []sourceRule{
	{hosts: []string{"google.com"}, source: "Google"},
	{hosts: []string{"bing.com"}, source: "Bing"},
	{hosts: []string{"facebook.com"}, source: "Facebook"},
	{hosts: []string{"twitter.com", "t.co"}, source: "Twitter"},
	{hosts: []string{"linkedin.com"}, source: "LinkedIn"},
}

// TrafficSource maps a referrer URL to its source category.
func TrafficSource(referrer string) string {
	if referrer == "" {
		return SourceDirect
	}
	for _, r := range sourceRules {
		for _, host := range r.hosts {
			if strings.Contains(referrer, host) {
				return r.source
			}
		}
	}
	return SourceReferral
}
