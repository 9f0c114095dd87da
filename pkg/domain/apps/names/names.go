// Package names derives cluster object names from user-supplied app
// names and generated app ids.
//
// App names are loosely constrained user input; cluster object names
// are not (DNS-1035: [a-z0-9-], at most 63 characters, alphanumeric at
// both ends). Everything here is total: any input, including an empty
// or all-punctuation name, produces a valid object name.
package names

import (
	"regexp"
	"strings"
)

const (
	// prefix of every object managed by the control plane.
	prefix = "saki-"

	// longest name fragment carried into an object name.
	maxNameFragment = 32

	// length of the app-id fragment. Enough to keep two apps with the
	// same slug apart; short enough to stay far under the 63 limit.
	idFragmentLength = 10

	fallbackNameFragment = "app"
	fallbackIDFragment   = "anon"

	serviceSuffix = "-svc"
	ingressSuffix = "-ing"
)

var (
	reDisallowed  = regexp.MustCompile(`[^a-z0-9-]+`)
	reHyphenRuns  = regexp.MustCompile(`-{2,}`)
	reNonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)
)

// Base is the shared stem of all object names for one app:
// "saki-" + slug(name) + "-" + fragment(appID).
func Base(name string, appID string) string {
	return prefix + nameFragment(name) + "-" + idFragment(appID)
}

// ForDeployment names the workload object.
func ForDeployment(name string, appID string) string {
	return Base(name, appID)
}

// ForService names the network-exposure object.
func ForService(name string, appID string) string {
	return Base(name, appID) + serviceSuffix
}

// ForIngress names the route object.
func ForIngress(name string, appID string) string {
	return Base(name, appID) + ingressSuffix
}

func nameFragment(name string) string {
	s := strings.ToLower(name)
	s = reDisallowed.ReplaceAllString(s, "-")
	s = reHyphenRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if maxNameFragment < len(s) {
		s = s[:maxNameFragment]
		s = strings.TrimRight(s, "-")
	}

	if s == "" {
		return fallbackNameFragment
	}
	return s
}

func idFragment(appID string) string {
	s := strings.ToLower(appID)
	s = reNonAlphaNum.ReplaceAllString(s, "")

	if idFragmentLength < len(s) {
		s = s[:idFragmentLength]
	}

	if s == "" {
		return fallbackIDFragment
	}
	return s
}
