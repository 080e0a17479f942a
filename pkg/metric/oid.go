// Package metric pkg/metric/oid.go: known Elenos ETG OID families and the
// OID-resolution algorithm from spec.md §4.3.
package metric

import (
	"strconv"
	"strings"
)

// Elenos ETG base OIDs. The legacy sysUpTime→power_output mapping from the
// source system is deliberately dropped (spec.md §9, second Open Question);
// no OID feeds power_output, so Parse always leaves it nil.
const (
	BaseForwardPower   = "1.3.6.1.4.1.31946.4.2.6.10.1"
	BaseReflectedPower = "1.3.6.1.4.1.31946.4.2.6.10.2"
	BaseOnAirStatus    = "1.3.6.1.4.1.31946.4.2.6.10.12"
	BaseStandbyStatus  = "1.3.6.1.4.1.31946.4.2.6.10.13"
	BaseFrequency      = "1.3.6.1.4.1.31946.4.2.6.10.14"
	BaseRadioName      = "1.3.6.1.4.1.31946.3.1.7"
)

// CoreElenosBases is the set force-added by the poll scheduler's OID
// expansion whenever any Elenos base OID is configured (spec.md §4.5 step 4).
// Deliberately excludes BaseStandbyStatus: the spec names only the four
// bases .1, .2, .12, .14 for the force-add, leaving standby-status as an
// opt-in signal rather than one the expansion manufactures on its own.
var CoreElenosBases = []string{
	BaseForwardPower,
	BaseReflectedPower,
	BaseOnAirStatus,
	BaseFrequency,
}

// AllElenosBases is the wider set the expansion checks a configured OID
// against before deciding to emit indexed instance forms (spec.md §4.5
// step 3) — includes BaseStandbyStatus, unlike CoreElenosBases.
var AllElenosBases = []string{
	BaseForwardPower,
	BaseReflectedPower,
	BaseOnAirStatus,
	BaseStandbyStatus,
	BaseFrequency,
}

// baseMetricName maps a known base OID to the metric field it feeds.
var baseMetricName = map[string]string{
	BaseForwardPower:   "forward_power",
	BaseReflectedPower: "reflected_power",
	BaseFrequency:      "frequency",
}

// resolveMetric implements the OID-resolution algorithm of spec.md §4.3:
// try the OID as-is, then with a trailing ".0" stripped, then with a single
// trailing numeric instance index stripped, then with both stripped. The
// first hit against the known base-OID table wins.
func resolveMetric(oid string) (string, bool) {
	candidates := []string{
		oid,
		stripTrailingZero(oid),
		stripInstanceIndex(oid),
		stripInstanceIndex(stripTrailingZero(oid)),
	}

	for _, c := range candidates {
		if name, ok := baseMetricName[c]; ok {
			return name, true
		}
	}

	return "", false
}

// MatchesBase reports whether oid resolves (by the same four-way strip
// sequence) to the given base OID — used for the status-derivation and
// radio-name searches, which look for *any* value under a base rather than
// a single known metric name. Exported for the poll scheduler's OID
// expansion, which needs the same base-matching rule.
func MatchesBase(oid, base string) bool {
	if oid == base {
		return true
	}

	if stripTrailingZero(oid) == base {
		return true
	}

	if stripInstanceIndex(oid) == base {
		return true
	}

	if stripInstanceIndex(stripTrailingZero(oid)) == base {
		return true
	}

	return false
}

func stripTrailingZero(oid string) string {
	if strings.HasSuffix(oid, ".0") {
		return oid[:len(oid)-2]
	}

	return oid
}

func stripInstanceIndex(oid string) string {
	idx := strings.LastIndex(oid, ".")
	if idx < 0 || idx == len(oid)-1 {
		return oid
	}

	last := oid[idx+1:]
	if _, err := strconv.Atoi(last); err != nil {
		return oid
	}

	return oid[:idx]
}
