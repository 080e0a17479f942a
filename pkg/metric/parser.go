// Package metric pkg/metric/parser.go transforms a raw varbind map into a
// models.TransmitterMetricData, deriving operational status, frequency
// scaling and VSWR per spec.md §4.3.
package metric

import (
	"math"
	"strings"

	"github.com/fmfleet/txmoncore/pkg/models"
)

// Parse maps a raw OID→Value map from a successful poll into a
// TransmitterMetricData. Unknown OIDs are ignored; any subset of the
// output's fields may be populated.
func Parse(raw map[string]models.Value) models.TransmitterMetricData {
	data := models.TransmitterMetricData{Raw: raw}

	for oid, val := range raw {
		name, ok := resolveMetric(oid)
		if !ok {
			continue
		}

		f, numeric := val.Float64()
		if !numeric {
			continue
		}

		switch name {
		case "forward_power":
			data.ForwardPower = &f
		case "reflected_power":
			data.ReflectedPower = &f
		case "frequency":
			mhz := f / 100
			data.FrequencyMHz = &mhz
		}
	}

	data.Status = deriveStatus(raw)
	data.VSWR = deriveVSWR(data.ForwardPower, data.ReflectedPower)

	if name, ok := radioName(raw); ok {
		data.ProposedName = name
	}

	return data
}

// deriveStatus implements spec.md §4.3's status-derivation priority: search
// for a numeric value under the standby-status base first, then the
// on-air-status base; otherwise the transmitter is considered offline. This
// is the single source of truth for liveness.
func deriveStatus(raw map[string]models.Value) models.TransmitterStatus {
	if v, ok := firstNumericUnderBase(raw, BaseStandbyStatus); ok {
		switch int64(v) {
		case 1:
			return models.StatusActive
		case 2:
			return models.StatusStandby
		}
	}

	if v, ok := firstNumericUnderBase(raw, BaseOnAirStatus); ok {
		if int64(v) == 2 {
			return models.StatusActive
		}

		return models.StatusStandby
	}

	return models.StatusOffline
}

// deriveVSWR computes Γ = sqrt(reflected/forward) and
// VSWR = (1+Γ)/(1−Γ), emitting only when both inputs are present, forward
// power is positive, and the result is finite (spec.md §4.3, §8 property 7,
// scenario S6).
func deriveVSWR(forward, reflected *float64) *float64 {
	if forward == nil || reflected == nil || *forward <= 0 {
		return nil
	}

	gamma := math.Sqrt(*reflected / *forward)
	if gamma >= 1 {
		return nil // denominator would be zero or negative
	}

	vswr := (1 + gamma) / (1 - gamma)
	if math.IsNaN(vswr) || math.IsInf(vswr, 0) {
		return nil
	}

	return &vswr
}

// radioName implements the radio-name passthrough: if the raw map contains
// the Elenos radio-name OID (scalar or indexed), decode it to UTF-8 and trim
// it. The caller (persistence store) decides whether to write it.
func radioName(raw map[string]models.Value) (string, bool) {
	for oid, val := range raw {
		if !MatchesBase(oid, BaseRadioName) {
			continue
		}

		name := strings.TrimSpace(val.String())
		if name == "" {
			continue
		}

		return name, true
	}

	return "", false
}

// firstNumericUnderBase searches raw (direct, scalar, or indexed forms) for
// any numeric value under the given base OID.
func firstNumericUnderBase(raw map[string]models.Value, base string) (float64, bool) {
	for oid, val := range raw {
		if !MatchesBase(oid, base) {
			continue
		}

		if f, ok := val.Float64(); ok {
			return f, true
		}
	}

	return 0, false
}
