// Package scheduler pkg/scheduler/oidexpand.go implements the wire OID
// expansion algorithm of spec.md §4.5, run before every GET.
package scheduler

import (
	"strconv"
	"strings"

	"github.com/fmfleet/txmoncore/pkg/metric"
)

// ExpandOIDs derives the wire OID list from a transmitter's configured
// OIDs:
//  1. Normalize (trim, drop empty).
//  2. For each OID: emit it as-is; if it doesn't end in ".0", also emit the
//     ".0" form.
//  3. If any configured OID has a base matching one of the five Elenos
//     bases, also emit that base with instance indices .1..4.
//  4. If any Elenos base OID is present at all, force-add the four core
//     bases (forward/reflected/on-air/frequency) and their .0 and indexed
//     forms, guaranteeing frequency and status are always polled.
//  5. De-duplicate.
//
// ExpandOIDs is idempotent (ExpandOIDs(ExpandOIDs(x)) == ExpandOIDs(x) as a
// set) and monotonic (configured ⊆ ExpandOIDs(configured)) by construction:
// every step only adds OIDs already implied by what's present, and
// re-running against an already-expanded set finds the same bases already
// present and adds nothing new.
func ExpandOIDs(configured []string) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(oid string) {
		if oid == "" || seen[oid] {
			return
		}

		seen[oid] = true
		out = append(out, oid)
	}

	var normalized []string

	for _, oid := range configured {
		oid = strings.TrimSpace(oid)
		if oid == "" {
			continue
		}

		normalized = append(normalized, oid)
	}

	anyElenosBase := false

	for _, oid := range normalized {
		add(oid)

		if !strings.HasSuffix(oid, ".0") && !isInstanceForm(oid) {
			add(oid + ".0")
		}

		for _, base := range metric.AllElenosBases {
			if !metric.MatchesBase(oid, base) {
				continue
			}

			anyElenosBase = true

			for i := 1; i <= 4; i++ {
				add(instanceOID(base, i))
			}
		}
	}

	if anyElenosBase {
		for _, base := range metric.CoreElenosBases {
			add(base)
			add(base + ".0")

			for i := 1; i <= 4; i++ {
				add(instanceOID(base, i))
			}
		}
	}

	return out
}

func instanceOID(base string, index int) string {
	return base + "." + strconv.Itoa(index)
}

// isInstanceForm reports whether oid is itself an instance-indexed form
// (base + "." + 1..4) of a known Elenos base — i.e. something instanceOID
// could have produced. Configured OIDs never look like this, but a
// previously expanded set fed back into ExpandOIDs does, and such an OID
// must not get a further ".0" appended or repeated expansion would keep
// manufacturing new BASE.<i>.0 entries (breaking idempotence).
func isInstanceForm(oid string) bool {
	idx := strings.LastIndex(oid, ".")
	if idx < 0 {
		return false
	}

	index, err := strconv.Atoi(oid[idx+1:])
	if err != nil || index < 1 || index > 4 {
		return false
	}

	base := oid[:idx]
	for _, b := range metric.AllElenosBases {
		if b == base {
			return true
		}
	}

	return false
}
