// Package physics holds the fat-jet selection predicates and the per-event
// derived quantities used by the skimming pipeline. All functions are pure
// and operate on one event's object arrays; the pipeline iterates events
// explicitly instead of vectorizing over whole files.
package physics

import "math"

// Fat-jet object selection thresholds.
const (
	FatJetMinPt  = 200.0 // GeV
	FatJetMaxEta = 2.0
)

// Signal-region thresholds. SR4J and SR5J are alternate definitions; an
// event is in the signal region when it passes either.
const (
	SR4JMinJets    = 4
	SR4JMinSumMass = 1000.0 // GeV
	SR5JMinJets    = 5
	SR5JMinSumMass = 800.0 // GeV
	SRMaxDEta12    = 1.4
)

// DEta12Undefined is returned by DEta12 for events with fewer than two
// surviving jets. Both signal regions require at least four jets, so the
// sentinel can never promote such an event into a region.
const DEta12Undefined = -1.0

// SelectFatJets returns the indices of jets passing the kinematic cuts.
// Zero-length input yields an empty index list.
func SelectFatJets(pt, eta []float64) []int {
	idx := make([]int, 0, len(pt))
	for i := range pt {
		if pt[i] >= FatJetMinPt && math.Abs(eta[i]) <= FatJetMaxEta {
			idx = append(idx, i)
		}
	}
	return idx
}

// IsBaselineEvent reports whether an event passes baseline selection:
// at least one jet survived object selection.
func IsBaselineEvent(pt []float64) bool {
	return len(pt) > 0
}

// NumJets returns the number of surviving jets in the event.
func NumJets(pt []float64) int64 {
	return int64(len(pt))
}

// SumJetMass returns the summed mass of all surviving jets.
func SumJetMass(m []float64) float64 {
	var sum float64
	for _, v := range m {
		sum += v
	}
	return sum
}

// DEta12 returns the pseudorapidity separation of the two leading jets, or
// DEta12Undefined when fewer than two jets survive.
func DEta12(eta []float64) float64 {
	if len(eta) < 2 {
		return DEta12Undefined
	}
	return math.Abs(eta[0] - eta[1])
}

// PassSR4J reports whether the event passes the 4-jet signal region.
func PassSR4J(numJets int64, sumMass, dEta12 float64) bool {
	return numJets >= SR4JMinJets && sumMass > SR4JMinSumMass && dEta12 < SRMaxDEta12
}

// PassSR5J reports whether the event passes the 5-jet signal region.
func PassSR5J(numJets int64, sumMass, dEta12 float64) bool {
	return numJets >= SR5JMinJets && sumMass > SR5JMinSumMass && dEta12 < SRMaxDEta12
}

// IsSignalRegion reports whether the event passes either signal region.
func IsSignalRegion(numJets int64, sumMass, dEta12 float64) bool {
	return PassSR4J(numJets, sumMass, dEta12) || PassSR5J(numJets, sumMass, dEta12)
}
