// Package infant computes gestation-corrected age and the age band used to
// risk-stratify febrile infants.
package infant

const (
	// TermWeeks is the gestational age at which no correction applies.
	TermWeeks = 37

	// MaxAgeDays is the exclusive upper bound of the febrile infant pathway.
	MaxAgeDays = 60
)

// Band is a corrected-age band. The zero value means outside every band.
type Band string

const (
	BandNone   Band = ""
	Band0To21  Band = "0-21"
	Band22To28 Band = "22-28"
	Band29To60 Band = "29-60"
)

// CorrectedDays subtracts the weeks of prematurity from the chronological age.
// A nil or term gestational age returns ageDays unchanged; the result is never
// negative.
func CorrectedDays(ageDays int, gaWeeks *int) int {
	if gaWeeks == nil || *gaWeeks >= TermWeeks {
		return ageDays
	}
	corrected := ageDays - (TermWeeks-*gaWeeks)*7
	if corrected < 0 {
		return 0
	}
	return corrected
}

// BandFor returns the band a corrected age falls in.
func BandFor(correctedDays int) Band {
	switch {
	case correctedDays < 0:
		return BandNone
	case correctedDays <= 21:
		return Band0To21
	case correctedDays <= 28:
		return Band22To28
	case correctedDays <= 60:
		return Band29To60
	default:
		return BandNone
	}
}

// Preterm reports whether a gestational age is below term.
func Preterm(gaWeeks *int) bool {
	return gaWeeks != nil && *gaWeeks < TermWeeks
}
