// Package uticalc implements the UTICalc pretest probability lookup for febrile
// children aged 2 to 24 months.
//
// The table is exact and versioned: no interpolation, no extrapolation. Ages
// outside the validated range are a defined non-applicable outcome.
package uticalc

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// TableVersion identifies the lookup table below.
const TableVersion = "uticalc-pretest-race-free-v1"

const (
	MinAgeMonths = 2
	MaxAgeMonths = 24

	// ActivationThresholdPercent is the pretest probability at which urine
	// testing is recommended.
	ActivationThresholdPercent = 2.0

	feverThresholdC = 39.0
)

// Sex is the sex at birth used to pick the table group.
type Sex string

const (
	SexFemale Sex = "female"
	SexMale   Sex = "male"
)

// ParseSex normalizes a categorical sex value.
func ParseSex(s string) (Sex, error) {
	switch Sex(strings.ToLower(strings.TrimSpace(s))) {
	case SexFemale:
		return SexFemale, nil
	case SexMale:
		return SexMale, nil
	default:
		return "", fmt.Errorf("sex must be %q or %q, got %q", SexFemale, SexMale, s)
	}
}

// ErrCircumcisionRequired is returned when a male patient has no circumcision status.
var ErrCircumcisionRequired = errors.New("circumcised must be provided for male sex")

// RiskFactors are the inputs that select a table cell besides age.
type RiskFactors struct {
	Sex           Sex
	Circumcised   bool
	TmaxAtLeast39 bool
	OtherSource   bool
}

// Validate checks that the factors select exactly one table group.
func (rf RiskFactors) Validate() error {
	switch rf.Sex {
	case SexFemale, SexMale:
		return nil
	default:
		return fmt.Errorf("sex must be %q or %q, got %q", SexFemale, SexMale, rf.Sex)
	}
}

// Result is a lookup outcome. ProbabilityPercent is meaningful only when Applicable.
type Result struct {
	ProbabilityPercent float64 `json:"probability_percent"`
	Applicable         bool    `json:"applicable"`
	AgeBucket          string  `json:"age_bucket,omitempty"`
	Cell               string  `json:"cell,omitempty"`
}

// AtLeast reports whether the result is applicable and meets the threshold.
func (r Result) AtLeast(percent float64) bool {
	return r.Applicable && r.ProbabilityPercent >= percent
}

type group string

const (
	groupFemaleOrUncircMale group = "female_or_uncirc_male"
	groupCircMale           group = "circ_male"
)

type cell struct {
	feverAtLeast39 bool
	otherSource    bool
}

type ages struct {
	under12   float64
	atLeast12 float64
}

var table = map[group]map[cell]ages{
	groupFemaleOrUncircMale: {
		{feverAtLeast39: true, otherSource: true}:   {under12: 6.46, atLeast12: 2.14},
		{feverAtLeast39: true, otherSource: false}:  {under12: 21.51, atLeast12: 8.05},
		{feverAtLeast39: false, otherSource: true}:  {under12: 2.82, atLeast12: 0.91},
		{feverAtLeast39: false, otherSource: false}: {under12: 10.41, atLeast12: 3.54},
	},
	groupCircMale: {
		{feverAtLeast39: true, otherSource: true}:   {under12: 0.62, atLeast12: 0.19},
		{feverAtLeast39: true, otherSource: false}:  {under12: 2.45, atLeast12: 0.79},
		{feverAtLeast39: false, otherSource: true}:  {under12: 0.26, atLeast12: 0.08},
		{feverAtLeast39: false, otherSource: false}: {under12: 1.04, atLeast12: 0.33},
	},
}

// Lookup returns the pretest probability for a child of the given age.
//
// Age is compared in whole months. Ages below 2 or above 24 months return
// Applicable=false; that is not an error.
func Lookup(ageMonths float64, rf RiskFactors) Result {
	months := math.Floor(ageMonths)
	if math.IsNaN(months) || months < MinAgeMonths || months > MaxAgeMonths {
		return Result{Applicable: false}
	}

	g := groupFemaleOrUncircMale
	if rf.Sex == SexMale && rf.Circumcised {
		g = groupCircMale
	}
	c := cell{feverAtLeast39: rf.TmaxAtLeast39, otherSource: rf.OtherSource}
	row := table[g][c]

	res := Result{Applicable: true, Cell: cellName(g, c)}
	if months < 12 {
		res.ProbabilityPercent = row.under12
		res.AgeBucket = "lt_12"
	} else {
		res.ProbabilityPercent = row.atLeast12
		res.AgeBucket = "ge_12"
	}
	return res
}

// FeverAtLeast39 resolves the fever factor. An explicit flag wins over the
// recorded maximum temperature; with neither, the factor is false.
func FeverAtLeast39(tmaxC *float64, flag *bool) bool {
	if flag != nil {
		return *flag
	}
	return tmaxC != nil && *tmaxC >= feverThresholdC
}

func cellName(g group, c cell) string {
	temp := "lt_39"
	if c.feverAtLeast39 {
		temp = "ge_39"
	}
	src := "no_other"
	if c.otherSource {
		src = "other"
	}
	return fmt.Sprintf("%s/%s_%s", g, temp, src)
}
