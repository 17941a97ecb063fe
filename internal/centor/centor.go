// Package centor computes the Modified Centor (McIsaac) score for pharyngitis.
package centor

// Input holds the five score criteria.
type Input struct {
	AgeYears                    float64
	TonsillarExudateOrSwelling  bool
	TenderAnteriorCervicalNodes bool
	FeverAbove38                bool
	CoughAbsent                 bool
}

// Criterion is one line of the score breakdown.
type Criterion struct {
	Name      string `json:"name"`
	Points    int    `json:"points"`
	Rationale string `json:"rationale"`
}

// Score is the computed result.
type Score struct {
	Score            int         `json:"score"`
	ProbabilityRange string      `json:"probability_range"`
	Recommendation   string      `json:"recommendation"`
	Breakdown        []Criterion `json:"breakdown"`
}

// TestingThreshold is the score at which strep testing is suggested.
const TestingThreshold = 2

// Compute returns the score, its interpretation and the per-criterion breakdown.
// The total is floored at zero.
func Compute(in Input) Score {
	agePts, ageWhy := agePoints(in.AgeYears)

	breakdown := []Criterion{
		{Name: "Age", Points: agePts, Rationale: ageWhy},
		flag("Exudate", in.TonsillarExudateOrSwelling, "Tonsillar exudate or swelling present", "Not present"),
		flag("Ant cervical nodes", in.TenderAnteriorCervicalNodes, "Tender/swollen anterior cervical lymph nodes present", "Not present"),
		flag("Fever >38", in.FeverAbove38, "Temperature >38C / 100.4F", "Not present"),
		flag("Cough absent", in.CoughAbsent, "Cough absent", "Cough present"),
	}

	total := 0
	for _, c := range breakdown {
		total += c.Points
	}
	if total < 0 {
		total = 0
	}

	prob, rec := interpret(total)
	return Score{
		Score:            total,
		ProbabilityRange: prob,
		Recommendation:   rec,
		Breakdown:        breakdown,
	}
}

func flag(name string, present bool, yes, no string) Criterion {
	if present {
		return Criterion{Name: name, Points: 1, Rationale: yes}
	}
	return Criterion{Name: name, Points: 0, Rationale: no}
}

func agePoints(years float64) (int, string) {
	switch {
	case years < 3:
		return 0, "Age <3 years (no age adjustment)"
	case years < 15:
		return 1, "Age 3-14 years"
	case years < 45:
		return 0, "Age 15-44 years"
	default:
		return -1, "Age >=45 years"
	}
}

func interpret(score int) (string, string) {
	switch {
	case score <= 0:
		return "1-2.5%", "No further testing or antibiotics."
	case score == 1:
		return "5-10%", "No further testing or antibiotics."
	case score == 2:
		return "11-17%", "Optional rapid strep testing and/or culture."
	case score == 3:
		return "28-35%", "Consider rapid strep testing and/or culture."
	default:
		return "51-53%", "Consider rapid strep testing and/or culture. Empiric antibiotics may be appropriate depending on the specific scenario."
	}
}
