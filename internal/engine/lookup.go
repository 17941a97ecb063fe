package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aescanero/dago-pathway-router/internal/centor"
	"github.com/aescanero/dago-pathway-router/internal/infant"
	"github.com/aescanero/dago-pathway-router/internal/patient"
	"github.com/aescanero/dago-pathway-router/internal/uticalc"
)

// Calculator is a deterministic lookup invoked by lookup nodes. Its values are
// written to the evaluation context under the node's namespace.
type Calculator interface {
	Name() string
	// Outputs lists the keys Compute may write.
	Outputs() []string
	Compute(rec patient.Record) (values map[string]any, summary string)
}

// LinkOutputs lists the keys a link node writes for its linked pathway.
var LinkOutputs = []string{"activated", "escalation", "status", "terminal"}

// UTICalc exposes the UTICalc pretest table to lookup nodes.
//
// Values: applicable (bool), percent (number), threshold_met (bool),
// cell (string), table_version (string).
type UTICalc struct{}

// Name implements Calculator.
func (UTICalc) Name() string { return "uticalc" }

// Outputs implements Calculator.
func (UTICalc) Outputs() []string {
	return []string{"applicable", "cell", "percent", "table_version", "threshold_met"}
}

// Compute implements Calculator.
func (UTICalc) Compute(rec patient.Record) (map[string]any, string) {
	values := map[string]any{
		"applicable":    false,
		"threshold_met": false,
		"table_version": uticalc.TableVersion,
	}

	months, ok := rec.Number("age_months")
	if !ok {
		return values, "UTICalc not applicable: field age_months absent"
	}

	rawSex, ok := rec.String("sex")
	if !ok {
		return values, "UTICalc inputs incomplete: field sex absent"
	}
	sex, err := uticalc.ParseSex(rawSex)
	if err != nil {
		return values, "UTICalc inputs invalid: " + err.Error()
	}

	rf := uticalc.RiskFactors{Sex: sex}
	if sex == uticalc.SexMale {
		v, present := rec.Get("circumcised")
		circ, isBool := v.(bool)
		if !present || !isBool {
			return values, "UTICalc inputs incomplete: " + uticalc.ErrCircumcisionRequired.Error()
		}
		rf.Circumcised = circ
	}

	var tmax *float64
	if t, ok := rec.Number("tmax_c"); ok {
		tmax = &t
	}
	var flag *bool
	if v, ok := rec.Get("tmax_ge_39"); ok {
		if b, isBool := v.(bool); isBool {
			flag = &b
		}
	}
	rf.TmaxAtLeast39 = uticalc.FeverAtLeast39(tmax, flag)

	notes := []string{}
	if v, ok := rec.Get("other_source"); ok {
		b, isBool := v.(bool)
		rf.OtherSource = isBool && b
	} else {
		rf.OtherSource = true
		notes = append(notes, "other_source absent, assumed present")
	}

	if err := rf.Validate(); err != nil {
		return values, "UTICalc inputs invalid: " + err.Error()
	}

	res := uticalc.Lookup(months, rf)
	if !res.Applicable {
		return values, fmt.Sprintf("UTICalc not applicable: age %s months outside %d-%d",
			strconv.FormatFloat(patient.Whole(months), 'f', -1, 64), uticalc.MinAgeMonths, uticalc.MaxAgeMonths)
	}

	values["applicable"] = true
	values["percent"] = res.ProbabilityPercent
	values["threshold_met"] = res.AtLeast(uticalc.ActivationThresholdPercent)
	values["cell"] = res.Cell + "/" + res.AgeBucket

	summary := fmt.Sprintf("UTICalc pretest %.2f%% (%s/%s), applicable",
		res.ProbabilityPercent, res.Cell, res.AgeBucket)
	if len(notes) > 0 {
		summary += "; " + strings.Join(notes, "; ")
	}
	return values, summary
}

// Centor exposes the Modified Centor score to lookup nodes.
//
// Values: applicable (bool), score (number), probability_range (string),
// recommendation (string).
type Centor struct{}

// Name implements Calculator.
func (Centor) Name() string { return "centor" }

// Outputs implements Calculator.
func (Centor) Outputs() []string {
	return []string{"applicable", "probability_range", "recommendation", "score"}
}

// Compute implements Calculator.
func (Centor) Compute(rec patient.Record) (map[string]any, string) {
	years, ok := rec.Number("age_years")
	if !ok {
		return map[string]any{"applicable": false}, "Centor not applicable: field age_years absent"
	}

	score := centor.Compute(centor.Input{
		AgeYears:                    years,
		TonsillarExudateOrSwelling:  rec.Bool("centor_exudate_or_swelling"),
		TenderAnteriorCervicalNodes: rec.Bool("centor_tender_anterior_cervical_nodes"),
		FeverAbove38:                rec.Bool("centor_fever_gt_38"),
		CoughAbsent:                 rec.Bool("centor_cough_absent"),
	})

	parts := make([]string, len(score.Breakdown))
	for i, c := range score.Breakdown {
		parts[i] = fmt.Sprintf("%s(%+d)", c.Name, c.Points)
	}

	values := map[string]any{
		"applicable":        true,
		"score":             float64(score.Score),
		"probability_range": score.ProbabilityRange,
		"recommendation":    score.Recommendation,
	}
	summary := fmt.Sprintf("Centor score %d (%s): %s", score.Score, score.ProbabilityRange, strings.Join(parts, " "))
	return values, summary
}

// InfantAge corrects an infant's age for prematurity and assigns the age band.
//
// Values: applicable (bool), age_days (number), corrected_days (number),
// preterm (bool), band (string, empty outside every band).
type InfantAge struct{}

// Name implements Calculator.
func (InfantAge) Name() string { return "infant_age" }

// Outputs implements Calculator.
func (InfantAge) Outputs() []string {
	return []string{"age_days", "applicable", "band", "corrected_days", "preterm"}
}

// Compute implements Calculator.
func (InfantAge) Compute(rec patient.Record) (map[string]any, string) {
	var notes []string
	days, ok := rec.Number("age_days")
	if !ok {
		months, hasMonths := rec.Number("age_months")
		if !hasMonths {
			return map[string]any{"applicable": false}, "Infant age not applicable: field age_days absent"
		}
		days = months * patient.DaysPerMonth
		notes = append(notes, "age_days absent, estimated from age_months")
	}
	ageDays := int(patient.Whole(days))

	var ga *int
	if w, ok := rec.Number("ga_weeks"); ok {
		weeks := int(patient.Whole(w))
		ga = &weeks
	}

	corrected := infant.CorrectedDays(ageDays, ga)
	band := infant.BandFor(corrected)
	values := map[string]any{
		"applicable":     true,
		"age_days":       float64(ageDays),
		"corrected_days": float64(corrected),
		"preterm":        infant.Preterm(ga),
		"band":           string(band),
	}

	summary := fmt.Sprintf("Infant age %d days", ageDays)
	if infant.Preterm(ga) {
		summary += fmt.Sprintf(", corrected %d days (GA %dw)", corrected, *ga)
	}
	if band != infant.BandNone {
		summary += ", band " + string(band)
	}
	if len(notes) > 0 {
		summary += "; " + strings.Join(notes, "; ")
	}
	return values, summary
}

