package patient

import "sort"

// Kind is the value type a field carries.
type Kind string

const (
	KindBool     Kind = "bool"
	KindNumber   Kind = "number"
	KindCategory Kind = "category"
)

// Unit controls rounding before numeric comparison.
type Unit string

const (
	UnitNone   Unit = ""
	UnitMonths Unit = "months"
	UnitDays   Unit = "days"
	UnitWeeks  Unit = "weeks"
	UnitYears  Unit = "years"
)

// Field documents one accepted patient-input field.
type Field struct {
	Name        string
	Kind        Kind
	Unit        Unit
	Values      []string // allowed categories, KindCategory only
	Description string
}

// Whole reports whether values of this field are compared in whole units.
func (f Field) Whole() bool {
	switch f.Unit {
	case UnitMonths, UnitDays, UnitWeeks, UnitYears:
		return true
	default:
		return false
	}
}

var fields = []Field{
	// Demographics
	{Name: "age_days", Kind: KindNumber, Unit: UnitDays, Description: "Age in days"},
	{Name: "age_months", Kind: KindNumber, Unit: UnitMonths, Description: "Age in months (derived from age_days when absent)"},
	{Name: "age_years", Kind: KindNumber, Unit: UnitYears, Description: "Age in years (derived from age_days when absent)"},
	{Name: "ga_weeks", Kind: KindNumber, Unit: UnitWeeks, Description: "Gestational age at birth"},
	{Name: "sex", Kind: KindCategory, Values: []string{"female", "male"}, Description: "Sex at birth"},
	{Name: "circumcised", Kind: KindBool, Description: "Circumcised (male only)"},

	// Fever
	{Name: "fever_days", Kind: KindNumber, Unit: UnitDays, Description: "Fever duration"},
	{Name: "tmax_c", Kind: KindNumber, Description: "Maximum temperature in Celsius"},
	{Name: "tmax_ge_39", Kind: KindBool, Description: "Maximum temperature at least 39C"},
	{Name: "fever_without_source", Kind: KindBool, Description: "Fever without an identified source"},
	{Name: "other_source", Kind: KindBool, Description: "Another fever source is present"},
	{Name: "high_fever", Kind: KindBool, Description: "High fever"},

	// General appearance
	{Name: "ill_appearing", Kind: KindBool},
	{Name: "hemodynamic_instability", Kind: KindBool},
	{Name: "altered_mental_status", Kind: KindBool},
	{Name: "immunocompromised_or_onc", Kind: KindBool, Description: "Immunocompromised or oncology patient"},

	// Neuro
	{Name: "seizure", Kind: KindBool},
	{Name: "neck_stiffness", Kind: KindBool},
	{Name: "severe_headache", Kind: KindBool},

	// Respiratory
	{Name: "influenza_like_illness", Kind: KindBool},
	{Name: "hypoxia", Kind: KindBool},
	{Name: "respiratory_distress", Kind: KindBool},
	{Name: "cough", Kind: KindBool},
	{Name: "wheeze", Kind: KindBool},
	{Name: "stridor", Kind: KindBool},
	{Name: "barky_cough", Kind: KindBool},

	// HEENT
	{Name: "eye_swelling", Kind: KindBool},
	{Name: "periorbital_erythema", Kind: KindBool},
	{Name: "pain_with_eom", Kind: KindBool, Description: "Pain with extraocular movement"},
	{Name: "drooling", Kind: KindBool},
	{Name: "muffled_voice", Kind: KindBool},
	{Name: "trismus", Kind: KindBool},
	{Name: "sore_throat", Kind: KindBool},
	{Name: "centor_exudate_or_swelling", Kind: KindBool},
	{Name: "centor_tender_anterior_cervical_nodes", Kind: KindBool},
	{Name: "centor_fever_gt_38", Kind: KindBool},
	{Name: "centor_cough_absent", Kind: KindBool},

	// GI / GU
	{Name: "vomiting", Kind: KindBool},
	{Name: "diarrhea", Kind: KindBool},
	{Name: "severe_focal_abdominal_pain", Kind: KindBool},
	{Name: "dysuria", Kind: KindBool},
	{Name: "flank_pain", Kind: KindBool},

	// MSK / skin
	{Name: "joint_pain", Kind: KindBool},
	{Name: "limp", Kind: KindBool},
	{Name: "refusal_to_bear_weight", Kind: KindBool},
	{Name: "localized_erythema", Kind: KindBool},
	{Name: "warmth_or_tenderness", Kind: KindBool},
	{Name: "fluctuance_or_purulence", Kind: KindBool},
	{Name: "localized_swelling", Kind: KindBool},

	// Kawasaki
	{Name: "kd_features", Kind: KindNumber, Description: "Clinician-entered count of principal Kawasaki features"},
	{Name: "kd_conjunctivitis", Kind: KindBool},
	{Name: "kd_oral_changes", Kind: KindBool},
	{Name: "kd_rash", Kind: KindBool},
	{Name: "kd_extremity_changes", Kind: KindBool},
	{Name: "kd_cervical_lymphadenopathy", Kind: KindBool},
	{Name: "conjunctivitis", Kind: KindBool},
	{Name: "strawberry_tongue", Kind: KindBool},
	{Name: "fissured_lips", Kind: KindBool},

	// Rash
	{Name: "rash_pattern", Kind: KindCategory, Values: []string{"scaly", "maculopapular", "vesicular"}, Description: "Predominant rash morphology"},
	{Name: "rash_distribution", Kind: KindCategory, Values: []string{"no_set_pattern", "trunk_to_face_extremities", "head_to_toes"}, Description: "Maculopapular rash spread"},
	{Name: "herald_patch_christmas_tree", Kind: KindBool, Description: "Herald patch followed by Christmas tree distribution"},
	{Name: "sandpaper_rash_after_strep", Kind: KindBool, Description: "Diffuse sandpaper-like rash after strep pharyngitis"},
	{Name: "high_fever_3_4_days_before_rash", Kind: KindBool, Description: "Fever above 40C for 3 to 4 days before the rash"},
	{Name: "posterior_auricular_lymphadenopathy", Kind: KindBool},
	{Name: "slapped_cheek", Kind: KindBool},
	{Name: "coryza", Kind: KindBool},
	{Name: "koplik_spots", Kind: KindBool},
}

var byName = func() map[string]Field {
	m := make(map[string]Field, len(fields))
	for _, f := range fields {
		m[f.Name] = f
	}
	return m
}()

// Lookup returns the schema entry for a field name.
func Lookup(name string) (Field, bool) {
	f, ok := byName[name]
	return f, ok
}

// Schema returns every documented field sorted by name.
func Schema() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
