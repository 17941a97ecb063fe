// Package patient defines the Patient Input Record and its documented field schema.
//
// A record is a flat map of clinical findings. Absent fields are distinguishable
// from false and zero, and every consumer must treat them as unknown:
//
//	rec := patient.Normalize(patient.Record{
//	    "age_days":   int(18 * patient.DaysPerMonth),
//	    "fever_days": 6,
//	    "hypoxia":    true,
//	})
//	months, _ := rec.Number("age_months") // 18
//
// Fields that carry a unit (days, months, weeks, years) are compared in whole
// units; see Field.Whole.
package patient
