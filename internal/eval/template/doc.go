// Package template provides a Handlebars template engine for rendering the
// human-readable text attached to pathway nodes.
//
// Templates see the patient record fields at the top level and the values
// written by lookup and link nodes under their namespace.
//
// Example usage:
//
//	engine := template.NewEngine()
//
//	data := map[string]interface{}{
//	    "age_months": 10.0,
//	    "uticalc": map[string]interface{}{
//	        "percent":    6.46,
//	        "applicable": true,
//	    },
//	}
//
//	text, err := engine.Render("UTICalc pretest {{percent uticalc.percent}} at {{age_months}} months", data)
//	// Output: UTICalc pretest 6.46% at 10 months
//
// Built-in helpers:
//   - percent - Format a number with two decimals and a percent sign
//   - signed - Format an integer with an explicit sign (+1, -1)
//   - yesno - Render a boolean as yes/no
//   - default - Return default value if first arg is empty
//   - eq - Equality comparison
//   - join - Join array elements with separator
package template
