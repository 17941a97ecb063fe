// Package pathway defines the clinical pathway graph model and the read-only
// Pathway Store.
//
// Content is declarative: a manifest.yaml lists pathway ids in evaluation order
// and each pathway lives in its own YAML file:
//
//	id: kawasaki
//	title: Kawasaki Disease
//	source_urls: [https://www.chop.edu/clinical-pathway/kawasaki-disease-clinical-pathway]
//	start: fever_duration
//	end: [complete_kd, not_activated]
//	nodes:
//	  fever_duration:
//	    kind: question
//	    label: Fever for at least 5 days
//	    source_urls: [https://www.chop.edu/clinical-pathway/kawasaki-disease-clinical-pathway]
//	    edges:
//	      - when: {field: fever_days, op: gte, value: 5}
//	        to: principal_features
//	    default: not_activated
//
// Load the store once at process start and share it; it exposes no mutation:
//
//	store, err := pathway.Load(content.FS)
//	if err != nil {
//	    log.Fatal(err) // *pathway.LoadError
//	}
//	p, err := store.Get("kawasaki") // wraps pathway.ErrNotFound when absent
//
// The store trusts content that has passed the validate package; it checks only
// structure (YAML shape, required fields, id collisions) while loading.
package pathway
