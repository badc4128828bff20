// Package translation provides the read-only catalog of localized state and
// position descriptions used to enrich transition events.
//
// The catalog is built once at startup from the built-in table, optionally
// overlaid with a YAML file, and is never mutated afterwards. Lookups that
// miss return ErrMissingTranslation; callers treat this as non-fatal and
// omit the localized field.
//
// # Overlay File Format
//
//	de:
//	  states:
//	    opened: "offen"
//	  positions:
//	    left: "linkes Fenster"
package translation
