package translation

import "errors"

// ErrMissingTranslation is returned when a language or code is not in the catalog.
var ErrMissingTranslation = errors.New("translation: missing translation")
