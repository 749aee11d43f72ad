package types

import (
	"fmt"
	"strings"
)

// ContentFields holds the structured payload of a generated or authored
// content item: field name -> language code -> text. Non-localized fields
// (e.g. a scripture reference shared across languages) use the "*" language.
type ContentFields map[string]map[string]string

// LanguageAny is the pseudo-language for fields that are not localized.
const LanguageAny = "*"

// Delta is an incremental, field-scoped update emitted during streaming
// generation. Path is "field/language" and Append is text to concatenate
// onto the current value at that path.
type Delta struct {
	Path   string `json:"path"`
	Append string `json:"append"`
}

// SplitPath breaks a delta path into its field and language components.
// A path without a language component addresses the non-localized slot.
func (d Delta) SplitPath() (field, language string, err error) {
	parts := strings.SplitN(d.Path, "/", 2)
	if parts[0] == "" {
		return "", "", fmt.Errorf("delta path is empty")
	}
	if len(parts) == 1 {
		return parts[0], LanguageAny, nil
	}
	if parts[1] == "" {
		return "", "", fmt.Errorf("delta path %q has an empty language", d.Path)
	}
	return parts[0], parts[1], nil
}

// Apply folds a delta into the accumulator, appending to any existing text
// at the delta's path.
func (f ContentFields) Apply(d Delta) error {
	field, lang, err := d.SplitPath()
	if err != nil {
		return err
	}
	if f[field] == nil {
		f[field] = make(map[string]string)
	}
	f[field][lang] += d.Append
	return nil
}

// Merge overlays edits onto a copy of f at (field, language) granularity:
// an edit replaces exactly the language variants it names and leaves every
// other variant of the field untouched. The receiver is not modified.
func (f ContentFields) Merge(edits ContentFields) ContentFields {
	merged := f.Clone()
	for field, variants := range edits {
		if merged[field] == nil {
			merged[field] = make(map[string]string)
		}
		for lang, text := range variants {
			merged[field][lang] = text
		}
	}
	return merged
}

// Clone returns a deep copy of the fields.
func (f ContentFields) Clone() ContentFields {
	out := make(ContentFields, len(f))
	for field, variants := range f {
		cv := make(map[string]string, len(variants))
		for lang, text := range variants {
			cv[lang] = text
		}
		out[field] = cv
	}
	return out
}

// Languages returns the set of language codes present across all fields,
// excluding the non-localized slot.
func (f ContentFields) Languages() []string {
	seen := make(map[string]bool)
	var langs []string
	for _, variants := range f {
		for lang := range variants {
			if lang == LanguageAny || seen[lang] {
				continue
			}
			seen[lang] = true
			langs = append(langs, lang)
		}
	}
	return langs
}
