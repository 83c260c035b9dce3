// Package language holds the supported-language registry and the code
// mappings between the transcription service's locale codes and the
// internal two-letter codes used by the revision prompts.
package language

import (
	"fmt"
	"sort"
	"strings"
)

var languageNames = map[string]string{
	"en": "English",
	"ja": "Japanese",
	"fr": "French",
	"de": "German",
	"es": "Spanish",
	"it": "Italian",
	"pt": "Portuguese",
	"ko": "Korean",
	"zh": "Chinese",
	"hi": "Hindi",
}

// transcribeToInternal maps the locale codes reported by the transcription
// service to internal codes. The service reports regional variants; the
// revision stage only cares about the language.
var transcribeToInternal = map[string]string{
	"en-US": "en", "en-GB": "en", "en-AU": "en", "en-IN": "en",
	"ja-JP": "ja",
	"fr-FR": "fr", "fr-CA": "fr",
	"de-DE": "de",
	"es-ES": "es", "es-US": "es",
	"it-IT": "it",
	"pt-BR": "pt", "pt-PT": "pt",
	"ko-KR": "ko",
	"zh-CN": "zh", "zh-TW": "zh",
	"hi-IN": "hi",
}

// characterRatios is the approximate character count of a text relative to
// its English rendition. Used to scale length targets when prompting for
// generated text in another language.
var characterRatios = map[string]float64{
	"en": 1.0,
	"ja": 0.7,
	"fr": 1.1,
	"de": 1.1,
	"es": 1.2,
	"it": 1.1,
	"pt": 1.2,
	"ko": 1.1,
	"zh": 0.5,
	"hi": 1.1,
}

// CharacterRatio returns the character ratio for an internal language code,
// defaulting to 1.0 for unknown codes.
func CharacterRatio(code string) float64 {
	if ratio, ok := characterRatios[code]; ok {
		return ratio
	}
	return 1.0
}

// Validate reports whether code is a supported internal language code.
func Validate(code string) bool {
	_, ok := languageNames[code]
	return ok
}

// Name returns the full English name for an internal language code.
func Name(code string) (string, error) {
	name, ok := languageNames[code]
	if !ok {
		return "", fmt.Errorf("unsupported language code: %s", code)
	}
	return name, nil
}

// FromTranscribeCode maps a service locale code ("en-US") to an internal
// code ("en").
func FromTranscribeCode(code string) (string, error) {
	if internal, ok := transcribeToInternal[code]; ok {
		return internal, nil
	}
	// Tolerate bare language codes and unknown regions of known languages.
	base := strings.SplitN(code, "-", 2)[0]
	if Validate(base) {
		return base, nil
	}
	return "", fmt.Errorf("transcription detected an unsupported language: %s", code)
}

// ShouldTranslate reports whether the revision stage needs to translate in
// addition to revising.
func ShouldTranslate(source, target string) bool {
	return source != target
}

// Supported lists the supported internal codes, sorted.
func Supported() []string {
	codes := make([]string, 0, len(languageNames))
	for code := range languageNames {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
