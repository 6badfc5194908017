package log

import (
	"regexp"
	"strings"
)

// Mask replaces all matches of RegExp in a string with Mask.
type Mask struct {
	RegExp *regexp.Regexp
	Mask   string
}

// NewMask creates a new Mask from its configuration.
// Panics if the configured regular expression is invalid.
func NewMask(cfg MaskConfig) Mask {
	return Mask{regexp.MustCompile(cfg.RegExp), cfg.Mask}
}

// FieldMasker masks all occurrences of a single named field in the supported formats.
type FieldMasker struct {
	Field string // Field is a name of a field used in RegExp, must be lowercase
	Masks []Mask
}

// NewFieldMasker creates a new FieldMasker from a masking rule.
func NewFieldMasker(cfg MaskingRuleConfig) FieldMasker {
	fm := FieldMasker{Field: strings.ToLower(cfg.Field), Masks: make([]Mask, 0, len(cfg.Masks)+len(cfg.Formats))}
	for _, maskCfg := range cfg.Masks {
		fm.Masks = append(fm.Masks, NewMask(maskCfg))
	}
	for _, format := range cfg.Formats {
		if mask, ok := formatMask(cfg.Field, format); ok {
			fm.Masks = append(fm.Masks, mask)
		}
	}
	return fm
}

func formatMask(field string, format FieldMaskFormat) (Mask, bool) {
	switch format {
	case FieldMaskFormatHTTPHeader:
		return NewMask(MaskConfig{`(?i)` + field + `: .+?\r\n`, field + ": ***\r\n"}), true
	case FieldMaskFormatJSON:
		return NewMask(MaskConfig{`(?i)"` + field + `"\s*:\s*".*?[^\\]"`, `"` + field + `": "***"`}), true
	case FieldMaskFormatURLEncoded:
		return NewMask(MaskConfig{`(?i)` + field + `\s*=\s*[^&\s]+`, field + "=***"}), true
	}
	return Mask{}, false
}

// Masker masks secrets in strings according to a set of per-field rules.
type Masker struct {
	FieldMasks []FieldMasker
}

// NewMasker creates a new Masker from the given masking rules.
func NewMasker(rules []MaskingRuleConfig) *Masker {
	m := &Masker{FieldMasks: make([]FieldMasker, 0, len(rules))}
	for _, rule := range rules {
		m.FieldMasks = append(m.FieldMasks, NewFieldMasker(rule))
	}
	return m
}

// Mask returns s with all configured secrets masked.
// Regexps of a rule are applied only when s contains the rule's field name.
func (m *Masker) Mask(s string) string {
	lower := strings.ToLower(s)
	for _, fm := range m.FieldMasks {
		if !strings.Contains(lower, fm.Field) {
			continue
		}
		for _, mask := range fm.Masks {
			s = mask.RegExp.ReplaceAllString(s, mask.Mask)
		}
	}
	return s
}

// DefaultMasks is the default set of masking rules.
// It covers the credentials most likely to leak into dashboard and widget logs.
var DefaultMasks = []MaskingRuleConfig{
	{
		Field:   "Authorization",
		Formats: []FieldMaskFormat{FieldMaskFormatHTTPHeader},
	},
	{
		Field:   "Cookie",
		Formats: []FieldMaskFormat{FieldMaskFormatHTTPHeader},
	},
	{
		Field:   "password",
		Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded},
	},
	{
		Field:   "client_secret",
		Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded},
	},
	{
		Field:   "access_token",
		Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded},
	},
	{
		Field:   "refresh_token",
		Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded},
	},
	{
		Field:   "api_key",
		Formats: []FieldMaskFormat{FieldMaskFormatJSON, FieldMaskFormatURLEncoded},
	},
}
