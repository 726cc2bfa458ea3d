// Package privacy sanitizes analytics property maps before they leave the
// process.
//
// The Validator removes or redacts personally identifiable information using
// two heuristics: a keyword blocklist matched against property names, and a
// Detector matched against string values. Detection is heuristic by nature;
// false positives are accepted in exchange for never forwarding a match.
//
// All operations are pure with respect to their input: they never mutate the
// given map and always return a complete, non-nil map.
package privacy

import (
	"log/slog"
	"strings"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/observability"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/value"
)

// Drop reasons reported to OnDrop.
const (
	ReasonBlockedKey  = "blocked_key"
	ReasonPIIKey      = "pii_key"
	ReasonNotAllowed  = "not_allowed"
	ReasonUnsupported = "unsupported_value"
)

// DefaultBlockedKeywords are matched case-insensitively as substrings of
// property names.
var DefaultBlockedKeywords = []string{
	"email", "e_mail", "password", "passwd", "secret", "token",
	"api_key", "apikey", "access_key", "private_key",
	"credit_card", "card_number", "cvv", "ssn", "social_security",
	"phone", "mobile", "address", "postal_code", "zip_code",
	"iban", "bank_account", "passport", "birth",
}

// DefaultSensitiveKeys are identifiers that are kept even when they look
// sensitive; their values are redacted instead of dropped.
var DefaultSensitiveKeys = []string{
	"user_id", "user_type", "property_id",
	"application_id", "message_id", "conversation_id",
}

// DefaultUserKeys is the allow-list for user properties sent to providers.
var DefaultUserKeys = []string{
	"user_id", "user_type", "language",
	"subscription_plan", "subscription_status",
	"signup_method", "signup_date",
	"onboarding_completed", "onboarding_mode",
	"is_verified", "has_properties", "properties_count",
	"country",
}

// Validator sanitizes property maps.
// A Validator is immutable after construction and safe for concurrent use.
type Validator struct {
	detector    Detector
	blocked     []string
	sensitive   map[string]struct{}
	userKeys    map[string]struct{}
	logger      *slog.Logger
	development bool
	onDrop      func(key, reason string)
}

// Option configures a Validator.
type Option func(*Validator)

// WithDetector replaces the PII detector.
func WithDetector(d Detector) Option {
	return func(v *Validator) {
		v.detector = d
	}
}

// WithBlockedKeywords replaces the key blocklist.
func WithBlockedKeywords(keywords ...string) Option {
	return func(v *Validator) {
		v.blocked = lowerAll(keywords)
	}
}

// WithSensitiveKeys replaces the allowed-sensitive key list.
func WithSensitiveKeys(keys ...string) Option {
	return func(v *Validator) {
		v.sensitive = toSet(keys)
	}
}

// WithUserKeys replaces the user property allow-list.
func WithUserKeys(keys ...string) Option {
	return func(v *Validator) {
		v.userKeys = toSet(keys)
	}
}

// WithLogger sets the logger used for drop logs in development mode.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// WithDevelopment enables debug logging of dropped keys.
// Values are never logged.
func WithDevelopment(enabled bool) Option {
	return func(v *Validator) {
		v.development = enabled
	}
}

// WithOnDrop sets a callback invoked for every dropped key.
func WithOnDrop(fn func(key, reason string)) Option {
	return func(v *Validator) {
		v.onDrop = fn
	}
}

// New creates a Validator with the default rule sets, modified by opts.
func New(opts ...Option) *Validator {
	v := &Validator{
		detector:  NewRegexDetector(DefaultRules()...),
		blocked:   lowerAll(DefaultBlockedKeywords),
		sensitive: toSet(DefaultSensitiveKeys),
		userKeys:  toSet(DefaultUserKeys),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// With returns a copy of v with opts applied.
func (v *Validator) With(opts ...Option) *Validator {
	cp := *v
	for _, opt := range opts {
		opt(&cp)
	}
	return &cp
}

// Default is the validator used by the package-level functions.
var Default = New()

// ValidateEventProperties sanitizes props with the default validator.
func ValidateEventProperties(props value.Properties) value.Properties {
	return Default.ValidateEventProperties(props)
}

// ValidateUserProperties sanitizes props with the default validator.
func ValidateUserProperties(props value.Properties) value.Properties {
	return Default.ValidateUserProperties(props)
}

// IsSafeValue checks v with the default validator.
func IsSafeValue(v value.Value) bool {
	return Default.IsSafeValue(v)
}

// IsSafeValue reports whether v may be forwarded as is.
// Only strings matching a PII rule are unsafe.
func (v *Validator) IsSafeValue(val value.Value) bool {
	s, ok := val.Str()
	if !ok {
		return true
	}
	_, matched := v.detector.Match(s)
	return !matched
}

// ValidateEventProperties returns a sanitized copy of props.
//
// Null values are omitted. Keys containing a blocked keyword are dropped
// unless they are allowed-sensitive, in which case the value is sanitized.
// Strings matching a PII rule are dropped, or redacted under
// allowed-sensitive keys. Maps recurse; arrays keep only safe elements.
func (v *Validator) ValidateEventProperties(props value.Properties) value.Properties {
	return v.sanitizeMap(props, "")
}

// ValidateUserProperties returns a copy of props restricted to the user
// allow-list. Matching string values are dropped, never redacted, and
// nested values are dropped because user traits are scalar.
func (v *Validator) ValidateUserProperties(props value.Properties) value.Properties {
	out := make(value.Properties, len(props))
	for key, val := range props {
		if _, ok := v.userKeys[key]; !ok {
			v.dropped(key, ReasonNotAllowed)
			continue
		}
		switch val.Kind() {
		case value.KindNull:
			continue
		case value.KindString:
			s, _ := val.Str()
			if rule, matched := v.detector.Match(s); matched {
				v.dropped(key, rule)
				continue
			}
			out[key] = val
		case value.KindNumber, value.KindBool:
			out[key] = val
		default:
			v.dropped(key, ReasonUnsupported)
		}
	}
	return out
}

func (v *Validator) sanitizeMap(props value.Properties, prefix string) value.Properties {
	out := make(value.Properties, len(props))
	for key, val := range props {
		if val.IsNull() {
			continue
		}
		path := prefix + key

		sensitive := v.isSensitive(key)
		if !sensitive && v.isBlocked(key) {
			v.dropped(path, ReasonBlockedKey)
			continue
		}
		if rule, matched := v.detector.Match(key); matched && !sensitive {
			v.dropped(path, ReasonPIIKey+":"+rule)
			continue
		}

		clean, ok := v.sanitizeValue(val, path, sensitive)
		if ok {
			out[key] = clean
		}
	}
	return out
}

// sanitizeValue returns the cleaned value and whether it should be kept.
func (v *Validator) sanitizeValue(val value.Value, path string, sensitive bool) (value.Value, bool) {
	switch val.Kind() {
	case value.KindString:
		s, _ := val.Str()
		rule, matched := v.detector.Match(s)
		if !matched {
			return val, true
		}
		if !sensitive {
			v.dropped(path, rule)
			return value.Value{}, false
		}
		redacted := v.detector.Redact(s)
		if _, still := v.detector.Match(redacted); still {
			v.dropped(path, rule)
			return value.Value{}, false
		}
		return value.String(redacted), true
	case value.KindNumber, value.KindBool:
		return val, true
	case value.KindMap:
		return value.Map(v.sanitizeMap(val.Fields(), path+".")), true
	case value.KindArray:
		return value.Array(v.sanitizeArray(val.Items(), path)...), true
	case value.KindNull:
		return value.Value{}, false
	default:
		v.dropped(path, ReasonUnsupported)
		return value.Value{}, false
	}
}

func (v *Validator) sanitizeArray(items []value.Value, path string) []value.Value {
	out := make([]value.Value, 0, len(items))
	for _, item := range items {
		switch item.Kind() {
		case value.KindString:
			s, _ := item.Str()
			if rule, matched := v.detector.Match(s); matched {
				v.dropped(path+"[]", rule)
				continue
			}
			out = append(out, item)
		case value.KindNumber, value.KindBool:
			out = append(out, item)
		case value.KindMap:
			out = append(out, value.Map(v.sanitizeMap(item.Fields(), path+"[].")))
		case value.KindArray:
			out = append(out, value.Array(v.sanitizeArray(item.Items(), path+"[]")...))
		}
	}
	return out
}

func (v *Validator) isBlocked(key string) bool {
	lower := strings.ToLower(key)
	for _, kw := range v.blocked {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (v *Validator) isSensitive(key string) bool {
	_, ok := v.sensitive[key]
	return ok
}

func (v *Validator) dropped(key, reason string) {
	if v.onDrop != nil {
		v.onDrop(key, reason)
	}
	if v.development {
		observability.LogPropertyDropped(v.logger, key, reason)
	}
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

func lowerAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ToLower(w)
	}
	return out
}
