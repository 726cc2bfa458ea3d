package privacy

import "regexp"

// Rule names used as drop reasons and redaction tags.
const (
	RuleEmail      = "email"
	RulePhone      = "phone"
	RuleCreditCard = "credit_card"
	RuleSSN        = "ssn"
	RuleIPAddress  = "ip_address"
)

// Detector finds personally identifiable information in string values.
// Implementations must be safe for concurrent use.
type Detector interface {
	// Match returns the name of the first rule s matches.
	Match(s string) (rule string, ok bool)

	// Redact replaces every match in s with its rule's marker.
	Redact(s string) string
}

// Rule is one PII pattern and the marker that replaces its matches.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Marker  string
}

// DefaultRules returns the built-in patterns.
//
// Order matters for redaction: card and SSN run before phone so digit groups
// are tagged with the most specific marker.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    RuleEmail,
			Pattern: regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
			Marker:  "[EMAIL_REDACTED]",
		},
		{
			Name:    RuleCreditCard,
			Pattern: regexp.MustCompile(`\b(?:\d{4}[ \-]?){3}\d{4}\b`),
			Marker:  "[CARD_REDACTED]",
		},
		{
			Name:    RuleSSN,
			Pattern: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
			Marker:  "[SSN_REDACTED]",
		},
		{
			Name:    RuleIPAddress,
			Pattern: regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
			Marker:  "[IP_REDACTED]",
		},
		{
			Name:    RulePhone,
			Pattern: regexp.MustCompile(`(?:\+\d{1,3}[ .\-]?)?\(?\d{3}\)?[ .\-]?\d{3}[ .\-]?\d{4}\b`),
			Marker:  "[PHONE_REDACTED]",
		},
	}
}

// RegexDetector is a Detector backed by regular expressions.
type RegexDetector struct {
	rules []Rule
}

// NewRegexDetector creates a detector from rules.
// Rules with a nil Pattern are ignored.
func NewRegexDetector(rules ...Rule) *RegexDetector {
	kept := make([]Rule, 0, len(rules))
	for _, r := range rules {
		if r.Pattern != nil {
			kept = append(kept, r)
		}
	}
	return &RegexDetector{rules: kept}
}

// Match implements Detector.
func (d *RegexDetector) Match(s string) (string, bool) {
	for _, r := range d.rules {
		if r.Pattern.MatchString(s) {
			return r.Name, true
		}
	}
	return "", false
}

// Redact implements Detector.
func (d *RegexDetector) Redact(s string) string {
	for _, r := range d.rules {
		s = r.Pattern.ReplaceAllLiteralString(s, r.Marker)
	}
	return s
}
