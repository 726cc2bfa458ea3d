package privacy_test

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/privacy"
)

func TestRegexDetector_Match(t *testing.T) {
	d := privacy.NewRegexDetector(privacy.DefaultRules()...)

	tests := []struct {
		name  string
		input string
		rule  string
		match bool
	}{
		{"email", "contact a@b.com today", privacy.RuleEmail, true},
		{"phone dashed", "555-123-4567", privacy.RulePhone, true},
		{"phone parens", "(555) 123-4567", privacy.RulePhone, true},
		{"phone intl", "+1 555 123 4567", privacy.RulePhone, true},
		{"card spaced", "4111 1111 1111 1111", privacy.RuleCreditCard, true},
		{"card plain", "4111111111111111", privacy.RuleCreditCard, true},
		{"ssn", "123-45-6789", privacy.RuleSSN, true},
		{"ipv4", "192.168.1.20", privacy.RuleIPAddress, true},
		{"plain word", "email", "", false},
		{"short number", "42", "", false},
		{"iso date", "2024-01-15", "", false},
		{"property id", "prop-123", "", false},
		{"uuid", "3f2504e0-4f89-11d3-9a0c-0305e82c3301", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := d.Match(tt.input)
			assert.Equal(t, tt.match, ok)
			assert.Equal(t, tt.rule, rule)
		})
	}
}

func TestRegexDetector_Redact(t *testing.T) {
	d := privacy.NewRegexDetector(privacy.DefaultRules()...)

	assert.Equal(t, "mail [EMAIL_REDACTED] now", d.Redact("mail a@b.com now"))
	assert.Equal(t, "[CARD_REDACTED]", d.Redact("4111-1111-1111-1111"))
	assert.Equal(t, "[SSN_REDACTED]", d.Redact("123-45-6789"))
	assert.Equal(t, "from [IP_REDACTED]", d.Redact("from 10.0.0.1"))
	assert.Equal(t, "call [PHONE_REDACTED]", d.Redact("call 555-123-4567"))
	assert.Equal(t, "nothing here", d.Redact("nothing here"))
}

func TestRegexDetector_CustomRules(t *testing.T) {
	d := privacy.NewRegexDetector(
		privacy.Rule{Name: "order", Pattern: regexp.MustCompile(`ORD-\d+`), Marker: "[ORDER]"},
		privacy.Rule{Name: "ignored"},
	)

	rule, ok := d.Match("ref ORD-991")
	assert.True(t, ok)
	assert.Equal(t, "order", rule)
	assert.Equal(t, "ref [ORDER]", d.Redact("ref ORD-991"))

	_, ok = d.Match("a@b.com")
	assert.False(t, ok, "custom rule set replaces the defaults")
}
