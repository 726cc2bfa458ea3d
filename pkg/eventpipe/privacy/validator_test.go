package privacy_test

import (
	"bytes"
	"log/slog"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/randalmurphal/eventpipe/pkg/eventpipe/privacy"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/value"
)

func str(v value.Value) string {
	s, _ := v.Str()
	return s
}

func TestValidateEventProperties_Basics(t *testing.T) {
	in := value.Properties{
		"method":    value.String("email"),
		"email":     value.String("a@b.com"),
		"count":     value.Int(3),
		"premium":   value.Bool(true),
		"missing":   value.Null(),
		"note":      value.String("reach me at a@b.com"),
		"Password":  value.String("hunter2"),
		"ip_source": value.String("10.1.2.3"),
	}

	out := privacy.ValidateEventProperties(in)

	assert.Equal(t, "email", str(out["method"]))
	assert.True(t, out["count"].Equal(value.Int(3)))
	assert.True(t, out["premium"].Equal(value.Bool(true)))
	assert.NotContains(t, out, "email", "blocked keyword")
	assert.NotContains(t, out, "Password", "blocklist is case-insensitive")
	assert.NotContains(t, out, "missing", "nulls are omitted")
	assert.NotContains(t, out, "note", "PII value under ordinary key is dropped")
	assert.NotContains(t, out, "ip_source")
	assert.Len(t, out, 3)
}

func TestValidateEventProperties_SensitiveKeysAreRedacted(t *testing.T) {
	in := value.Properties{
		"user_id":         value.String("a@b.com"),
		"conversation_id": value.String("conv-1 from 555-123-4567"),
		"property_id":     value.String("prop-42"),
	}

	out := privacy.ValidateEventProperties(in)

	assert.Equal(t, "[EMAIL_REDACTED]", str(out["user_id"]))
	assert.Equal(t, "conv-1 from [PHONE_REDACTED]", str(out["conversation_id"]))
	assert.Equal(t, "prop-42", str(out["property_id"]))
}

func TestValidateEventProperties_BlockedButSensitive(t *testing.T) {
	v := privacy.New(privacy.WithSensitiveKeys("contact_email"))

	out := v.ValidateEventProperties(value.Properties{
		"contact_email": value.String("a@b.com"),
		"other_email":   value.String("c@d.com"),
	})

	assert.Equal(t, "[EMAIL_REDACTED]", str(out["contact_email"]))
	assert.NotContains(t, out, "other_email")
}

func TestValidateEventProperties_Nested(t *testing.T) {
	in := value.Properties{
		"filters": value.Map(value.Properties{
			"city":    value.String("Brussels"),
			"phone":   value.String("555-123-4567"),
			"contact": value.String("x@y.org"),
			"budget":  value.Map(value.Properties{"max": value.Int(900)}),
		}),
		"tags": value.Array(
			value.String("quiet"),
			value.String("a@b.com"),
			value.Int(2),
			value.Null(),
			value.Map(value.Properties{"email": value.String("z@z.io"), "kind": value.String("pet")}),
			value.Array(value.String("10.0.0.1"), value.Bool(false)),
		),
	}

	out := privacy.ValidateEventProperties(in)

	filters := out["filters"].Fields()
	assert.Equal(t, "Brussels", str(filters["city"]))
	assert.NotContains(t, filters, "phone")
	assert.NotContains(t, filters, "contact")
	assert.True(t, filters["budget"].Fields()["max"].Equal(value.Int(900)))

	tags := out["tags"].Items()
	if assert.Len(t, tags, 4) {
		assert.Equal(t, "quiet", str(tags[0]))
		assert.True(t, tags[1].Equal(value.Int(2)))
		assert.True(t, tags[2].Equal(value.Map(value.Properties{"kind": value.String("pet")})))
		assert.True(t, tags[3].Equal(value.Array(value.Bool(false))))
	}
}

func TestValidateEventProperties_UnsupportedValuesOmitted(t *testing.T) {
	in := value.FromMap(map[string]any{
		"callback": func() {},
		"ok":       "yes",
	})

	out := privacy.ValidateEventProperties(in)

	assert.NotContains(t, out, "callback")
	assert.Equal(t, "yes", str(out["ok"]))
}

func TestValidateEventProperties_PIIKeyNames(t *testing.T) {
	out := privacy.ValidateEventProperties(value.Properties{
		"a@b.com": value.Bool(true),
	})
	assert.Empty(t, out)
}

func TestValidateEventProperties_DoesNotMutateInput(t *testing.T) {
	in := value.Properties{
		"email":   value.String("a@b.com"),
		"user_id": value.String("a@b.com"),
		"nested":  value.Map(value.Properties{"phone": value.String("555-123-4567")}),
	}
	snapshot := in.Clone()

	_ = privacy.ValidateEventProperties(in)

	assert.True(t, snapshot.Equal(in))
}

func TestValidateEventProperties_NilInput(t *testing.T) {
	out := privacy.ValidateEventProperties(nil)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestSignupScenario_EmailNeverTransmitted(t *testing.T) {
	out := privacy.ValidateEventProperties(value.Properties{
		"method": value.String("email"),
		"email":  value.String("a@b.com"),
	})

	data, err := out.MarshalJSON()
	assert.NoError(t, err)
	assert.NotContains(t, string(data), "a@b.com")
	assert.Equal(t, "email", str(out["method"]))
}

func TestValidateUserProperties(t *testing.T) {
	in := value.Properties{
		"user_id":           value.String("u-123"),
		"user_type":         value.String("searcher"),
		"language":          value.String("fr"),
		"subscription_plan": value.String("a@b.com"),
		"properties_count":  value.Int(2),
		"is_verified":       value.Bool(true),
		"country":           value.Map(value.Properties{"code": value.String("BE")}),
		"favorite_color":    value.String("blue"),
		"email":             value.String("a@b.com"),
	}

	out := privacy.ValidateUserProperties(in)

	assert.Equal(t, "u-123", str(out["user_id"]))
	assert.Equal(t, "searcher", str(out["user_type"]))
	assert.Equal(t, "fr", str(out["language"]))
	assert.NotContains(t, out, "subscription_plan", "matching values are dropped, not redacted")
	assert.NotContains(t, out, "country", "nested values are not user traits")
	assert.NotContains(t, out, "favorite_color")
	assert.NotContains(t, out, "email")
	assert.True(t, out["properties_count"].Equal(value.Int(2)))
	assert.True(t, out["is_verified"].Equal(value.Bool(true)))
}

func TestIsSafeValue(t *testing.T) {
	assert.True(t, privacy.IsSafeValue(value.String("hello")))
	assert.True(t, privacy.IsSafeValue(value.Int(5551234567)))
	assert.True(t, privacy.IsSafeValue(value.Bool(true)))
	assert.True(t, privacy.IsSafeValue(value.Null()))
	assert.False(t, privacy.IsSafeValue(value.String("a@b.com")))
	assert.False(t, privacy.IsSafeValue(value.String("123-45-6789")))
}

func TestValidator_OnDropAndDevelopmentLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var reasons []string
	v := privacy.New(
		privacy.WithLogger(logger),
		privacy.WithDevelopment(true),
		privacy.WithOnDrop(func(key, reason string) {
			reasons = append(reasons, key+"="+reason)
		}),
	)

	v.ValidateEventProperties(value.Properties{
		"email": value.String("a@b.com"),
	})

	assert.Equal(t, []string{"email=blocked_key"}, reasons)
	assert.Contains(t, buf.String(), "property dropped")
	assert.NotContains(t, buf.String(), "a@b.com", "values are never logged")
}

func TestValidator_ProductionDoesNotLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	v := privacy.New(privacy.WithLogger(logger))
	v.ValidateEventProperties(value.Properties{"email": value.String("a@b.com")})

	assert.Empty(t, buf.String())
}

func TestValidator_InjectedRules(t *testing.T) {
	v := privacy.New(
		privacy.WithDetector(privacy.NewRegexDetector(privacy.Rule{
			Name:    "order",
			Pattern: regexp.MustCompile(`ORD-\d+`),
			Marker:  "[ORDER]",
		})),
		privacy.WithBlockedKeywords("internal"),
	)

	out := v.ValidateEventProperties(value.Properties{
		"ref":         value.String("ORD-12"),
		"message_id":  value.String("ORD-12"),
		"INTERNAL_id": value.String("x"),
		"email":       value.String("still fine under custom rules"),
	})

	assert.NotContains(t, out, "ref")
	assert.Equal(t, "[ORDER]", str(out["message_id"]))
	assert.NotContains(t, out, "INTERNAL_id")
	assert.True(t, strings.HasPrefix(str(out["email"]), "still"))
}

func TestValidator_WithCopies(t *testing.T) {
	base := privacy.New()
	strict := base.With(privacy.WithBlockedKeywords("method"))

	in := value.Properties{"method": value.String("google")}
	assert.Contains(t, base.ValidateEventProperties(in), "method")
	assert.NotContains(t, strict.ValidateEventProperties(in), "method")
}
