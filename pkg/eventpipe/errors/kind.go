package errors

// Kind names the outcome classes an event can end in without reaching a provider.
type Kind int

const (
	// KindValidationDrop is a property removed for matching a PII heuristic.
	KindValidationDrop Kind = iota

	// KindConsentBlocked is an event discarded because analytics consent is absent.
	KindConsentBlocked

	// KindDeliveryFailure is a failed first attempt, recovered by queueing.
	KindDeliveryFailure

	// KindRetryExhausted is an event dropped after its final retry.
	KindRetryExhausted
)

// String returns the kind as a snake_case label for metrics and logs.
func (k Kind) String() string {
	switch k {
	case KindValidationDrop:
		return "validation_drop"
	case KindConsentBlocked:
		return "consent_blocked"
	case KindDeliveryFailure:
		return "delivery_failure"
	case KindRetryExhausted:
		return "retry_exhausted"
	default:
		return "unknown"
	}
}
