// Package tracker is the entry point applications call to record analytics.
//
// A Tracker checks consent on every call, sanitizes properties through a
// privacy.Validator, and dispatches the sanitized event to each registered
// Provider. When any provider fails, the sanitized event is handed to the
// retry queue once. Callers never see an error: tracking is fire-and-forget.
//
// Basic usage:
//
//	t := tracker.New(consentGate, queue, tracker.WithProviders(httpProvider))
//	t.TrackEvent(ctx, tracker.EventSignupCompleted, value.Properties{
//	    "method": value.String("google"),
//	})
//
// Identification is never retried; a failed Identify is only logged in
// development mode.
package tracker
