/*
Package eventpipe captures analytics events, strips personally identifiable
information, enforces user consent and delivers events to analytics
providers, retrying failed deliveries from a durable queue.

# Overview

A Pipeline owns every moving part:

  - a privacy.Validator that sanitizes properties before they leave the process
  - a tracker.Tracker that checks consent and dispatches to providers
  - provider.HTTPProvider (always) and provider.KafkaProvider (when brokers
    are configured)
  - a retry.Queue that re-attempts failed events with exponential backoff,
    persisted in a memory, file, SQLite or Redis store

# Basic Usage

	settings, err := config.Load("eventpipe.yaml")
	if err != nil {
	    log.Fatal(err)
	}

	consent := tracker.ConsentFunc(func() bool { return prefs.Analytics })
	p, err := eventpipe.New(ctx, settings, consent)
	if err != nil {
	    log.Fatal(err)
	}
	defer p.Close()
	p.Start(ctx)

	p.Tracker().TrackEvent(ctx, tracker.EventPropertyViewed, value.Properties{
	    "property_id": value.String("prop-42"),
	    "source":      value.String("search"),
	})

# Funnels

Funnel returns a recorder bound to a built-in funnel:

	rec, _ := p.Funnel(funnel.SearcherConversion)
	_ = rec.Step(ctx, "first_property_viewed", nil)

# Consent

Consent is read on every call. Events tracked without consent are discarded,
never queued. Events already queued when consent is withdrawn keep retrying
unless ConsentRevoked is called.
*/
package eventpipe
