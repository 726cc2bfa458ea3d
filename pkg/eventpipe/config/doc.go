/*
Package config loads pipeline settings from YAML or JSON files and the
environment.

# Files

Config wraps a decoded document and provides typed accessors that fall back
to a default when a key is missing or mistyped:

	c, err := config.FromFile("eventpipe.yaml")
	timeout := c.Duration("http_timeout", 10*time.Second)
	retry := c.Section("retry")
	maxRetries := retry.Int("max_retries", 5)

${VAR} references in a file are expanded from the environment before
parsing. FromConfig maps a document onto Settings.

# Environment

Every Settings field can be overridden by an EVENTPIPE_ variable, for
example EVENTPIPE_ENDPOINT, EVENTPIPE_STORE_KIND, EVENTPIPE_RETRY_MAX_RETRIES
or EVENTPIPE_KAFKA_BROKERS (comma separated). Durations use Go syntax ("5s").

	s, err := config.Load("eventpipe.yaml") // file, then env, then Validate
*/
package config
