// Package provider contains analytics destinations for the tracker.
//
// HTTPProvider posts events to the ingestion endpoint with the same wire
// format the retry queue uses, so a failed first attempt and its retries are
// indistinguishable to the server. KafkaProvider publishes events to a Kafka
// topic.
//
// Providers receive properties that were already sanitized by the tracker.
package provider
