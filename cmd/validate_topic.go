package cmd

import "strings"

// brokers treat some characters in subjects (nats) and topics (mqtt) as
// separators or wildcards. validateSubject returns a sanitized token which
// can be used as part of a subject or topic.
func validateSubject(topic string) string {
	return strings.NewReplacer(
		" ", "_",
		".", "_",
		"/", "_",
		"*", "_",
		">", "_",
		"+", "_",
		"#", "_",
	).Replace(topic)
}
