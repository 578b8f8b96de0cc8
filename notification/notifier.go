package notification

import (
	"context"
	"errors"
	"strings"
)

// Notifier delivers lifecycle events.
type Notifier interface {
	Notify(ctx context.Context, event *Event) error
}

// MultiNotifier delivers each event to every notifier in the list and
// reports all failures together.
type MultiNotifier []Notifier

// Notify calls each notifier in turn, skipping nil entries.
func (m MultiNotifier) Notify(ctx context.Context, event *Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NoopNotifier discards every event.
type NoopNotifier struct{}

// Notify returns nil.
func (NoopNotifier) Notify(context.Context, *Event) error { return nil }

// ParseTopics splits a comma-separated list of topic ARNs, dropping blanks
// and repeats.
func ParseTopics(s string) []string {
	var topics []string
	seen := make(map[string]bool)
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		topics = append(topics, t)
	}
	return topics
}

// NewTopicNotifier publishes to each topic through one SNS client.
// With no topics it returns a NoopNotifier.
func NewTopicNotifier(client SNSAPI, topicARNs ...string) Notifier {
	switch len(topicARNs) {
	case 0:
		return NoopNotifier{}
	case 1:
		return NewSNSNotifierWithClient(client, topicARNs[0])
	}
	m := make(MultiNotifier, 0, len(topicARNs))
	for _, arn := range topicARNs {
		m = append(m, NewSNSNotifierWithClient(client, arn))
	}
	return m
}
