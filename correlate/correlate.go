// Package correlate generates correlation identifiers and normalizes the
// heterogeneous timestamp strings that arrive on payload requests.
package correlate

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NewCorrelationID returns a fresh, collision-resistant identifier used to
// trace a single processing call across the durable record and the
// published event.
func NewCorrelationID() string {
	return uuid.New().String()
}

// NormalizeTimestamp parses raw as an RFC3339 instant. An empty or
// unparseable value is a recoverable data-quality condition: it is logged
// and substituted with the current instant, never surfaced as an error.
func NormalizeTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Now().UTC()
	}

	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		logrus.WithField("pkg", "correlate").Warnf("unable to parse timestamp '%s', using current time", raw)
		return time.Now().UTC()
	}

	return ts.UTC()
}
