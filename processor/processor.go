// Package processor implements the backend-side payload pipeline: persist a
// record, publish a correlated event, return a success token. The two
// effects are individually atomic but not wrapped in a cross-resource
// transaction - a successful save followed by a failed publish leaves a
// record with no corresponding event. The save always happens first, so the
// reverse (an event without a record) cannot occur.
package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/batchcorp/pbench/correlate"
	"github.com/batchcorp/pbench/types"
)

const (
	TopicSuffix = "-payload-topic"
)

// Saver is the storage collaborator.
type Saver interface {
	SaveRecord(ctx context.Context, record *types.PersistedPayloadRecord) error
}

// Publisher is the messaging collaborator.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type Processor struct {
	store     Saver
	publisher Publisher
	log       *logrus.Entry
}

func New(store Saver, publisher Publisher) (*Processor, error) {
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}

	if publisher == nil {
		return nil, errors.New("publisher cannot be nil")
	}

	return &Processor{
		store:     store,
		publisher: publisher,
		log:       logrus.WithField("pkg", "processor"),
	}, nil
}

// Process persists the request and publishes the corresponding event as one
// logical unit. protocolLabel identifies the caller's transport and selects
// the destination subject. The returned token is the only channel carrying
// the correlation id back to the caller.
func (p *Processor) Process(ctx context.Context, req *types.PayloadRequest, protocolLabel string) (string, error) {
	if req == nil {
		return "", errors.New("request cannot be nil")
	}

	if protocolLabel == "" {
		return "", errors.New("protocol label cannot be empty")
	}

	correlationID := correlate.NewCorrelationID()
	startTime := time.Now().UTC()

	llog := p.log.WithFields(logrus.Fields{
		"correlation_id": correlationID,
		"protocol":       protocolLabel,
	})

	llog.Debugf("processing payload '%s'", req.ID)

	record := &types.PersistedPayloadRecord{
		ID:        req.ID,
		Content:   req.Content,
		Timestamp: correlate.NormalizeTimestamp(req.Timestamp),
		Protocol:  protocolLabel,
	}

	if err := p.store.SaveRecord(ctx, record); err != nil {
		return "", errors.Wrapf(err, "unable to process %s payload", protocolLabel)
	}

	llog.Debugf("saved payload record '%s'", req.ID)

	event := &types.OutgoingEvent{
		UserID:              req.ID,
		Content:             req.Content,
		NotificationType:    types.NotificationNewPayload,
		CorrelationID:       correlationID,
		Protocol:            protocolLabel,
		ProcessingStartTime: startTime.UnixMilli(),
		EmittedAt:           time.Now().UTC().Format(time.RFC3339Nano),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return "", errors.Wrapf(err, "unable to process %s payload: event serialization failed", protocolLabel)
	}

	topic := strings.ToLower(protocolLabel) + TopicSuffix

	if err := p.publisher.Publish(topic, data); err != nil {
		return "", errors.Wrapf(err, "unable to process %s payload: publish to '%s' failed", protocolLabel, topic)
	}

	llog.Debugf("published event to '%s'", topic)

	return fmt.Sprintf("SUCCESS: Processed %s payload with correlation ID: %s", protocolLabel, correlationID), nil
}
