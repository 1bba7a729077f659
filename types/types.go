package types

import (
	"fmt"
	"time"
)

const (
	SuccessStatus ResponseStatus = "success"
	ErrorStatus   ResponseStatus = "error"

	TransportREST      = "REST"
	TransportUnary     = "RPC_UNARY"
	TransportStreaming = "RPC_STREAMING"

	NotificationNewPayload = "NEW_PAYLOAD"
)

type ResponseStatus string

// PayloadRequest is the logical unit of work sent over every transport.
// The field names are the wire names for both the REST body and the gRPC
// JSON codec - all three bindings must stay interchangeable.
type PayloadRequest struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
	Protocol  string `json:"protocol"`
}

// PayloadResponse is the normalized outcome returned by every transport.
// Both fields are always set.
type PayloadResponse struct {
	Status  ResponseStatus `json:"status"`
	Message string         `json:"message"`
}

// BenchmarkResult captures one transport's wall-clock span for a single
// orchestration run. Duration is measured at the orchestrator boundary and
// includes transport + processing + marshalling.
type BenchmarkResult struct {
	Protocol       string         `json:"protocol"`
	DurationMillis int64          `json:"duration_millis"`
	Status         ResponseStatus `json:"status"`
	Message        string         `json:"message"`
	StartTime      int64          `json:"start_time"`
	EndTime        int64          `json:"end_time"`
}

// BenchmarkResultSet is keyed by the fixed transport labels.
type BenchmarkResultSet map[string]*BenchmarkResult

// PersistedPayloadRecord is the durable entity written by the processor.
// Never mutated after creation; a duplicate id overwrites (last-write-wins).
type PersistedPayloadRecord struct {
	ID        string    `msgpack:"id"`
	Content   string    `msgpack:"content"`
	Timestamp time.Time `msgpack:"timestamp"`
	Protocol  string    `msgpack:"protocol"`
}

// OutgoingEvent is published once per successful processing call to the
// protocol-specific subject '<protocol-lowercase>-payload-topic'.
type OutgoingEvent struct {
	UserID              string `json:"user_id"`
	Content             string `json:"content"`
	NotificationType    string `json:"notification_type"`
	CorrelationID       string `json:"correlation_id"`
	Protocol            string `json:"protocol"`
	ProcessingStartTime int64  `json:"processing_start_time"`
	EmittedAt           string `json:"emitted_at"`
}

// Outcome unifies the three backend error vocabularies (gRPC status codes,
// HTTP/timeout errors, stream conditions) before any PayloadResponse is
// constructed, so the conversion logic exists once instead of per adapter.
type Outcome struct {
	OK      bool
	Message string
	Kind    string
	Detail  string
}

func SuccessOutcome(msg string) Outcome {
	return Outcome{OK: true, Message: msg}
}

func FailureOutcome(kind, detail string) Outcome {
	return Outcome{Kind: kind, Detail: detail}
}

// ToResponse converts an Outcome into the PayloadResponse a caller sees.
// The transport name is included on failure so the orchestrator can record
// which boundary produced the error.
func (o Outcome) ToResponse(transport string) *PayloadResponse {
	if o.OK {
		return &PayloadResponse{
			Status:  SuccessStatus,
			Message: o.Message,
		}
	}

	return &PayloadResponse{
		Status:  ErrorStatus,
		Message: fmt.Sprintf("%s %s: %s", transport, o.Kind, o.Detail),
	}
}
