package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/batchcorp/pbench/types"
)

const (
	RESTSendTimeout   = 30 * time.Second
	RESTHealthTimeout = 10 * time.Second

	payloadPath = "/api/payload"
	healthPath  = "/api/health"
)

type RESTAdapter struct {
	baseURL string
	client  *http.Client
	log     *logrus.Entry
}

func NewREST(baseURL string) (*RESTAdapter, error) {
	if baseURL == "" {
		return nil, errors.New("base URL cannot be empty")
	}

	return &RESTAdapter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: RESTSendTimeout},
		log:     logrus.WithField("pkg", "transport.rest"),
	}, nil
}

func (a *RESTAdapter) Label() string {
	return types.TransportREST
}

func (a *RESTAdapter) Send(ctx context.Context, req *types.PayloadRequest) *types.PayloadResponse {
	resp, outcome := a.send(ctx, req)
	if resp != nil {
		return resp
	}

	return outcome.ToResponse(restTransport)
}

func (a *RESTAdapter) send(ctx context.Context, req *types.PayloadRequest) (*types.PayloadResponse, types.Outcome) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, types.FailureOutcome(KindFailed, err.Error())
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+payloadPath, bytes.NewReader(body))
	if err != nil {
		return nil, types.FailureOutcome(KindFailed, err.Error())
	}

	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		a.log.Errorf("unable to send REST payload '%s': %s", req.ID, err)
		return nil, types.FailureOutcome(KindFailed, err.Error())
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, types.FailureOutcome(KindFailed, err.Error())
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, types.FailureOutcome(KindFailed,
			fmt.Sprintf("unexpected HTTP status %d: %s", httpResp.StatusCode, respBody))
	}

	resp := &types.PayloadResponse{}

	if err := json.Unmarshal(respBody, resp); err != nil {
		return nil, types.FailureOutcome(KindFailed, fmt.Sprintf("unable to unmarshal response: %s", err))
	}

	a.log.Debugf("received REST response for payload '%s': %s", req.ID, resp.Status)

	return resp, types.Outcome{}
}

// HealthCheck hits the backend health endpoint and returns the raw body.
// Failures are reported in-band as a DOWN document, matching the send
// path's never-fault contract.
func (a *RESTAdapter) HealthCheck(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, RESTHealthTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Sprintf(`{"status":"DOWN","message":"%s"}`, err)
	}

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		a.log.Errorf("REST health check failed: %s", err)
		return fmt.Sprintf(`{"status":"DOWN","message":"%s"}`, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Sprintf(`{"status":"DOWN","message":"%s"}`, err)
	}

	return string(body)
}
