package syncclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/quentinrf/fermpi/internal/domain"
)

const (
	setpointPath  = "/fermpi/get-set-temp"
	telemetryPath = "/fermpi/temp-client"
)

// Client speaks the controller side of the sync protocol over HTTP.
// It implements ports.SetpointSyncer.
type Client struct {
	http *resty.Client
}

type telemetryRequest struct {
	TempInner float64 `json:"temp_inner"`
	TempOuter float64 `json:"temp_outer"`
	TempSet   float64 `json:"temp_set"`
}

type ackResponse struct {
	Message string `json:"message"`
}

// New creates a client for the server at baseURL. tlsCfg may be nil.
func New(baseURL string, tlsCfg *tls.Config, timeout time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json, text/plain")

	if tlsCfg != nil {
		c.SetTLSClientConfig(tlsCfg)
	}

	return &Client{http: c}
}

// FetchSetpoint reads and parses the "<temp_set>,<th_set>,<th_outer>" triple
func (c *Client) FetchSetpoint(ctx context.Context) (*domain.SetpointConfig, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(setpointPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch setpoint: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch setpoint: server answered %s", resp.Status())
	}

	cfg, err := domain.ParseSetpointTriple(resp.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse setpoint: %w", err)
	}
	return cfg, nil
}

// PushTelemetry sends one sample. The server acknowledges even when it
// could not store it, so a nil error only means the push was delivered.
func (c *Client) PushTelemetry(ctx context.Context, inner, outer, set float64) error {
	var ack ackResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(telemetryRequest{TempInner: inner, TempOuter: outer, TempSet: set}).
		SetResult(&ack).
		Post(telemetryPath)
	if err != nil {
		return fmt.Errorf("failed to push telemetry: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("failed to push telemetry: server answered %s", resp.Status())
	}
	return nil
}
