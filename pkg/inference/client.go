package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"
)

// RawDetection is one label/confidence pair as emitted by the detection
// engine. The engine does not guarantee any ordering or normalization;
// ranking is the aggregator's job.
type RawDetection struct {
	Label      string
	Confidence float64
	Box        BoundingBox
}

// BoundingBox is the pixel-space region of a detection. Zero value when the
// engine omits coordinates.
type BoundingBox struct {
	X1, Y1, X2, Y2 float64
}

// Failure is returned for transport errors, non-success responses and
// malformed payloads from the engine. An empty detection list is a valid
// success and never produces a Failure.
type Failure struct {
	StatusCode int // 0 when the request never got a response
	Reason     string
}

func (f *Failure) Error() string {
	if f.StatusCode != 0 {
		return fmt.Sprintf("inference engine returned HTTP %d: %s", f.StatusCode, f.Reason)
	}
	return "inference request failed: " + f.Reason
}

const (
	defaultEndpoint = "http://127.0.0.1:8000/api/scan"
	defaultTimeout  = 45 * time.Second
	defaultRetryMax = 2
)

// Config controls how the inference client talks to the engine.
type Config struct {
	Endpoint   string
	Timeout    time.Duration
	RetryMax   int
	HTTPClient *retryablehttp.Client
}

// Client submits encoded frames to the detection engine and parses raw
// detections out of the response. It never interprets or ranks them.
type Client struct {
	endpoint string
	client   *retryablehttp.Client
}

func NewClient(cfg Config) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	client := cfg.HTTPClient
	if client == nil {
		client = retryablehttp.NewClient()
		client.Logger = log.New(io.Discard, "", 0)
		if cfg.RetryMax > 0 {
			client.RetryMax = cfg.RetryMax
		} else {
			client.RetryMax = defaultRetryMax
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client.HTTPClient.Timeout = timeout
	}

	return &Client{endpoint: endpoint, client: client}
}

type scanRequest struct {
	Image string `json:"image"`
}

// Infer posts a data-URL encoded frame and returns the engine's detections.
// The details field some deployments embed in the response is ignored here;
// enrichment happens downstream against the catalog.
func (c *Client) Infer(ctx context.Context, frameDataURL string) ([]RawDetection, error) {
	body, err := json.Marshal(scanRequest{Image: frameDataURL})
	if err != nil {
		return nil, err
	}

	req, err := retryablehttp.NewRequest(http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Failure{Reason: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Failure{Reason: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := http.StatusText(resp.StatusCode)
		// Surface the engine's own error detail when it sends one.
		if detail := gjson.GetBytes(respBody, "detail").String(); detail != "" {
			reason = detail
		}
		return nil, &Failure{StatusCode: resp.StatusCode, Reason: reason}
	}

	if !gjson.ValidBytes(respBody) {
		return nil, &Failure{StatusCode: resp.StatusCode, Reason: "malformed response body"}
	}
	parsed := gjson.GetBytes(respBody, "detections")
	if !parsed.Exists() {
		return nil, &Failure{StatusCode: resp.StatusCode, Reason: "response has no detections field"}
	}

	detections := []RawDetection{}
	for _, d := range parsed.Array() {
		detections = append(detections, RawDetection{
			Label:      d.Get("label").String(),
			Confidence: d.Get("confidence").Float(),
			Box: BoundingBox{
				X1: d.Get("bbox.x1").Float(),
				Y1: d.Get("bbox.y1").Float(),
				X2: d.Get("bbox.x2").Float(),
				Y2: d.Get("bbox.y2").Float(),
			},
		})
	}
	return detections, nil
}
