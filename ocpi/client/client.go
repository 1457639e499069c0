package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const attempts = 3

type Client struct {
	client  *http.Client
	url     string
	token   string
	backoff time.Duration
	log     zerolog.Logger
}

func New(url, token string, log zerolog.Logger) *Client {
	return &Client{
		url:     url,
		token:   token,
		client:  &http.Client{Timeout: 5 * time.Second},
		backoff: 10 * time.Second,
		log:     log,
	}
}

// SetBackoff sets the base delay between attempts; attempt n waits n times it.
func (c *Client) SetBackoff(backoff time.Duration) {
	c.backoff = backoff
}

// Do sends data as JSON and returns the data field of the OCPI response.
// Transport errors and 5xx responses are retried; ctx bounds the whole call.
func (c *Client) Do(ctx context.Context, method, endpoint string, data interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshalling body: %w", err)
	}
	for attempt := 1; ; attempt++ {
		resp, err := c.doRequest(ctx, method, endpoint, body)
		if err == nil {
			return resp, nil
		}
		if !retryable(err) || attempt == attempts {
			return nil, err
		}
		c.log.Warn().Err(err).Str("endpoint", endpoint).Int("attempt", attempt).Msg("ocpi request failed")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * c.backoff):
		}
	}
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body []byte) (json.RawMessage, error) {
	url := fmt.Sprintf("%v%v", c.url, endpoint)

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return ParseResponse(body)
}

func retryable(err error) bool {
	if se, ok := err.(*StatusError); ok {
		return se.Code >= 500
	}
	_, rejected := err.(*RejectedError)
	return !rejected
}
