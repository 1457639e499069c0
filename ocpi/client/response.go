package client

import (
	"encoding/json"
	"fmt"
)

// StatusSuccess is the OCPI status code of an accepted request.
const StatusSuccess = 1000

type Response struct {
	Data          json.RawMessage `json:"data,omitempty"`
	StatusCode    int             `json:"status_code"`
	StatusMessage string          `json:"status_message,omitempty"`
	Timestamp     string          `json:"timestamp,omitempty"`
}

type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received non-2xx status code: %d", e.Code)
}

// RejectedError is an HTTP success carrying a non-success OCPI status.
type RejectedError struct {
	Code    int
	Message string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("ocpi status %d: %s", e.Code, e.Message)
}

// ParseResponse reads an OCPI response envelope. An empty body is accepted.
func ParseResponse(body []byte) (json.RawMessage, error) {
	if len(body) == 0 {
		return nil, nil
	}
	res := &Response{}
	if err := json.Unmarshal(body, res); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if res.StatusCode != StatusSuccess {
		return nil, &RejectedError{Code: res.StatusCode, Message: res.StatusMessage}
	}
	return res.Data, nil
}
