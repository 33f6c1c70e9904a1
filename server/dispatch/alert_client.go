package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/HARINII2415/femina360/shared"
	"github.com/pkg/errors"
)

// HTTPAlertClient posts alert payloads to a remote notification endpoint
// speaking the same wire format as the built-in /emergency-alert route.
type HTTPAlertClient struct {
	endpoint string
	client   *http.Client
}

func NewHTTPAlertClient(endpoint string) *HTTPAlertClient {
	return &HTTPAlertClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPAlertClient) Notify(ctx context.Context, payload shared.AlertPayload) (shared.AlertReceipt, error) {
	var receipt shared.AlertReceipt

	body, err := json.Marshal(payload)
	if err != nil {
		return receipt, fmt.Errorf("json.Marshal: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return receipt, fmt.Errorf("http.NewRequestWithContext: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return receipt, fmt.Errorf("http.Client.Do: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return receipt, errors.Errorf("alert endpoint returned %v", resp.StatusCode)
	}

	respBody := struct {
		Success        bool `json:"success"`
		SmsCount       int  `json:"smsCount"`
		CallsInitiated int  `json:"callsInitiated"`
	}{}
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return receipt, fmt.Errorf("json.Decode: %v", err)
	}

	receipt.SmsCount = respBody.SmsCount
	receipt.CallsInitiated = respBody.CallsInitiated
	return receipt, nil
}
