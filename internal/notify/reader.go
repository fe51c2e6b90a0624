package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ReaderClient pushes a remote RFID reader into enrollment mode so its next
// scans are attributed to the enrolling identity instead of the gate.
type ReaderClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewReaderClient(baseURL, apiKey string) *ReaderClient {
	return &ReaderClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *ReaderClient) EnterEnrollMode(ctx context.Context, identityID string) error {
	payload, err := json.Marshal(map[string]string{"identity_id": identityID})
	if err != nil {
		return fmt.Errorf("marshal enroll mode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/mode/register", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("enroll mode request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-KEY", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("enroll mode send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("enroll mode: status %d", resp.StatusCode)
	}
	return nil
}
