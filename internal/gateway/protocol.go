// Package gateway implements the PayU charge protocols. Two variants exist
// as a closed set behind the Protocol interface: the token (JSON) protocol
// for plain recurring charges and the ALU (XML) protocol, which additionally
// carries browser fingerprint data for strong customer authentication.
package gateway

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ChargeOrder is the protocol-independent charge input assembled by the
// processor: the decrypted recurring token, the merged billing/delivery/order
// field set and, for the ALU variant, the stored browser fingerprint.
type ChargeOrder struct {
	Token   string
	Fields  map[string]string
	ThreeDS map[string]string
}

// Outcome is the normalized result of a charge attempt. Code and Reason come
// from the error catalog; Status, ReturnCode and ReturnMessage preserve the
// raw ALU diagnostics for transaction metadata.
type Outcome struct {
	Success       bool
	Code          string
	Reason        string
	Status        string
	ReturnCode    string
	ReturnMessage string
	Raw           string
}

// Protocol is the charge-protocol capability. A single variant is selected at
// configuration time per processor; implementations must be safe for
// concurrent use.
type Protocol interface {
	// BuildRequest assembles the signed wire request without sending it.
	BuildRequest(order ChargeOrder) (url.Values, error)
	// Send performs the blocking gateway call. The caller owns any deadline
	// via the injected http.Client; there is no internal retry.
	Send(values url.Values) ([]byte, error)
	// ParseResponse turns a raw gateway body into a normalized outcome.
	// It never panics on malformed input.
	ParseResponse(body []byte) Outcome
}

// post form-encodes the values against the given endpoint and returns the
// raw response body. Non-2xx statuses are transport errors.
func post(client *http.Client, endpoint string, values url.Values) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	return body, nil
}
