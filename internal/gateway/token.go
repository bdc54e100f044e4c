package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/silverbill/payu/internal/errcode"
)

// TokenProtocol charges a previously stored token via the JSON-over-HTTP
// token API. Success is reported by a numeric `code` field equal to zero.
type TokenProtocol struct {
	Merchant string
	Secret   string
	Endpoint string
	Client   *http.Client
}

func NewTokenProtocol(merchant, secret, endpoint string, client *http.Client) *TokenProtocol {
	return &TokenProtocol{Merchant: merchant, Secret: secret, Endpoint: endpoint, Client: client}
}

func (p *TokenProtocol) BuildRequest(order ChargeOrder) (url.Values, error) {
	if order.Token == "" {
		return nil, fmt.Errorf("missing charge token")
	}

	values := url.Values{}
	for k, v := range order.Fields {
		values.Set(k, v)
	}
	values.Set("MERCHANT", p.Merchant)
	values.Set("METHOD", "TOKEN_NEWSALE")
	values.Set("REF_NO", order.Token)
	values.Set("TIMESTAMP", time.Now().UTC().Format("20060102150405"))
	values.Set("SIGN", sign(p.Secret, values))

	return values, nil
}

func (p *TokenProtocol) Send(values url.Values) ([]byte, error) {
	return post(p.Client, p.Endpoint, values)
}

func (p *TokenProtocol) ParseResponse(body []byte) Outcome {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return Outcome{
			Success: false,
			Code:    errcode.CodeDefault,
			Reason:  err.Error(),
			Raw:     string(body),
		}
	}

	rawCode, ok := payload["code"]
	if !ok {
		return Outcome{
			Success: false,
			Code:    errcode.CodeDefault,
			Reason:  fmt.Sprintf("Missing payu error code.(%s)", strings.TrimSpace(string(body))),
			Raw:     string(body),
		}
	}

	// JSON numbers decode as float64; fmt.Sprint renders integral ones
	// without a fraction, so "0" and 0 normalize alike. Anything that is not
	// a whole number is a malformed response and must never pass as success.
	code := fmt.Sprint(rawCode)
	n, err := strconv.Atoi(code)
	if err != nil {
		return Outcome{
			Success: false,
			Code:    errcode.CodeDefault,
			Reason:  fmt.Sprintf("Invalid payu error code %q: %v", code, err),
			Raw:     string(body),
		}
	}
	if n == 0 {
		return Outcome{Success: true, Code: "0", Raw: string(body)}
	}
	code = strconv.Itoa(n)

	silverCode, reason := errcode.Lookup(code)
	return Outcome{
		Success:    false,
		Code:       silverCode,
		Reason:     reason,
		ReturnCode: code,
		Raw:        string(body),
	}
}
