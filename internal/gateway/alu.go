package gateway

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/silverbill/payu/internal/errcode"
)

// epayment is the ALU response envelope.
type epayment struct {
	XMLName       xml.Name `xml:"EPAYMENT"`
	RefNo         string   `xml:"REFNO"`
	OrderRef      string   `xml:"ORDER_REF"`
	Status        string   `xml:"STATUS"`
	ReturnCode    string   `xml:"RETURN_CODE"`
	ReturnMessage string   `xml:"RETURN_MESSAGE"`
	Hash          string   `xml:"HASH"`
}

// ALUProtocol charges a stored token through the XML authorization API.
// Unlike the token protocol it forwards the browser fingerprint collected for
// strong customer authentication challenges.
type ALUProtocol struct {
	Merchant string
	Secret   string
	Endpoint string
	Client   *http.Client
}

func NewALUProtocol(merchant, secret, endpoint string, client *http.Client) *ALUProtocol {
	return &ALUProtocol{Merchant: merchant, Secret: secret, Endpoint: endpoint, Client: client}
}

func (p *ALUProtocol) BuildRequest(order ChargeOrder) (url.Values, error) {
	if order.Token == "" {
		return nil, fmt.Errorf("missing charge token")
	}

	values := url.Values{}
	for k, v := range order.Fields {
		values.Set(k, v)
	}
	for k, v := range order.ThreeDS {
		if v != "" {
			values.Set(k, v)
		}
	}
	values.Set("MERCHANT", p.Merchant)
	values.Set("CC_TOKEN", order.Token)
	values.Set("ORDER_DATE", time.Now().UTC().Format("2006-01-02 15:04:05"))
	values.Set("PAY_METHOD", "CCVISAMC")
	values.Set("ORDER_HASH", sign(p.Secret, values))

	return values, nil
}

func (p *ALUProtocol) Send(values url.Values) ([]byte, error) {
	return post(p.Client, p.Endpoint, values)
}

func (p *ALUProtocol) ParseResponse(body []byte) Outcome {
	var resp epayment
	if err := xml.Unmarshal(body, &resp); err != nil {
		return Outcome{
			Success: false,
			Code:    errcode.CodeDefault,
			Reason:  err.Error(),
			Raw:     string(body),
		}
	}

	if resp.Status == "SUCCESS" {
		return Outcome{
			Success: true,
			Status:  resp.Status,
			Raw:     string(body),
		}
	}

	silverCode, reason := errcode.LookupALU(resp.ReturnCode)
	return Outcome{
		Success:       false,
		Code:          silverCode,
		Reason:        reason,
		Status:        resp.Status,
		ReturnCode:    resp.ReturnCode,
		ReturnMessage: resp.ReturnMessage,
		Raw:           string(body),
	}
}
