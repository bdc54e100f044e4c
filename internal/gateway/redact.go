package gateway

import "net/url"

// RedactionMarker replaces sensitive values in audit logs.
const RedactionMarker = "[REDACTED]"

// Fields redacted from every audit log entry.
var alwaysRedacted = map[string]bool{
	"REF_NO":   true,
	"CC_TOKEN": true,
	"CC_CVV":   true,
	"SIGN":     true,
}

// Additional fields redacted when strict privacy mode is configured.
var strictRedacted = map[string]bool{
	"BROWSER_IP":       true,
	"BILL_ADDRESS":     true,
	"BILL_PHONE":       true,
	"BILL_FNAME":       true,
	"BILL_LNAME":       true,
	"DELIVERY_ADDRESS": true,
	"DELIVERY_PHONE":   true,
	"DELIVERY_FNAME":   true,
	"DELIVERY_LNAME":   true,
}

// Redact returns a copy of the request fields with sensitive values replaced
// by the redaction marker, suitable for storage on transaction metadata.
func Redact(values url.Values, strict bool) map[string]string {
	out := make(map[string]string, len(values))
	for k := range values {
		switch {
		case alwaysRedacted[k]:
			out[k] = RedactionMarker
		case strict && strictRedacted[k]:
			out[k] = RedactionMarker
		default:
			out[k] = values.Get(k)
		}
	}
	return out
}
