package gateway

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
)

// sign computes the HMAC-MD5 request signature over the field values, each
// prefixed with its byte length, in key order. SIGN itself is excluded.
// This matches the hash the gateway recomputes on its side.
func sign(secret string, values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "SIGN" || k == "ORDER_HASH" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	mac := hmac.New(md5.New, []byte(secret))
	for _, k := range keys {
		v := values.Get(k)
		fmt.Fprintf(mac, "%d%s", len(v), v)
	}
	return hex.EncodeToString(mac.Sum(nil))
}

// SignIPNConfirmation computes the hash for the <EPAYMENT> reply sent back
// to the gateway after a settlement notification is accepted.
func SignIPNConfirmation(secret, date string) string {
	mac := hmac.New(md5.New, []byte(secret))
	fmt.Fprintf(mac, "%d%s", len(date), date)
	return hex.EncodeToString(mac.Sum(nil))
}
