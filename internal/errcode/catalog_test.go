package errcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupKnownCodes(t *testing.T) {
	testCases := []struct {
		raw        string
		wantCode   string
		wantReason string
	}{
		{"601", CodeInsufficientFunds, "The credit card used has insufficient funds available."},
		{"602", CodeExpiredCard, "The credit card used is expired"},
		{"604", CodeInvalidCard, "The credit card used is invalid."},
		{"606", CodeDeclinedByBank, "Invalid Transaction error specified by the credit card company."},
		{"2200", CodeExpiredPaymentMethod, "Operation was not performed because the token has expired."},
		{"2300", CodeExpiredPaymentMethod, "Operation was not performed because the token has expired."},
		{"3101", CodeExpiredPaymentMethod, "Token has expired"},
		{"300", CodeDefault, "The REF_NO specified is not a valid transaction"},
		{"2406", CodeDefault, "BILL_ADDRESS field is mandatory"},
	}

	for _, tc := range testCases {
		code, reason := Lookup(tc.raw)
		assert.Equal(t, tc.wantCode, code, "code for %s", tc.raw)
		assert.Equal(t, tc.wantReason, reason, "reason for %s", tc.raw)
	}
}

func TestLookupUnknownCode(t *testing.T) {
	code, reason := Lookup("9999")
	assert.Equal(t, CodeDefault, code)
	assert.Equal(t, "Unknown error code 9999", reason)
}

func TestLookupALUKnownCodes(t *testing.T) {
	testCases := []struct {
		raw        string
		wantReason string
	}{
		{"AUTHORIZATION_FAILED", "The payment was not authorized."},
		{"INVALID_CC_TOKEN", "CC_TOKEN sent by the Merchant is not valid."},
		{"INVALID_CUSTOMER_INFO", "Required data from the Shopper is missing or is malformed."},
		{"HASH_MISMATCH", "Hash sent by the Merchant does not match the hash calculated by PayU."},
	}

	for _, tc := range testCases {
		code, reason := LookupALU(tc.raw)
		assert.Equal(t, CodeDefault, code, "code for %s", tc.raw)
		assert.Equal(t, tc.wantReason, reason, "reason for %s", tc.raw)
	}
}

func TestLookupALUUnknownCode(t *testing.T) {
	code, reason := LookupALU("SOMETHING_ELSE")
	assert.Equal(t, CodeDefault, code)
	assert.Equal(t, "Unknown error code SOMETHING_ELSE", reason)
}
