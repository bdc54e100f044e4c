// Package errcode maps PayU gateway status codes to the small normalized
// error vocabulary the billing platform understands. Two independent catalogs
// exist, one per charge protocol: numeric codes for the token (IPN) protocol
// and symbolic codes for the ALU (XML authorization) protocol.
package errcode

import "fmt"

// Normalized codes surfaced to the billing platform.
const (
	CodeDefault              = "default"
	CodeInsufficientFunds    = "insufficient_funds"
	CodeExpiredCard          = "expired_card"
	CodeInvalidCard          = "invalid_card"
	CodeExpiredPaymentMethod = "expired_payment_method"
	CodeDeclinedByBank       = "transaction_declined_by_bank"
)

type entry struct {
	code   string
	reason string
}

var tokenCodes = map[string]entry{
	"300":  {CodeDefault, "The REF_NO specified is not a valid transaction"},
	"400":  {CodeDefault, "The METHOD variable needs to have one of the following values:TOKEN_NEWSALE, TOKEN_CANCEL, TOKEN_GETINFO"},
	"500":  {CodeDefault, "The value of TIMESTAMP differs too much from the current time. Check your system clock and ensure that TIMESTAMP is in UTC timezone."},
	"600":  {CodeDefault, "Make sure that your MerchantID is the same one found in yourPayU Control Panel"},
	"601":  {CodeInsufficientFunds, "The credit card used has insufficient funds available."},
	"602":  {CodeExpiredCard, "The credit card used is expired"},
	"603":  {CodeDefault, "Temporary processing error. Retrying after a few minutes should work."},
	"604":  {CodeInvalidCard, "The credit card used is invalid."},
	"605":  {CodeDefault, "General system error. Retrying after a few minutes should work but if it's not please contact our support team."},
	"606":  {CodeDeclinedByBank, "Invalid Transaction error specified by the credit card company."},
	"607":  {CodeDefault, "The bank is still processing the transaction, check order status using IOS webservice."},
	"1200": {CodeDefault, "There is a problem with your SIGN variable. Please check your code."},
	"1300": {CodeDefault, "The REF_NO you have specified is not valid. Please check the value."},
	"1500": {CodeDefault, "Invalid Token command for the REF_NO you have specified."},
	"1600": {CodeDefault, "Invalid External Ref No"},
	"1900": {CodeDefault, "The AMOUNT value should be a positive number, either integer or a float."},
	"2000": {CodeDefault, "You have exceeded the maximum amount limit for your terminal. Please try again in a few minutes."},
	"2100": {CodeDefault, "CURRENCY variable has an unsupported or invalid value."},
	"2200": {CodeExpiredPaymentMethod, "Operation was not performed because the token has expired."},
	"2300": {CodeExpiredPaymentMethod, "Operation was not performed because the token has expired."},
	"2401": {CodeDefault, "BILL_LNAME field is mandatory"},
	"2402": {CodeDefault, "BILL_FNAME field is mandatory"},
	"2403": {CodeDefault, "BILL_EMAIL field is mandatory"},
	"2404": {CodeDefault, "BILL_EMAIL field is not a valid e-mail"},
	"2405": {CodeDefault, "BILL_PHONE field is mandatory"},
	"2406": {CodeDefault, "BILL_ADDRESS field is mandatory"},
	"2407": {CodeDefault, "BILL_CITY field is mandatory"},
	"2408": {CodeDefault, "DELIVERY_LNAME field is mandatory"},
	"2409": {CodeDefault, "DELIVERY_FNAME field is mandatory"},
	"2410": {CodeDefault, "DELIVERY_PHONE field is mandatory"},
	"2411": {CodeDefault, "DELIVERY_ADDRESS field is mandatory"},
	"2412": {CodeDefault, "DELIVERY_CITY field is mandatory"},
	"2413": {CodeDefault, "DELIVERY_EMAIL field is not a valid e-mail"},
	"2414": {CodeDefault, "BILL_COUNTRYCODE field is not a valid ISO 3166-1 alpha-2country code"},
	"2415": {CodeDefault, "DELIVERY_COUNTRYCODE field is not a valid ISO 3166-1 alpha-2country code"},
	"3000": {CodeDefault, "Invalid number of installments selected"},
	"3100": {CodeDefault, "Token is already persistent"},
	"3101": {CodeExpiredPaymentMethod, "Token has expired"},
	"3200": {CodeDefault, "Token usage on marketplace orders is restricted on this protocol"},
	"4000": {CodeDefault, "Please check if the card scheme used to make the original transaction is still enabled for that merchant."},
}

var aluCodes = map[string]entry{
	"ALREADY_AUTHORIZED":          {CodeDefault, "Tried to place a new order with the same ORDER_REF and HASH as previous one."},
	"AUTHORIZATION_FAILED":        {CodeDefault, "The payment was not authorized."},
	"INVALID_CUSTOMER_INFO":       {CodeDefault, "Required data from the Shopper is missing or is malformed."},
	"INVALID_PAYMENT_INFO":        {CodeDefault, "Card data is not correct."},
	"INVALID_ACCOUNT":             {CodeDefault, "The Merchant name is not correct."},
	"INVALID_PAYMENT_METHOD_CODE": {CodeDefault, "Payment method code is NOT recognized."},
	"INVALID_CURRENCY":            {CodeDefault, "Payment currency is not recognized."},
	"REQUEST_EXPIRED":             {CodeDefault, "The request has expired based on provided ORDER_DATE."},
	"HASH_MISMATCH":               {CodeDefault, "Hash sent by the Merchant does not match the hash calculated by PayU."},
	"WRONG_VERSION":               {CodeDefault, "ALU version sent by the Merchant does not exist."},
	"INVALID_CC_TOKEN":            {CodeDefault, "CC_TOKEN sent by the Merchant is not valid."},
}

// Lookup resolves a token-protocol status code to its normalized
// (code, reason) pair. Unknown codes map to the default sentinel.
func Lookup(raw string) (string, string) {
	if e, ok := tokenCodes[raw]; ok {
		return e.code, e.reason
	}
	return CodeDefault, fmt.Sprintf("Unknown error code %s", raw)
}

// LookupALU resolves an ALU-protocol RETURN_CODE the same way.
func LookupALU(raw string) (string, string) {
	if e, ok := aluCodes[raw]; ok {
		return e.code, e.reason
	}
	return CodeDefault, fmt.Sprintf("Unknown error code %s", raw)
}
