package processor

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/silverbill/payu/internal/domain"
)

// OrderLine is a single line item in the hosted-payment form body.
type OrderLine struct {
	PName     string `json:"PNAME"`
	PCode     string `json:"PCODE"`
	Price     string `json:"PRICE"`
	PriceType string `json:"PRICE_TYPE"`
	VAT       string `json:"VAT"`
}

// FormData is the hosted-payment form body handed to the host for rendering.
// The host owns the HTML; this is only the field set.
type FormData struct {
	Fields map[string]string `json:"fields"`
	Order  []OrderLine       `json:"order"`
}

// GetForm builds the hosted-payment form body for a transaction and, the
// first time a customer reaches the form, freezes their billing details into
// the payment method's archived snapshot. The snapshot is what every future
// recurring charge uses, regardless of later changes to the live customer.
func (p *Processor) GetForm(transactionID string) (*FormData, error) {
	tx, err := p.txns.GetByID(transactionID)
	if err != nil {
		return nil, fmt.Errorf("load transaction %s: %w", transactionID, err)
	}

	pm, err := p.methods.GetByID(tx.PaymentMethodID)
	if err != nil {
		return nil, fmt.Errorf("load payment method %s: %w", tx.PaymentMethodID, err)
	}

	snapshot, err := pm.ArchivedCustomer(p.cipher)
	if err != nil {
		return nil, err
	}

	if len(snapshot) == 0 {
		customer, err := p.customers.GetByID(pm.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("load customer %s: %w", pm.CustomerID, err)
		}
		if err := p.archiveCustomer(pm, customer); err != nil {
			return nil, err
		}
	}

	name, code := productName(tx)
	fields := map[string]string{
		"ORDER_REF":       tx.ID,
		"ORDER_DATE":      time.Now().UTC().Format("2006-01-02 15:04:05"),
		"PRICES_CURRENCY": tx.Currency,
		"CURRENCY":        tx.Currency,
		"PAY_METHOD":      "CCVISAMC",
		"AUTOMODE":        "1",
		"BACK_REF":        fmt.Sprintf("%s/pay/%s/complete", strings.TrimRight(p.baseURL, "/"), tx.ID),
		"LU_ENABLE_TOKEN": "1",
	}

	taxPercent := "0"
	if tx.Document != nil {
		taxPercent = tx.Document.TaxPercent.String()
	}

	return &FormData{
		Fields: fields,
		Order: []OrderLine{{
			PName:     name,
			PCode:     code,
			Price:     tx.Amount.String(),
			PriceType: "GROSS",
			VAT:       taxPercent,
		}},
	}, nil
}

// archiveCustomer freezes the live customer record into the payment method's
// encrypted snapshot. The write is guarded so a concurrent first submission
// cannot replace an already-archived snapshot.
func (p *Processor) archiveCustomer(pm *domain.PaymentMethod, customer *domain.Customer) error {
	snapshot := map[string]string{
		"BILL_FNAME":       customer.FirstName,
		"BILL_LNAME":       customer.LastName,
		"BILL_EMAIL":       customer.Email,
		"BILL_PHONE":       customer.Phone,
		"BILL_CITY":        customer.City,
		"BILL_COUNTRYCODE": customer.Country,
		"BILL_ADDRESS":     strings.TrimSpace(customer.Address1 + " " + customer.Address2),
	}
	if customer.SalesTaxNumber != "" {
		snapshot["BILL_FISCALCODE"] = customer.SalesTaxNumber
	}

	if err := pm.SetArchivedCustomer(p.cipher, snapshot); err != nil {
		return err
	}

	stored, err := p.methods.SetArchivedCustomerIfEmpty(pm.ID, pm.EncryptedCustomer)
	if err != nil {
		return err
	}
	if !stored {
		log.Printf("[processor] archived customer already present on %s, keeping first snapshot", pm.ID)
	}
	return nil
}
