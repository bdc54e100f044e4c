// Package processor implements the payment-processor surface exposed to the
// host billing system: billing form assembly, recurring charge execution,
// redirect callback handling and gateway status mapping.
package processor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"

	"github.com/silverbill/payu/internal/domain"
	"github.com/silverbill/payu/internal/gateway"
	"github.com/silverbill/payu/internal/reconciler"
	"github.com/silverbill/payu/internal/repository"
)

// ErrNotSupported marks processor operations this gateway integration does
// not implement (refunds and voids).
var ErrNotSupported = errors.New("operation not supported")

// PaymentProcessor is the contract the host billing system drives.
type PaymentProcessor interface {
	GetForm(transactionID string) (*FormData, error)
	ExecuteTransaction(transactionID string) bool
	RefundTransaction(transactionID string) error
	VoidTransaction(transactionID string) error
	HandleTransactionResponse(transactionID string, query url.Values) error
	UpdateTransactionStatus(transactionID, status string) error
}

var _ PaymentProcessor = (*Processor)(nil)

type Processor struct {
	txns      *repository.TransactionRepo
	methods   *repository.PaymentMethodRepo
	customers *repository.CustomerRepo
	cipher    domain.Cipher
	protocol  gateway.Protocol
	rec       *reconciler.Reconciler

	baseURL       string
	strictPrivacy bool
}

func New(
	txns *repository.TransactionRepo,
	methods *repository.PaymentMethodRepo,
	customers *repository.CustomerRepo,
	cipher domain.Cipher,
	protocol gateway.Protocol,
	rec *reconciler.Reconciler,
	baseURL string,
	strictPrivacy bool,
) *Processor {
	return &Processor{
		txns:          txns,
		methods:       methods,
		customers:     customers,
		cipher:        cipher,
		protocol:      protocol,
		rec:           rec,
		baseURL:       baseURL,
		strictPrivacy: strictPrivacy,
	}
}

// deliveryFields derives the DELIVERY_* block from the archived billing
// snapshot. Every billing field it mirrors is mandatory; a missing one is
// reported without contacting the gateway.
func deliveryFields(billing map[string]string) (map[string]string, string) {
	mirror := []struct{ dst, src string }{
		{"DELIVERY_ADDRESS", "BILL_ADDRESS"},
		{"DELIVERY_CITY", "BILL_CITY"},
		{"DELIVERY_EMAIL", "BILL_EMAIL"},
		{"DELIVERY_FNAME", "BILL_FNAME"},
		{"DELIVERY_LNAME", "BILL_LNAME"},
		{"DELIVERY_PHONE", "BILL_PHONE"},
	}
	delivery := make(map[string]string, len(mirror))
	for _, m := range mirror {
		v, ok := billing[m.src]
		if !ok {
			return nil, m.src
		}
		delivery[m.dst] = v
	}
	return delivery, ""
}

// productName derives the order description from the billing document, or a
// generic one when no document is attached.
func productName(tx *domain.Transaction) (string, string) {
	if tx.Document == nil {
		return "Payment", "payment"
	}
	name := fmt.Sprintf("Payment for %s %s-%s", tx.Document.Kind, tx.Document.Series, tx.Document.Number)
	code := fmt.Sprintf("%s-%s", tx.Document.Series, tx.Document.Number)
	return name, code
}

// ExecuteTransaction attempts a recurring charge for a transaction that must
// currently be pending. It reports success as a boolean; failures are
// annotated onto the transaction and never surface as an error to the host.
func (p *Processor) ExecuteTransaction(transactionID string) bool {
	tx, err := p.txns.GetByID(transactionID)
	if err != nil {
		log.Printf("[processor] load transaction %s: %v", transactionID, err)
		return false
	}

	// Stale or wrong-state transactions never reach the gateway: a charge
	// cannot be retracted once sent, so the precondition is the only
	// duplicate-send guard.
	if tx.State != domain.StatePending {
		log.Printf("[processor] refusing to charge %s in state %s", tx.ID, tx.State)
		return false
	}

	pm, err := p.methods.GetByID(tx.PaymentMethodID)
	if err != nil {
		log.Printf("[processor] load payment method %s: %v", tx.PaymentMethodID, err)
		return false
	}

	token, err := pm.Token(p.cipher)
	if err != nil {
		p.failSwallowed(tx.ID, "", err.Error())
		return false
	}

	billing, err := pm.ArchivedCustomer(p.cipher)
	if err != nil {
		p.failSwallowed(tx.ID, "", err.Error())
		return false
	}

	delivery, missing := deliveryFields(billing)
	if missing != "" {
		p.failSwallowed(tx.ID, "", fmt.Sprintf("Invalid customer details. ['%s']", missing))
		return false
	}

	name, code := productName(tx)
	fields := map[string]string{
		"AMOUNT":       tx.Amount.String(),
		"CURRENCY":     tx.Currency,
		"EXTERNAL_REF": tx.ID,
		"ORDER_PNAME":  name,
		"ORDER_PCODE":  code,
	}
	for k, v := range billing {
		fields[k] = v
	}
	for k, v := range delivery {
		fields[k] = v
	}

	order := gateway.ChargeOrder{Token: token, Fields: fields, ThreeDS: pm.ThreeDSData}

	request, err := p.protocol.BuildRequest(order)
	if err != nil {
		p.failSwallowed(tx.ID, "", err.Error())
		return false
	}

	meta := tx.Meta
	meta.RequestLog = encodeAuditLog(gateway.Redact(request, p.strictPrivacy))

	body, err := p.protocol.Send(request)
	if err != nil {
		// Transport failure. Retry belongs to the host's scheduler, not here.
		meta.Error = err.Error()
		p.saveMeta(tx.ID, meta)
		p.failSwallowed(tx.ID, "", err.Error())
		return false
	}

	outcome := p.protocol.ParseResponse(body)
	if outcome.Success {
		p.saveMeta(tx.ID, meta)
		return true
	}

	meta.Status = outcome.Status
	meta.Message = outcome.Reason
	meta.ReturnCode = outcome.ReturnCode
	meta.ReturnMessage = outcome.ReturnMessage
	meta.ResponseLog = outcome.Raw
	p.saveMeta(tx.ID, meta)
	p.failSwallowed(tx.ID, outcome.Code, outcome.Reason)
	return false
}

// HandleTransactionResponse applies the redirect-callback query parameters.
// Presence of `ctrl` means success; an `err` parameter (or nothing) means the
// customer came back with an error. Disallowed transitions are swallowed.
func (p *Processor) HandleTransactionResponse(transactionID string, query url.Values) error {
	tx, err := p.txns.GetByID(transactionID)
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", transactionID, err)
	}

	if ctrl := query.Get("ctrl"); ctrl != "" {
		tx.Meta.Ctrl = ctrl
		if err := p.txns.SaveMeta(tx.ID, tx.Meta); err != nil {
			return fmt.Errorf("save ctrl: %w", err)
		}
		if err := p.rec.Process(tx.ID); err != nil && !errors.Is(err, reconciler.ErrTransitionNotAllowed) {
			return err
		}
		return nil
	}

	reason := query.Get("err")
	if reason == "" {
		reason = "Unknown error"
	}
	if err := p.rec.Fail(tx.ID, "", reason); err != nil && !errors.Is(err, reconciler.ErrTransitionNotAllowed) {
		return err
	}
	return nil
}

// UpdateTransactionStatus maps a gateway-reported status word onto a state
// transition. Unknown statuses are left alone.
func (p *Processor) UpdateTransactionStatus(transactionID, status string) error {
	var err error
	switch status {
	case "in_progress", "processing", "pending":
		err = p.rec.Process(transactionID)
	case "settling", "settlement_pending", "settled", "complete":
		err = p.rec.Settle(transactionID, reconciler.OriginSync)
	case "authorization_expired", "settlement_declined", "failed",
		"gateway_rejected", "processor_declined":
		err = p.rec.Fail(transactionID, "", fmt.Sprintf("gateway status %s", status))
	case "voided":
		err = p.rec.Cancel(transactionID)
	default:
		log.Printf("[processor] ignoring unknown gateway status %q for %s", status, transactionID)
		return nil
	}

	if err != nil && !errors.Is(err, reconciler.ErrTransitionNotAllowed) {
		return err
	}
	return nil
}

// RefundTransaction is not supported by this integration.
func (p *Processor) RefundTransaction(string) error { return ErrNotSupported }

// VoidTransaction is not supported by this integration.
func (p *Processor) VoidTransaction(string) error { return ErrNotSupported }

// --- helpers ---

// failSwallowed applies a fail transition on the synchronous charge path,
// where a disallowed transition is logged and swallowed.
func (p *Processor) failSwallowed(id, code, reason string) {
	if err := p.rec.Fail(id, code, reason); err != nil && !errors.Is(err, reconciler.ErrTransitionNotAllowed) {
		log.Printf("[processor] WARNING: failed to annotate failure on %s: %v", id, err)
	}
}

func (p *Processor) saveMeta(id string, meta domain.TransactionMeta) {
	if err := p.txns.SaveMeta(id, meta); err != nil {
		log.Printf("[processor] WARNING: failed to save metadata for %s: %v", id, err)
	}
}

func encodeAuditLog(fields map[string]string) string {
	raw, err := json.Marshal(fields)
	if err != nil {
		return ""
	}
	return string(raw)
}
