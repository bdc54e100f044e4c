package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/silverbill/payu/internal/domain"
	"github.com/silverbill/payu/internal/gateway"
	"github.com/silverbill/payu/internal/processor"
	"github.com/silverbill/payu/internal/reconciler"
	"github.com/silverbill/payu/internal/repository"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	txnRepo *repository.TransactionRepo
	pmRepo  *repository.PaymentMethodRepo
	proc    *processor.Processor
	rec     *reconciler.Reconciler
	cipher  domain.Cipher

	merchantSecret  string
	protocolVariant string
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseExpiry(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "01/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// --- PaymentNotification ---

// PaymentNotification handles the settlement IPN pushed by the gateway after
// funds clear. It is idempotent: duplicates for an already-settled
// transaction are acknowledged without any state change. A transition the
// state machine rejects even after the fail fallback returns 500, so the
// gateway's retry infrastructure sees the poison notification.
func (h *Handlers) PaymentNotification(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form: "+err.Error())
		return
	}

	refNoExt := r.PostFormValue("REFNOEXT")
	if refNoExt == "" {
		writeError(w, http.StatusBadRequest, "REFNOEXT is required")
		return
	}

	if _, err := h.txnRepo.GetByID(refNoExt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "unknown transaction reference")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.rec.Settle(refNoExt, reconciler.OriginNotification); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Confirmation reply the gateway expects: date + its hash.
	date := time.Now().UTC().Format("20060102150405")
	hash := gateway.SignIPNConfirmation(h.merchantSecret, date)
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintf(w, "<EPAYMENT>%s|%s</EPAYMENT>", date, hash)
}

// --- TokenNotification ---

// TokenNotification handles the token-issued IPN. The token field depends on
// the protocol variant: IPN_CC_TOKEN for the token protocol, TOKEN_HASH for
// ALU. An ALU notification with an empty hash is a no-op by contract.
func (h *Handlers) TokenNotification(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form: "+err.Error())
		return
	}

	refNoExt := r.PostFormValue("REFNOEXT")
	if refNoExt == "" {
		writeError(w, http.StatusBadRequest, "REFNOEXT is required")
		return
	}

	tx, err := h.txnRepo.GetByID(refNoExt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "unknown transaction reference")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var token string
	if h.protocolVariant == "alu" {
		token = r.PostFormValue("TOKEN_HASH")
		if token == "" {
			// No token issued with this authorization; nothing to store.
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		}
	} else {
		token = r.PostFormValue("IPN_CC_TOKEN")
		if token == "" {
			writeError(w, http.StatusBadRequest, "IPN_CC_TOKEN is required")
			return
		}
	}

	encToken, err := h.cipher.Encrypt(token)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encrypt token: "+err.Error())
		return
	}

	validUntil := parseExpiry(r.PostFormValue("IPN_CC_EXP_DATE"))
	displayInfo := r.PostFormValue("IPN_CC_MASK")

	if err := h.pmRepo.SetIssuedToken(tx.PaymentMethodID, encToken, displayInfo, validUntil); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("[api] token issued for payment method %s (mask=%s)", tx.PaymentMethodID, displayInfo)
	writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
}

// --- GetPaymentForm ---

func (h *Handlers) GetPaymentForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	form, err := h.proc.GetForm(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, form)
}

// --- CompletePayment ---

// CompletePayment handles the customer's return from the gateway. A `ctrl`
// query parameter marks success, `err` carries the failure description.
func (h *Handlers) CompletePayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.txnRepo.GetByID(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.proc.HandleTransactionResponse(id, r.URL.Query()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	tx, err := h.txnRepo.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"transaction": tx.ID,
		"state":       string(tx.State),
	})
}

// --- CaptureThreeDSData ---

// CaptureThreeDSData stores the browser fingerprint the ALU protocol
// forwards for strong customer authentication. The capture window is narrow:
// only for a live transaction whose payment method has not been verified or
// canceled yet.
func (h *Handlers) CaptureThreeDSData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tx, err := h.txnRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if tx.State != domain.StateInitial && tx.State != domain.StatePending {
		writeError(w, http.StatusMethodNotAllowed, "transaction is no longer payable")
		return
	}

	pm, err := h.pmRepo.GetByID(tx.PaymentMethodID)
	if err != nil {
		writeError(w, http.StatusMethodNotAllowed, "payment method not available")
		return
	}
	if pm.Verified || pm.Canceled {
		writeError(w, http.StatusMethodNotAllowed, "payment method not eligible")
		return
	}

	clientIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(clientIP); err == nil {
		clientIP = host
	}
	if clientIP == "" {
		writeError(w, http.StatusInternalServerError, "client ip unavailable")
		return
	}

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form: "+err.Error())
		return
	}

	threeDS := map[string]string{
		"BROWSER_IP":            clientIP,
		"BROWSER_ACCEPT_HEADER": r.Header.Get("Accept"),
		"BROWSER_JAVA_ENABLED":  r.PostFormValue("browser-java-enabled"),
		"BROWSER_LANGUAGE":      r.PostFormValue("browser-language"),
		"BROWSER_COLOR_DEPTH":   r.PostFormValue("browser-color-depth"),
		"BROWSER_SCREEN_HEIGHT": r.PostFormValue("browser-screen-height"),
		"BROWSER_SCREEN_WIDTH":  r.PostFormValue("browser-screen-width"),
		"BROWSER_TIMEZONE":      r.PostFormValue("browser-timezone"),
		"BROWSER_USER_AGENT":    r.Header.Get("User-Agent"),
	}

	if err := h.pmRepo.SetThreeDSData(pm.ID, threeDS); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusOK)
}

// --- ListTransactions ---

func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.TransactionFilter{
		State:           q.Get("state"),
		Currency:        q.Get("currency"),
		PaymentMethodID: q.Get("payment_method"),
		Page:            parseIntDefault(q.Get("page"), 1),
		Limit:           parseIntDefault(q.Get("limit"), 50),
	}

	txns, total, err := h.txnRepo.List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"total":        total,
		"page":         filter.Page,
		"limit":        filter.Limit,
	})
}

// --- GetTransaction ---

func (h *Handlers) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	tx, err := h.txnRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}
