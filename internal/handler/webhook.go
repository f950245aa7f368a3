package handler

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/schoolhq/settlement-engine/internal/config"
	"github.com/schoolhq/settlement-engine/internal/domain"
	"github.com/schoolhq/settlement-engine/internal/service"
	customError "github.com/schoolhq/settlement-engine/pkg/errors"
	"github.com/schoolhq/settlement-engine/pkg/response"
	"github.com/schoolhq/settlement-engine/pkg/utils"
)

// WebhookHandler is the gateway entry point. It authenticates the raw
// payload, filters events, resolves the target wallet and hands the payment
// to the ledger exactly once per reference.
type WebhookHandler struct {
	ledger *service.LedgerService
	config *config.Config
}

func NewWebhookHandler(ledger *service.LedgerService, config *config.Config) *WebhookHandler {
	return &WebhookHandler{
		ledger: ledger,
		config: config,
	}
}

func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		response.BadRequest(w, "Failed to read request body", err)
		return
	}

	signature := r.Header.Get(h.config.Gateway.SignatureHeader)
	if !h.verifySignature(payload, signature) {
		log.Printf("invalid gateway signature from %s", r.RemoteAddr)
		response.Unauthorized(w, "Invalid signature")
		return
	}

	var event domain.ChargeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		response.BadRequest(w, "Malformed webhook payload", err)
		return
	}

	if event.Event != domain.EventChargeSuccess {
		log.Printf("ignoring gateway event %q", event.Event)
		response.Success(w, "Event ignored")
		return
	}

	wallet, err := h.ledger.ResolveWallet(r.Context(),
		event.Data.Customer.CustomerCode,
		event.Data.Authorization.ReceiverBankAccountNumber,
	)
	if err != nil {
		// Acknowledge so the gateway stops retrying, but keep the payment
		// visible for manual reconciliation.
		log.Printf("could not resolve wallet for reference %s, customer=%s email=%s",
			event.Data.Reference, event.Data.Customer.CustomerCode, event.Data.Customer.Email)
		if logErr := h.ledger.LogUnclaimed(r.Context(), &event, string(payload)); logErr != nil {
			response.InternalServerError(w, "Failed to record unclaimed payment", logErr)
			return
		}
		response.Success(w, "Payment logged for reconciliation")
		return
	}

	raw := string(payload)
	channel := event.Data.Authorization.Channel
	email := event.Data.Customer.Email

	input := service.RecordSettlementInput{
		Wallet:         wallet,
		Reference:      event.Data.Reference,
		Amount:         utils.FromMinorUnits(event.Data.Amount),
		Currency:       event.Data.Currency,
		Status:         event.Data.Status,
		RawPayload:     &raw,
		SettlementType: domain.SettlementTypeAuto,
	}
	if channel != "" {
		input.PaymentChannel = &channel
	}
	if email != "" {
		input.PayerEmail = &email
	}

	settlement, created, err := h.ledger.RecordSettlement(r.Context(), input)
	if err != nil {
		// A payload that fails validation can never succeed, so a 5xx would
		// just make the gateway retry it forever. Acknowledge it and keep
		// the payment visible for manual reconciliation instead.
		if errors.Is(err, customError.ErrInvalidAmount) {
			log.Printf("rejecting non-positive settlement amount for reference %s: %v",
				event.Data.Reference, err)
			if logErr := h.ledger.LogUnclaimed(r.Context(), &event, string(payload)); logErr != nil {
				response.InternalServerError(w, "Failed to record unclaimed payment", logErr)
				return
			}
			response.Success(w, "Payment logged for reconciliation")
			return
		}

		// Genuine processing failure; a 5xx makes the gateway retry into
		// the idempotency path.
		response.InternalServerError(w, "Failed to process settlement", err)
		return
	}

	if !created {
		response.Success(w, "Already processed")
		return
	}

	response.Success(w, &domain.SettlementResponse{Settlement: settlement})
}

// verifySignature recomputes the HMAC-SHA512 of the raw payload and compares
// hex digests in constant time. Fails closed on any mismatch.
func (h *WebhookHandler) verifySignature(payload []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(h.config.Gateway.SecretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
