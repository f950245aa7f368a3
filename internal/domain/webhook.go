package domain

// EventChargeSuccess is the only gateway event that triggers settlement
// processing; everything else is acknowledged and ignored.
const EventChargeSuccess = "charge.success"

// ChargeEvent mirrors the gateway webhook body. Amount arrives in the minor
// currency unit (kobo/cents) and is divided by 100 before storage.
type ChargeEvent struct {
	Event string     `json:"event"`
	Data  ChargeData `json:"data"`
}

type ChargeData struct {
	Reference     string              `json:"reference"`
	Amount        int64               `json:"amount"`
	Currency      string              `json:"currency"`
	Status        string              `json:"status"`
	Customer      ChargeCustomer      `json:"customer"`
	Authorization ChargeAuthorization `json:"authorization"`
}

type ChargeCustomer struct {
	Email        string `json:"email"`
	CustomerCode string `json:"customer_code"`
}

type ChargeAuthorization struct {
	Channel                   string `json:"channel"`
	ReceiverBankAccountNumber string `json:"receiver_bank_account_number"`
}
