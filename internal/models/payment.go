package models

import (
	"fmt"
	"strings"
)

// PaymentMode is how the token fee was paid
type PaymentMode string

const (
	PaymentCash         PaymentMode = "cash"
	PaymentBankTransfer PaymentMode = "bank_transfer"
)

// ParsePaymentMode accepts the wire value and the spellings older clients send
func ParsePaymentMode(raw string) (PaymentMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cash":
		return PaymentCash, nil
	case "bank_transfer", "bank-transfer", "bank transfer", "banktransfer":
		return PaymentBankTransfer, nil
	default:
		return "", fmt.Errorf("unknown payment mode %q", raw)
	}
}

// Label returns the display name of the mode
func (m PaymentMode) Label() string {
	switch m {
	case PaymentCash:
		return "Cash"
	case PaymentBankTransfer:
		return "Bank Transfer"
	default:
		return string(m)
	}
}

// Receipt is a proof-of-payment image ready for transmission
type Receipt struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	Size        int    `json:"size"`
	Preview     string `json:"preview"`
	Payload     []byte `json:"-"`
}

// PaymentSubmission pairs the chosen mode with its receipt
type PaymentSubmission struct {
	Mode    PaymentMode
	Receipt Receipt
}
