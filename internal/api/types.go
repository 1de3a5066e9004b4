package api

import (
	"time"

	"github.com/google/uuid"
)

type BookAppointmentRequest struct {
	ProviderID string `json:"provider_id" validate:"required,uuid"`
	SlotDate   string `json:"slot_date" validate:"required,datetime=2006-01-02"`
	SlotTime   string `json:"slot_time" validate:"required,datetime=15:04"`
}

type CreatePaymentRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
}

type VerifyRazorpayRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}

type VerifyStripeRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required,uuid"`
	SessionID     string `json:"session_id" validate:"required"`
	Success       bool   `json:"success"`
}

type AppointmentResponse struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	ProviderID uuid.UUID `json:"provider_id"`
	SlotDate   string    `json:"slot_date"`
	SlotTime   string    `json:"slot_time"`
	Fee        int64     `json:"fee"`
	Cancelled  bool      `json:"cancelled"`
	Paid       bool      `json:"paid"`
	CreatedAt  time.Time `json:"created_at"`
}

type IntentResponse struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Gateway       string    `json:"gateway"`
	Reference     string    `json:"reference"`
	SessionURL    string    `json:"session_url,omitempty"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
