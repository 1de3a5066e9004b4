package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/medibook/appointment-booking/internal/appointment"
	"github.com/medibook/appointment-booking/internal/ledger"
	"github.com/medibook/appointment-booking/internal/payment"
)

var validate = validator.New()

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Success: false, Error: code, Details: details})
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return false
	}
	return true
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:         a.ID,
		UserID:     a.UserID,
		ProviderID: a.ProviderID,
		SlotDate:   a.SlotDate,
		SlotTime:   a.SlotTime,
		Fee:        a.Fee,
		Cancelled:  a.Cancelled,
		Paid:       a.Paid,
		CreatedAt:  a.CreatedAt,
	}
}

func bookAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_user", "not authenticated")
			return
		}

		var req BookAppointmentRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}

		appt, err := svc.Book(r.Context(), userID, providerID, req.SlotDate, req.SlotTime)
		if err != nil {
			handleBookError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_user", "not authenticated")
			return
		}

		appts, err := svc.ListByUser(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_user", "not authenticated")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, appointment.ErrAppointmentNotFound) {
				writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if appt.UserID != userID {
			writeError(w, http.StatusForbidden, "forbidden", "appointment belongs to a different user")
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_user", "not authenticated")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Cancel(r.Context(), id, userID)
		if err != nil {
			handleCancelError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func createPaymentHandler(rec *payment.Reconciler, gateway string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreatePaymentRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		appointmentID, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
			return
		}

		origin := r.Header.Get("Origin")
		if gateway == payment.GatewayStripe && origin == "" {
			writeError(w, http.StatusBadRequest, "missing_origin", "Origin header is required for checkout redirects")
			return
		}

		intent, err := rec.CreateIntent(r.Context(), gateway, appointmentID, origin)
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, IntentResponse{
			AppointmentID: intent.AppointmentID,
			Gateway:       intent.Gateway,
			Reference:     intent.Reference,
			SessionURL:    intent.RedirectURL,
			Amount:        intent.Amount,
			Currency:      intent.Currency,
		})
	}
}

func verifyRazorpayHandler(rec *payment.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VerifyRazorpayRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		appt, err := rec.Verify(r.Context(), payment.GatewayRazorpay, req.OrderID)
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func verifyStripeHandler(rec *payment.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req VerifyStripeRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}

		appointmentID, err := uuid.Parse(req.AppointmentID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "appointment_id must be a valid UUID")
			return
		}

		appt, err := rec.Confirm(r.Context(), payment.GatewayStripe, appointmentID, req.SessionID, req.Success)
		if err != nil {
			handlePaymentError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func handleBookError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, appointment.ErrProviderUnavailable):
		writeError(w, http.StatusConflict, "provider_unavailable", err.Error())
	case errors.Is(err, ledger.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_unavailable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "could not book appointment")
	}
}

func handleCancelError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrNotOwner):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, appointment.ErrAlreadyCancelled):
		writeError(w, http.StatusConflict, "already_cancelled", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "could not cancel appointment")
	}
}

func handlePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrCancelled):
		writeError(w, http.StatusConflict, "appointment_cancelled", err.Error())
	case errors.Is(err, appointment.ErrAlreadyPaid):
		writeError(w, http.StatusConflict, "already_paid", err.Error())
	case errors.Is(err, payment.ErrUnknownGateway):
		writeError(w, http.StatusNotFound, "unknown_gateway", err.Error())
	case errors.Is(err, payment.ErrWrongReference):
		writeError(w, http.StatusConflict, "wrong_reference", err.Error())
	case errors.Is(err, payment.ErrPaymentPending):
		writeError(w, http.StatusPaymentRequired, "payment_pending", "payment is not settled")
	case errors.Is(err, payment.ErrGateway):
		writeError(w, http.StatusBadGateway, "gateway_error", "payment gateway is unreachable, retry later")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "could not process payment")
	}
}
