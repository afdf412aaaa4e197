/*
handlers.go - HTTP API handlers for the fare engine

PURPOSE:
  Exposes the balance/ledger core via REST. Handles HTTP
  request/response, JSON serialization, validation, and delegates to
  domain logic.

ENDPOINTS:
  Accounts:
    POST   /api/accounts                     Create profile
    GET    /api/accounts/{id}                Get profile
    GET    /api/accounts/{id}/balance        Current balance
    GET    /api/accounts/{id}/transactions   History, newest first

  Card:
    POST   /api/accounts/{id}/card           Register/update (merge)
    GET    /api/accounts/{id}/card           Masked card details
    DELETE /api/accounts/{id}/card           Delete card

  Top-ups:
    POST   /api/accounts/{id}/topups         Initiate -> payment code
    POST   /api/accounts/{id}/topups/confirm Confirm -> credit + log

  Fares:
    POST   /api/accounts/{id}/fare/tag       Tag-read trigger
    POST   /api/accounts/{id}/fare/scan      Scanned-code trigger

ERROR HANDLING:
  Every refusal maps to a specific status and message - no bare
  generic failures:
    400 invalid amount / incomplete input
    402 insufficient funds
    403 tag not recognized
    404 profile or card not found
    409 daily cap exceeded
    410 payment code expired
    500 storage failure; partial failures add "partial": true and the
        committed balance so the client can retry the log side alone.

SEE ALSO:
  - dto.go: request/response data structures
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/busspass/fare-engine/factory"
	"github.com/busspass/fare-engine/fare"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  fare.Store
	Tariff factory.Tariff
	Log    *logrus.Logger

	validate   *validator.Validate
	authorizer *fare.FareAuthorizer
	recharge   *fare.RechargeFlow
	cards      *fare.CardService
	balance    *fare.BalanceStore
	txlog      *fare.TransactionLog
	now        fare.Clock
}

// NewHandler wires a handler over the given store and tariff.
func NewHandler(store fare.Store, tariff factory.Tariff, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	now := fare.Clock(time.Now)
	return &Handler{
		Store:      store,
		Tariff:     tariff,
		Log:        log,
		validate:   validator.New(),
		authorizer: fare.NewFareAuthorizer(store, tariff.Fare, now),
		recharge:   fare.NewRechargeFlow(store, tariff.DailyCap, tariff.CodePrefix, tariff.CodeTTL, now),
		cards:      fare.NewCardService(store, now),
		balance:    fare.NewBalanceStore(store),
		txlog:      fare.NewTransactionLog(store),
		now:        now,
	}
}

// session derives the explicit session from the URL. Identity is an
// argument all the way down; nothing reads ambient state.
func sessionFrom(r *http.Request) fare.Session {
	return fare.NewSession(fare.AccountID(chi.URLParam(r, "id")))
}

// =============================================================================
// PROFILE HANDLERS
// =============================================================================

// CreateProfile registers a profile.
// POST /api/accounts
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	p := fare.Profile{
		Account:   fare.AccountID(req.ID),
		Name:      req.Name,
		Email:     req.Email,
		CreatedAt: h.now(),
	}
	if err := h.Store.PutProfile(r.Context(), p); err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profileDTO(p))
}

// GetProfile returns the profile.
// GET /api/accounts/{id}
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	p, err := h.Store.GetProfile(r.Context(), sess.Account)
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profileDTO(p))
}

// =============================================================================
// BALANCE AND HISTORY HANDLERS
// =============================================================================

// GetBalance returns the committed balance.
// GET /api/accounts/{id}/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	bal, err := h.balance.Balance(r.Context(), sess.Account)
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{Balance: bal.Format()})
}

// GetTransactions returns the log, newest first.
// GET /api/accounts/{id}/transactions
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	txs, err := h.txlog.List(r.Context(), sess.Account)
	if err != nil {
		h.domainError(w, err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, t := range txs {
		dtos[i] = transactionDTO(t)
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": dtos})
}

// =============================================================================
// CARD HANDLERS
// =============================================================================

// RegisterCard creates or merge-updates the card.
// POST /api/accounts/{id}/card
func (h *Handler) RegisterCard(w http.ResponseWriter, r *http.Request) {
	var req RegisterCardRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess := sessionFrom(r)
	card, err := h.cards.Register(r.Context(), sess, fare.CardInput{
		HolderName: req.HolderName,
		Number:     req.Number,
		Expiry:     req.Expiry,
		TagID:      req.TagID,
		Status:     fare.CardStatus(req.Status),
	})
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cardDTO(card))
}

// GetCard returns the card, number masked.
// GET /api/accounts/{id}/card
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	card, err := h.cards.Get(r.Context(), sess)
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cardDTO(card))
}

// DeleteCard removes the card; balance and history survive.
// DELETE /api/accounts/{id}/card
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if err := h.cards.Delete(r.Context(), sess); err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

// =============================================================================
// TOP-UP HANDLERS
// =============================================================================

// InitiateTopUp parses the amount, reserves it against the daily cap,
// and returns the payment code for the client to display.
// POST /api/accounts/{id}/topups
func (h *Handler) InitiateTopUp(w http.ResponseWriter, r *http.Request) {
	var req InitiateTopUpRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess := sessionFrom(r)
	code, err := h.recharge.Initiate(r.Context(), sess, req.Amount)
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, paymentCodeDTO(code, h.now()))
}

// ConfirmTopUp completes an initiated top-up. The client sends back the
// code it was issued; the countdown is client-local, so the deadline
// travels with the request and is trusted as issued - the cap was gated
// at initiation.
// POST /api/accounts/{id}/topups/confirm
func (h *Handler) ConfirmTopUp(w http.ResponseWriter, r *http.Request) {
	var req ConfirmTopUpRequest
	if !h.decode(w, r, &req) {
		return
	}

	amount, err := fare.ParsePositiveMoney(req.Amount)
	if err != nil {
		h.domainError(w, err)
		return
	}
	issuedAt, err1 := time.Parse(time.RFC3339Nano, req.IssuedAt)
	expiresAt, err2 := time.Parse(time.RFC3339Nano, req.ExpiresAt)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "Malformed payment code timestamps", nil)
		return
	}

	sess := sessionFrom(r)
	result, err := h.recharge.Confirm(r.Context(), sess, fare.PaymentCode{
		Value:     req.Code,
		Amount:    amount,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResultDTO(result))
}

// =============================================================================
// FARE HANDLERS
// =============================================================================

// AuthorizeTag handles a tag-read event.
// POST /api/accounts/{id}/fare/tag
func (h *Handler) AuthorizeTag(w http.ResponseWriter, r *http.Request) {
	var req TagEventRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess := sessionFrom(r)
	result, err := h.authorizer.AuthorizeTag(r.Context(), sess, req.TagID)
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResultDTO(result))
}

// AuthorizeScan handles a scanned-code event.
// POST /api/accounts/{id}/fare/scan
func (h *Handler) AuthorizeScan(w http.ResponseWriter, r *http.Request) {
	var req ScanEventRequest
	if !h.decode(w, r, &req) {
		return
	}

	sess := sessionFrom(r)
	result, err := h.authorizer.AuthorizeScan(r.Context(), sess, req.Payload)
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResultDTO(result))
}

// =============================================================================
// HELPERS
// =============================================================================

// decode parses and validates a JSON request body. Writes the error
// response itself and returns false when the request is unusable.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Malformed JSON body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return false
	}
	return true
}

// domainError maps a core error to a status and a specific message.
func (h *Handler) domainError(w http.ResponseWriter, err error) {
	var pf *fare.PartialFailureError
	if errors.As(err, &pf) {
		h.Log.WithFields(logrus.Fields{
			"account": string(pf.Account),
			"op":      pf.Op,
			"balance": pf.Committed.Format(),
		}).Error("partial failure: paired log write incomplete")
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":             "Operation partially completed: the balance changed but the history entry was not recorded",
			"partial":           true,
			"committed_balance": pf.Committed.Format(),
		})
		return
	}

	switch {
	case errors.Is(err, fare.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "Enter a valid amount", err)
	case errors.Is(err, fare.ErrIncompleteCard):
		writeError(w, http.StatusBadRequest, "Fill in holder name, card number, and expiry", err)
	case errors.Is(err, fare.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, "Insufficient balance", err)
	case errors.Is(err, fare.ErrTagMismatch):
		writeError(w, http.StatusForbidden, "Tag not recognized", err)
	case errors.Is(err, fare.ErrProfileNotFound):
		writeError(w, http.StatusNotFound, "Register your personal data first", err)
	case errors.Is(err, fare.ErrCardNotFound):
		writeError(w, http.StatusNotFound, "No card registered", err)
	case errors.Is(err, fare.ErrDailyCapExceeded):
		writeError(w, http.StatusConflict, "Daily top-up limit reached", err)
	case errors.Is(err, fare.ErrPaymentCodeExpired):
		writeError(w, http.StatusGone, "Payment time expired, please try again", err)
	default:
		h.Log.WithError(err).Error("storage failure")
		writeError(w, http.StatusInternalServerError, "Service temporarily unavailable, please retry", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	body := map[string]any{"error": message}
	if err != nil {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}
