/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator tags; handlers run the
  shared validator before touching domain logic. Monetary amounts
  travel as strings and are parsed by the engine's Money parser, never
  by the JSON decoder.

SEE ALSO:
  - handlers.go: uses these types
*/
package api

import (
	"time"

	"github.com/busspass/fare-engine/fare"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateProfileRequest registers a user profile.
type CreateProfileRequest struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
}

// RegisterCardRequest creates or partially updates the account's card.
// Empty fields mean "leave as is" on update.
type RegisterCardRequest struct {
	HolderName string `json:"holder_name" validate:"omitempty,max=100"`
	Number     string `json:"number" validate:"omitempty,max=32"`
	Expiry     string `json:"expiry" validate:"omitempty,max=10"`
	TagID      string `json:"tag_id" validate:"omitempty,max=64"`
	Status     string `json:"status" validate:"omitempty,oneof=active blocked"`
}

// InitiateTopUpRequest starts a recharge. Amount is free-form decimal
// text exactly as the keypad produced it.
type InitiateTopUpRequest struct {
	Amount string `json:"amount" validate:"required"`
}

// ConfirmTopUpRequest completes a previously initiated recharge.
type ConfirmTopUpRequest struct {
	Code      string `json:"code" validate:"required"`
	Amount    string `json:"amount" validate:"required"`
	IssuedAt  string `json:"issued_at" validate:"required"`
	ExpiresAt string `json:"expires_at" validate:"required"`
}

// TagEventRequest delivers a tag-read trigger.
type TagEventRequest struct {
	TagID string `json:"tag_id" validate:"required"`
}

// ScanEventRequest delivers a scanned-code trigger. Payload is opaque.
type ScanEventRequest struct {
	Payload string `json:"payload" validate:"required"`
}

// LoadScenarioRequest loads a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ProfileDTO represents a profile in API responses.
type ProfileDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

// BalanceDTO is the current balance.
type BalanceDTO struct {
	Balance string `json:"balance"`
}

// CardDTO represents the card in API responses. The number is always
// masked on the way out.
type CardDTO struct {
	HolderName   string `json:"holder_name"`
	MaskedNumber string `json:"masked_number"`
	Expiry       string `json:"expiry"`
	Status       string `json:"status"`
	UpdatedAt    string `json:"updated_at,omitempty"`
}

// TransactionDTO is one ledger entry.
type TransactionDTO struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Amount    string `json:"amount"`
	Label     string `json:"label"`
	CreatedAt string `json:"created_at"`
}

// PaymentCodeDTO is the initiated top-up token shown to the user.
// RemainingSeconds feeds the client-local countdown.
type PaymentCodeDTO struct {
	Code             string `json:"code"`
	Amount           string `json:"amount"`
	IssuedAt         string `json:"issued_at"`
	ExpiresAt        string `json:"expires_at"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

// AuthResultDTO reports a finished fare or top-up attempt.
type AuthResultDTO struct {
	State      string          `json:"state"`
	NewBalance string          `json:"new_balance"`
	Entry      *TransactionDTO `json:"entry,omitempty"`
}

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func profileDTO(p fare.Profile) ProfileDTO {
	return ProfileDTO{
		ID:        string(p.Account),
		Name:      p.Name,
		Email:     p.Email,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

func cardDTO(c fare.Card) CardDTO {
	return CardDTO{
		HolderName:   c.HolderName,
		MaskedNumber: c.MaskedNumber(),
		Expiry:       c.Expiry,
		Status:       string(c.Status),
		UpdatedAt:    c.UpdatedAt.Format(time.RFC3339),
	}
}

func transactionDTO(t fare.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:        t.ID,
		Type:      string(t.Type),
		Amount:    t.Amount.Format(),
		Label:     t.Label,
		CreatedAt: t.CreatedAt.Format(time.RFC3339Nano),
	}
}

func authResultDTO(r fare.AuthResult) AuthResultDTO {
	dto := AuthResultDTO{
		State:      string(r.State),
		NewBalance: r.NewBalance.Format(),
	}
	if r.Entry.ID != "" {
		entry := transactionDTO(r.Entry)
		dto.Entry = &entry
	}
	return dto
}

func paymentCodeDTO(p fare.PaymentCode, now time.Time) PaymentCodeDTO {
	return PaymentCodeDTO{
		Code:             p.Value,
		Amount:           p.Amount.Format(),
		IssuedAt:         p.IssuedAt.Format(time.RFC3339Nano),
		ExpiresAt:        p.ExpiresAt.Format(time.RFC3339Nano),
		RemainingSeconds: int(p.Remaining(now).Seconds()),
	}
}
