/*
cards.go - Card registration and lifecycle

PURPOSE:
  One card per account, stored under the same key as the owning
  profile. Registration requires the profile to exist first; updates
  use merge semantics so a partial form submit never wipes fields the
  user did not touch; deletion removes the card and nothing else - the
  balance and the transaction log stay.

INPUT NORMALIZATION:
  Card numbers arrive from a free-form field: everything but digits is
  dropped and the number is capped at 8 digits. Expiry is normalized to
  MM/YYYY from whatever digit soup the keypad produced.

SEE ALSO:
  - authorize.go: reads the bound tag identifier off the card
  - store.go: SaveCard/DeleteCard contract
*/
package fare

import (
	"context"
	"errors"
	"strings"
	"time"
)

const maxCardNumberLen = 8

// CardInput is a registration or partial-update request. Empty fields
// are "leave as is" on update.
type CardInput struct {
	HolderName string
	Number     string
	Expiry     string
	TagID      string
	Status     CardStatus
}

// CardService owns card reads and writes for one store.
type CardService struct {
	store Store
	now   Clock
}

func NewCardService(store Store, now Clock) *CardService {
	if now == nil {
		now = time.Now
	}
	return &CardService{store: store, now: now}
}

// Register creates or merge-updates the account's card.
//
// Precondition: the profile must already exist (ErrProfileNotFound
// otherwise). On first registration, holder name, number, and expiry
// are all required; later updates may send any subset.
func (s *CardService) Register(ctx context.Context, sess Session, in CardInput) (Card, error) {
	if _, err := s.store.GetProfile(ctx, sess.Account); err != nil {
		return Card{}, err
	}

	in.Number = normalizeCardNumber(in.Number)
	in.Expiry = normalizeExpiry(in.Expiry)

	existing, err := s.store.GetCard(ctx, sess.Account)
	creating := false
	switch {
	case err == nil:
		// merge onto the stored card below
	case errors.Is(err, ErrCardNotFound):
		creating = true
		existing = Card{Account: sess.Account, Status: CardActive}
	default:
		return Card{}, err
	}

	if creating && (in.HolderName == "" || in.Number == "" || in.Expiry == "") {
		return Card{}, ErrIncompleteCard
	}

	merged := existing.Merge(Card{
		HolderName: in.HolderName,
		Number:     in.Number,
		Expiry:     in.Expiry,
		TagID:      in.TagID,
		Status:     in.Status,
	})
	merged.Account = sess.Account
	merged.UpdatedAt = s.now()

	if err := s.store.SaveCard(ctx, merged); err != nil {
		return Card{}, err
	}
	return merged, nil
}

// Get returns the account's card, or ErrCardNotFound.
func (s *CardService) Get(ctx context.Context, sess Session) (Card, error) {
	return s.store.GetCard(ctx, sess.Account)
}

// Delete removes the card at the owner's request. The account and its
// transaction log are untouched. Deleting an absent card succeeds.
func (s *CardService) Delete(ctx context.Context, sess Session) error {
	return s.store.DeleteCard(ctx, sess.Account)
}

// normalizeCardNumber keeps digits only, capped at maxCardNumberLen.
func normalizeCardNumber(raw string) string {
	digits := strings.Map(digitsOnly, raw)
	if len(digits) > maxCardNumberLen {
		digits = digits[:maxCardNumberLen]
	}
	return digits
}

// normalizeExpiry renders MM/YYYY from the digits of the input:
// "122027" and "12/2027" both become "12/2027". Inputs without enough
// digits pass through untouched for the caller to display back.
func normalizeExpiry(raw string) string {
	digits := strings.Map(digitsOnly, raw)
	if len(digits) < 3 {
		return digits
	}
	month := digits[:2]
	year := digits[2:]
	if len(year) > 4 {
		year = year[:4]
	}
	return month + "/" + year
}
