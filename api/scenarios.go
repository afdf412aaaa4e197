/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Pre-built scenarios that populate the store with realistic data for
  demos and manual testing. Each scenario creates a profile and
  whatever card/balance/history state demonstrates a specific feature.

AVAILABLE SCENARIOS:
  fresh-account:  Profile only - card registration still pending
  commuter:       Card bound to a tag, 10.00 balance, some history
  cap-almost-hit: 96.00 already accepted today - next big top-up hits
                  the daily cap

NOTE:
  Scenarios write straight into the live store. Only use in
  development/demo environments.

SEE ALSO:
  - handlers.go: ListScenarios, LoadScenario handlers
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/busspass/fare-engine/fare"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "fresh-account",
		Name:        "Fresh account",
		Description: "Profile registered, no card or balance yet",
	},
	{
		ID:          "commuter",
		Name:        "Daily commuter",
		Description: "Card bound to tag A3D2, 10.00 balance, recent history",
	},
	{
		ID:          "cap-almost-hit",
		Name:        "Daily cap almost reached",
		Description: "96.00 already topped up today; a 10.00 request gets refused",
	},
}

// ListScenarios returns the available demo scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"scenarios": scenarios})
}

// LoadScenario populates the store with the requested scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	var err error
	switch req.ScenarioID {
	case "fresh-account":
		err = h.loadFreshAccount(r.Context())
	case "commuter":
		err = h.loadCommuter(r.Context())
	case "cap-almost-hit":
		err = h.loadCapAlmostHit(r.Context())
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}
	if err != nil {
		h.domainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "loaded", "scenario": req.ScenarioID})
}

// =============================================================================
// LOADERS
// =============================================================================

func (h *Handler) loadFreshAccount(ctx context.Context) error {
	return h.Store.PutProfile(ctx, fare.Profile{
		Account:   "demo-fresh",
		Name:      "Jordan Lee",
		Email:     "jordan@example.com",
		CreatedAt: h.now(),
	})
}

func (h *Handler) loadCommuter(ctx context.Context) error {
	const account = fare.AccountID("demo-commuter")

	if err := h.Store.PutProfile(ctx, fare.Profile{
		Account:   account,
		Name:      "Sam Rivera",
		Email:     "sam@example.com",
		CreatedAt: h.now(),
	}); err != nil {
		return err
	}

	if err := h.Store.SaveCard(ctx, fare.Card{
		Account:    account,
		HolderName: "Sam Rivera",
		Number:     "12345678",
		Expiry:     "12/2027",
		TagID:      "A3D2",
		Status:     fare.CardActive,
		UpdatedAt:  h.now(),
	}); err != nil {
		return err
	}

	if _, err := h.Store.ApplyBalanceDelta(ctx, account, fare.MustParseMoney("10.00")); err != nil {
		return err
	}

	// Appended oldest-first; prepend order puts the fare at index 0.
	seed := []fare.Transaction{
		fare.NewCredit(fare.MustParseMoney("15.00"), "Balance top-up", h.now().Add(-48*time.Hour)),
		fare.NewDebit(fare.MustParseMoney("4.60"), "Fare - tag A3D2", h.now().Add(-24*time.Hour)),
	}
	for _, tx := range seed {
		if err := h.Store.AppendTransaction(ctx, account, tx); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadCapAlmostHit(ctx context.Context) error {
	const account = fare.AccountID("demo-capped")

	if err := h.Store.PutProfile(ctx, fare.Profile{
		Account:   account,
		Name:      "Alex Kim",
		CreatedAt: h.now(),
	}); err != nil {
		return err
	}

	_, err := h.Store.ReserveDailyAllowance(ctx, account, fare.Today(),
		fare.MustParseMoney("96.00"), h.Tariff.DailyCap)
	return err
}
