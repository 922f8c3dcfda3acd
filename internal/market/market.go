// Package market implements spec §4.10's read paths (list offers, trade
// history, exchange-ratio guidance) on top of the offer records the
// command handlers in internal/systems create and mutate directly on the
// entity store. Fee arithmetic lives here too, using shopspring/decimal
// so the burned fraction is computed exactly rather than through
// repeated float rounding.
package market

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stellarforge/coreserver/internal/components"
	"github.com/stellarforge/coreserver/internal/ecs"
	"github.com/stellarforge/coreserver/pkg/config"
)

// ListOffers returns every offer on the store, optionally filtered by
// status, newest-first and paged by (limit, offset) per spec §4.10.
func ListOffers(store *ecs.Store, status *components.TradeOfferStatus, limit, offset int) []components.TradeOffer {
	all := store.AllTradeOffers()
	offers := make([]components.TradeOffer, 0, len(all))
	for _, o := range all {
		if status != nil && o.Status != *status {
			continue
		}
		offers = append(offers, o)
	}

	sort.Slice(offers, func(i, j int) bool {
		return offers[i].CreatedAt.After(offers[j].CreatedAt)
	})

	return page(offers, limit, offset)
}

func page(offers []components.TradeOffer, limit, offset int) []components.TradeOffer {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(offers) {
		return nil
	}
	end := len(offers)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return offers[offset:end]
}

// ApplyFee implements spec §4.10's "seller receives requested × (1 − fee);
// fee is burned", rounding to the nearest whole resource unit exactly via
// decimal rather than accumulating float error across repeated trades.
func ApplyFee(amount int64, feeRate float64) int64 {
	net := decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(1).Sub(decimal.NewFromFloat(feeRate)))
	return net.Round(0).IntPart()
}

// RatioGuidance is the non-authoritative suggested exchange ratio
// surface of E.3 — it does not constrain offer creation.
type RatioGuidance struct {
	MetalPerCrystal     decimal.Decimal
	MetalPerDeuterium   decimal.Decimal
	CrystalPerDeuterium decimal.Decimal
}

// SuggestedRatios derives guidance straight from the configured base
// ratios, matching the original's "no scarcity-index sensor" behavior
// (E.3): there is no spec component tracking global scarcity to weight
// these against.
func SuggestedRatios(cfg config.Config) RatioGuidance {
	return RatioGuidance{
		MetalPerCrystal:     decimal.NewFromFloat(cfg.ExchangeRatioMetalCrystal),
		MetalPerDeuterium:   decimal.NewFromFloat(cfg.ExchangeRatioMetalDeuterium),
		CrystalPerDeuterium: decimal.NewFromFloat(cfg.ExchangeRatioCrystalDeuterium),
	}
}

// EventType enumerates the trade event log's kinds (E.3, grounded on
// original_source's TradeEventPayload).
type EventType string

const (
	EventOfferCreated  EventType = "offer_created"
	EventTradeCompleted EventType = "trade_completed"
)

// Event is a single append-only trade history entry, participant-scoped
// for the history query (spec §4.10 "list offers / history").
type Event struct {
	ID                string
	Type              EventType
	OfferID           string
	SellerID          string
	BuyerID           string
	OfferedResource   config.ResourceKind
	OfferedQty        int64
	RequestedResource config.ResourceKind
	RequestedQty      int64
	Status            string
	Timestamp         time.Time
}

// Log is a thread-safe append-only trade event history, fed by the
// command handlers as offers are created and accepted.
type Log struct {
	mu     sync.Mutex
	nextID int64
	events []Event
}

func NewLog() *Log {
	return &Log{nextID: 1}
}

// Reconcile bumps the event id counter to at least maxSeen, called once
// at startup hydration after reading trade_events' highest persisted
// event_id, so a fresh process never reissues an id a surviving row
// already holds (spec §4.13 step 3).
func (l *Log) Reconcile(maxSeen int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if maxSeen+1 > l.nextID {
		l.nextID = maxSeen + 1
	}
}

// Record appends an event, assigning it a monotonically increasing id.
func (l *Log) Record(e Event) Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.ID = strconv.FormatInt(l.nextID, 10)
	l.nextID++
	l.events = append(l.events, e)
	return e
}

// History returns the events where userID participated as seller or
// buyer, newest-first, paged by (limit, offset).
func (l *Log) History(userID string, limit, offset int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	relevant := make([]Event, 0, len(l.events))
	for i := len(l.events) - 1; i >= 0; i-- {
		e := l.events[i]
		if e.SellerID == userID || e.BuyerID == userID {
			relevant = append(relevant, e)
		}
	}

	if offset < 0 {
		offset = 0
	}
	if offset >= len(relevant) {
		return nil
	}
	end := len(relevant)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return relevant[offset:end]
}
