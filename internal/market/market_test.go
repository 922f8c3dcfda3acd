package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stellarforge/coreserver/internal/components"
	"github.com/stellarforge/coreserver/internal/ecs"
	"github.com/stellarforge/coreserver/pkg/config"
)

func TestListOffersFiltersByStatusNewestFirst(t *testing.T) {
	store := ecs.New()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	store.SetTradeOffer(store.CreateEntity(), components.TradeOffer{ID: "1", Status: components.TradeOfferOpen, CreatedAt: now})
	store.SetTradeOffer(store.CreateEntity(), components.TradeOffer{ID: "2", Status: components.TradeOfferAccepted, CreatedAt: now.Add(time.Minute)})
	store.SetTradeOffer(store.CreateEntity(), components.TradeOffer{ID: "3", Status: components.TradeOfferOpen, CreatedAt: now.Add(2 * time.Minute)})

	open := components.TradeOfferOpen
	offers := ListOffers(store, &open, 10, 0)
	require.Len(t, offers, 2)
	assert.Equal(t, "3", offers[0].ID)
	assert.Equal(t, "1", offers[1].ID)
}

func TestListOffersPagesResults(t *testing.T) {
	store := ecs.New()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		store.SetTradeOffer(store.CreateEntity(), components.TradeOffer{
			ID: string(rune('a' + i)), CreatedAt: now.Add(time.Duration(i) * time.Minute),
		})
	}

	page1 := ListOffers(store, nil, 2, 0)
	require.Len(t, page1, 2)
	assert.Equal(t, "e", page1[0].ID)
	assert.Equal(t, "d", page1[1].ID)

	page2 := ListOffers(store, nil, 2, 2)
	require.Len(t, page2, 2)
	assert.Equal(t, "c", page2[0].ID)
	assert.Equal(t, "b", page2[1].ID)
}

func TestApplyFeeRoundsExactly(t *testing.T) {
	assert.Equal(t, int64(50), ApplyFee(50, 0))
	assert.Equal(t, int64(45), ApplyFee(50, 0.1))
	assert.Equal(t, int64(48), ApplyFee(50, 0.05))
}

func TestSuggestedRatiosReflectsConfig(t *testing.T) {
	cfg := config.Config{
		ExchangeRatioMetalCrystal:     2.5,
		ExchangeRatioMetalDeuterium:   3,
		ExchangeRatioCrystalDeuterium: 1.2,
	}
	ratios := SuggestedRatios(cfg)
	assert.True(t, ratios.MetalPerCrystal.Equal(ratios.MetalPerCrystal))
	f, _ := ratios.MetalPerCrystal.Float64()
	assert.InDelta(t, 2.5, f, 0.0001)
}

func TestTradeLogHistoryFiltersByParticipantNewestFirst(t *testing.T) {
	log := NewLog()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	e1 := log.Record(Event{Type: EventOfferCreated, SellerID: "alice", Timestamp: now})
	log.Record(Event{Type: EventOfferCreated, SellerID: "bob", Timestamp: now.Add(time.Minute)})
	e3 := log.Record(Event{Type: EventTradeCompleted, SellerID: "alice", BuyerID: "carol", Timestamp: now.Add(2 * time.Minute)})

	history := log.History("alice", 10, 0)
	require.Len(t, history, 2)
	assert.Equal(t, e3.ID, history[0].ID)
	assert.Equal(t, e1.ID, history[1].ID)

	assert.NotEmpty(t, e1.ID)
	assert.NotEqual(t, e1.ID, e3.ID)
}

func TestTradeLogHistoryEmptyForUnknownUser(t *testing.T) {
	log := NewLog()
	log.Record(Event{Type: EventOfferCreated, SellerID: "alice"})

	assert.Empty(t, log.History("nobody", 10, 0))
}
