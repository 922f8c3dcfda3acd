package ecs

import "github.com/stellarforge/coreserver/internal/components"

func (s *Store) SetTradeOffer(id EntityID, c components.TradeOffer) { s.tradeOffers[id] = c }

func (s *Store) TradeOffer(id EntityID) (components.TradeOffer, bool) {
	c, ok := s.tradeOffers[id]
	return c, ok
}

// AllTradeOffers returns every offer regardless of status; callers
// filter/page (spec §4.10 "list offers / history").
func (s *Store) AllTradeOffers() map[EntityID]components.TradeOffer {
	return s.tradeOffers
}
