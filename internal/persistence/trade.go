package persistence

import (
	"context"

	"github.com/stellarforge/coreserver/internal/components"
	"github.com/stellarforge/coreserver/internal/market"
	"github.com/stellarforge/coreserver/pkg/config"
)

// RecordTradeOffer persists a newly created marketplace offer and
// RecordTradeEvent persists a trade event, both fire-and-forget since
// the in-memory copies (components.TradeOffer on the store,
// market.Log's history) are the authoritative read path while the
// process is up; the database copy only matters for the next restart's
// hydration (§4.13 step 4b).
func (b *Bridge) RecordTradeOffer(offer components.TradeOffer) {
	offeredResource, offeredQty := offeredResourceOf(offer.Offered)

	b.SubmitAsync(func(ctx context.Context) error {
		_, err := b.pool.Exec(ctx, `
			insert into trade_offers (offer_id, seller_id, offered_resource, offered_qty, requested_resource, requested_qty, status, created_at, accepted_by, resolved_at)
			values ($1, $2, $3, $4, $5, $6, $7, $8, nullif($9, ''), $10)
			on conflict (offer_id) do update set
				status = excluded.status, accepted_by = excluded.accepted_by, resolved_at = excluded.resolved_at
		`, offer.ID, offer.SellerID, int(offeredResource), offeredQty, int(offer.RequestedRes), offer.RequestedQty,
			string(offer.Status), offer.CreatedAt, offer.AcceptedBy, nullableTime(offer.ResolvedAt))
		return err
	})
}

func (b *Bridge) RecordTradeEvent(e market.Event) {
	b.SubmitAsync(func(ctx context.Context) error {
		_, err := b.pool.Exec(ctx, `
			insert into trade_events (event_id, offer_id, event_type, seller_id, buyer_id, offered_resource, offered_qty, requested_resource, requested_qty, status, created_at)
			values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`, e.ID, e.OfferID, string(e.Type), e.SellerID, e.BuyerID, int(e.OfferedResource), e.OfferedQty,
			int(e.RequestedResource), e.RequestedQty, e.Status, e.Timestamp)
		return err
	})
}

func offeredResourceOf(cost config.Cost) (config.ResourceKind, int64) {
	switch {
	case cost.Metal > 0:
		return config.Metal, cost.Metal
	case cost.Crystal > 0:
		return config.Crystal, cost.Crystal
	default:
		return config.Deuterium, cost.Deuterium
	}
}

func nullableTime(t interface{ IsZero() bool }) any {
	if t.IsZero() {
		return nil
	}
	return t
}
