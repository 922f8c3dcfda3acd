package api

import (
	"net/http"
	"strconv"

	"github.com/stellarforge/coreserver/internal/components"
	"github.com/stellarforge/coreserver/internal/market"
	"github.com/stellarforge/coreserver/internal/sim"
	"github.com/stellarforge/coreserver/internal/simerrors"
	"github.com/stellarforge/coreserver/pkg/config"
)

type tradeOfferRequest struct {
	OfferedResource   string `json:"offered_resource"`
	OfferedQty        int64  `json:"offered_qty"`
	RequestedResource string `json:"requested_resource"`
	RequestedQty      int64  `json:"requested_qty"`
}

func (s *Server) handleTradeOffersPost(w http.ResponseWriter, r *http.Request) {
	var req tradeOfferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, simerrors.Wrap(simerrors.Validation, "malformed request body", err))
		return
	}

	offered, err := parseResourceKind(req.OfferedResource)
	if err != nil {
		writeError(w, simerrors.Wrap(simerrors.Validation, "invalid offered_resource", err))
		return
	}
	requested, err := parseResourceKind(req.RequestedResource)
	if err != nil {
		writeError(w, simerrors.Wrap(simerrors.Validation, "invalid requested_resource", err))
		return
	}

	data, err := s.submit(r.Context(), sim.Command{
		Kind:              sim.TradeCreateOffer,
		UserID:            userID(r),
		OfferedResource:   offered,
		OfferedQty:        req.OfferedQty,
		RequestedResource: requested,
		RequestedQty:      req.RequestedQty,
		Result:            make(chan sim.CommandResult, 1),
	})
	if err != nil {
		writeError(w, simerrors.Wrap(simerrors.Validation, "trade offer rejected", err))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"offer_id": data})
}

func (s *Server) handleTradeOffersGet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, offset := pagingParams(q)

	var status *components.TradeOfferStatus
	if raw := q.Get("status"); raw != "" {
		st := components.TradeOfferStatus(raw)
		status = &st
	}

	offers := market.ListOffers(s.store, status, limit, offset)
	writeJSON(w, http.StatusOK, offers)
}

func (s *Server) handleTradeAccept(w http.ResponseWriter, r *http.Request) {
	seg := segments(r)
	if len(seg) < 3 {
		writeError(w, simerrors.New(simerrors.Validation, "missing offer id"))
		return
	}

	data, err := s.submit(r.Context(), sim.Command{
		Kind:    sim.TradeAcceptOffer,
		UserID:  userID(r),
		OfferID: seg[2],
		Result:  make(chan sim.CommandResult, 1),
	})
	if err != nil {
		writeError(w, simerrors.Wrap(simerrors.Conflict, "trade accept rejected", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"offer_id": data})
}

func (s *Server) handleTradeHistory(w http.ResponseWriter, r *http.Request) {
	seg := segments(r)
	if len(seg) < 2 {
		writeError(w, simerrors.New(simerrors.Validation, "missing player id"))
		return
	}

	limit, offset := pagingParams(r.URL.Query())
	writeJSON(w, http.StatusOK, s.trades.TradeHistory().History(seg[1], limit, offset))
}

func (s *Server) handleMarketGuidance(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, market.SuggestedRatios(s.cfg))
}

// parseResourceKind maps the JSON-facing resource names to the internal
// enum, the inverse of how the command handlers only ever work with
// config.ResourceKind values already resolved by this layer.
func parseResourceKind(raw string) (config.ResourceKind, error) {
	switch raw {
	case "metal":
		return config.Metal, nil
	case "crystal":
		return config.Crystal, nil
	case "deuterium":
		return config.Deuterium, nil
	default:
		return 0, &unrecognizedResourceError{raw}
	}
}

type unrecognizedResourceError struct{ value string }

func (e *unrecognizedResourceError) Error() string {
	return "unrecognized resource kind: " + strconv.Quote(e.value)
}
