package handlers

import (
	"strconv"

	"github.com/veilmail/easgate/internal/logger"
	"github.com/veilmail/easgate/internal/protocol/eas"
	"github.com/veilmail/easgate/internal/protocol/wbxml"
)

// HandleGetItemEstimate reports how many items a Sync on the collection
// would deliver: everything in the folder minus what the partnership has
// already acknowledged or staged.
func HandleGetItemEstimate(ctx *EASHandlerContext, h *Handler, body []byte) (*Result, error) {
	req, err := eas.DecodeGetItemEstimateRequest(body)
	if err != nil || req.CollectionID == "" {
		logger.WarnCtx(ctx.Context, "Malformed GetItemEstimate request",
			logger.Username(ctx.Username),
			logger.DeviceID(ctx.DeviceID),
			logger.Err(err))
		return &Result{Payload: encodeEstimateStatus(eas.StatusProtocolError)}, nil
	}

	st, err := h.State.LoadState(ctx.Context, ctx.Username, ctx.DeviceID, req.CollectionID)
	if err != nil {
		return nil, err
	}
	items, err := h.Mail.ListFolder(ctx.Context, ctx.Username, req.CollectionID, 0)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{})
	for _, id := range st.SyncedIDList() {
		seen[id] = struct{}{}
	}
	for _, id := range st.PendingIDList() {
		seen[id] = struct{}{}
	}
	estimate := 0
	for _, item := range items {
		if _, ok := seen[item.ID]; !ok {
			estimate++
		}
	}

	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PageGetItemEstimate, wbxml.EstimateGetItemEstimate)
	e.StartTag(wbxml.PageGetItemEstimate, wbxml.EstimateResponse)
	e.TextTag(wbxml.PageGetItemEstimate, wbxml.EstimateStatus, strconv.Itoa(eas.StatusSuccess))
	e.StartTag(wbxml.PageGetItemEstimate, wbxml.EstimateCollection)
	e.TextTag(wbxml.PageGetItemEstimate, wbxml.EstimateCollectionId, req.CollectionID)
	e.TextTag(wbxml.PageGetItemEstimate, wbxml.EstimateEstimate, strconv.Itoa(estimate))
	e.EndTag() // Collection
	e.EndTag() // Response
	e.EndTag() // GetItemEstimate
	return &Result{Payload: e.Bytes()}, nil
}

func encodeEstimateStatus(status int) []byte {
	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PageGetItemEstimate, wbxml.EstimateGetItemEstimate)
	e.StartTag(wbxml.PageGetItemEstimate, wbxml.EstimateResponse)
	e.TextTag(wbxml.PageGetItemEstimate, wbxml.EstimateStatus, strconv.Itoa(status))
	e.EndTag()
	e.EndTag()
	return e.Bytes()
}
