package handlers

import (
	"strconv"

	"github.com/veilmail/easgate/internal/logger"
	"github.com/veilmail/easgate/internal/protocol/eas"
	"github.com/veilmail/easgate/internal/protocol/wbxml"
)

// HandleSync runs the Sync command through the sync engine. Decode
// failures and engine errors surface as WBXML Status documents, never as
// HTTP errors.
func HandleSync(ctx *EASHandlerContext, h *Handler, body []byte) (*Result, error) {
	req, err := eas.DecodeSyncRequest(body)
	if err != nil {
		logger.WarnCtx(ctx.Context, "Malformed Sync request",
			logger.Username(ctx.Username),
			logger.DeviceID(ctx.DeviceID),
			logger.Err(err))
		return &Result{Payload: encodeSyncStatus(eas.StatusProtocolError)}, nil
	}

	payload, err := h.Sync.HandleSync(ctx.Context, ctx.Username, ctx.DeviceID, req)
	if err != nil {
		logger.ErrorCtx(ctx.Context, "Sync failed",
			logger.Username(ctx.Username),
			logger.DeviceID(ctx.DeviceID),
			logger.CollectionID(req.CollectionID),
			logger.Err(err))
		return &Result{Payload: encodeSyncStatus(eas.StatusServerError)}, nil
	}
	return &Result{Payload: payload}, nil
}

// encodeSyncStatus renders the bare <Sync><Status>n</Status></Sync>
// document used for request-level failures.
func encodeSyncStatus(status int) []byte {
	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PageAirSync, wbxml.AirSyncSync)
	e.TextTag(wbxml.PageAirSync, wbxml.AirSyncStatus, strconv.Itoa(status))
	e.EndTag()
	return e.Bytes()
}
