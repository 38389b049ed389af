package handlers

import (
	"strconv"

	"github.com/veilmail/easgate/internal/logger"
	"github.com/veilmail/easgate/internal/protocol/eas"
	"github.com/veilmail/easgate/internal/protocol/wbxml"
)

// HandlePing suspends on the ping engine until a change or heartbeat
// expiry. On client disconnect the engine returns the context error and
// no response is written.
func HandlePing(ctx *EASHandlerContext, h *Handler, body []byte) (*Result, error) {
	req, err := eas.DecodePingRequest(body)
	if err != nil {
		logger.WarnCtx(ctx.Context, "Malformed Ping request",
			logger.Username(ctx.Username),
			logger.DeviceID(ctx.DeviceID),
			logger.Err(err))
		return &Result{Payload: encodePingStatus(eas.StatusProtocolError)}, nil
	}

	payload, err := h.Ping.HandlePing(ctx.Context, ctx.Username, req)
	if err != nil {
		return nil, err
	}
	return &Result{Payload: payload}, nil
}

func encodePingStatus(status int) []byte {
	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PagePing, wbxml.PingPing)
	e.TextTag(wbxml.PagePing, wbxml.PingStatus, strconv.Itoa(status))
	e.EndTag()
	return e.Bytes()
}
