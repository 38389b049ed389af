package handlers

import (
	"github.com/veilmail/easgate/internal/logger"
	"github.com/veilmail/easgate/internal/protocol/eas"
)

// HandleUnsupported answers commands the server advertises but does not
// implement (SendMail, MoveItems, folder mutation, and the rest) with
// the generic protocol-error status. Clients treat it as a soft failure
// and carry on.
func HandleUnsupported(ctx *EASHandlerContext, _ *Handler, _ []byte) (*Result, error) {
	logger.DebugCtx(ctx.Context, "Unsupported command",
		logger.Username(ctx.Username),
		logger.DeviceID(ctx.DeviceID))
	return &Result{Payload: encodeSyncStatus(eas.StatusProtocolError)}, nil
}
