package handlers

import (
	"strconv"

	"github.com/veilmail/easgate/internal/logger"
	"github.com/veilmail/easgate/internal/protocol/eas"
	"github.com/veilmail/easgate/internal/protocol/wbxml"
	syncengine "github.com/veilmail/easgate/internal/sync"
	"github.com/veilmail/easgate/pkg/mailstore"
)

// itemOpsStatusNotFound is the per-Fetch status for an unknown ServerId
// ([MS-ASCMD] ItemOperations Status 6, document library/item errors).
const itemOpsStatusNotFound = 6

// HandleItemOperations serves multi-Fetch requests: every named item is
// resolved and rendered with its full body under the client's
// BodyPreference. Unknown ids get a per-Fetch error status; the request
// as a whole still succeeds.
func HandleItemOperations(ctx *EASHandlerContext, h *Handler, body []byte) (*Result, error) {
	req, err := eas.DecodeItemOperationsRequest(body)
	if err != nil {
		logger.WarnCtx(ctx.Context, "Malformed ItemOperations request",
			logger.Username(ctx.Username),
			logger.DeviceID(ctx.DeviceID),
			logger.Err(err))
		return &Result{Payload: encodeItemOpsStatus(eas.StatusProtocolError)}, nil
	}

	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PageItemOperations, wbxml.ItemOpsItemOperations)
	e.TextTag(wbxml.PageItemOperations, wbxml.ItemOpsStatus, strconv.Itoa(eas.StatusSuccess))
	e.StartTag(wbxml.PageItemOperations, wbxml.ItemOpsResponse)

	for _, fetch := range req.Fetches {
		item := resolveFetchItem(ctx, h, fetch.ServerID)

		e.StartTag(wbxml.PageItemOperations, wbxml.ItemOpsFetch)
		if item == nil {
			e.TextTag(wbxml.PageItemOperations, wbxml.ItemOpsStatus, strconv.Itoa(itemOpsStatusNotFound))
			e.TextTag(wbxml.PageAirSync, wbxml.AirSyncServerId, fetch.ServerID)
			e.EndTag()
			continue
		}

		e.TextTag(wbxml.PageItemOperations, wbxml.ItemOpsStatus, strconv.Itoa(eas.StatusSuccess))
		e.TextTag(wbxml.PageAirSync, wbxml.AirSyncServerId, fetch.ServerID)
		e.TextTag(wbxml.PageAirSync, wbxml.AirSyncClass, "Email")
		e.StartTag(wbxml.PageItemOperations, wbxml.ItemOpsProperties)
		if err := syncengine.EncodeEmail(e, item, fetch.BodyPreferences, true); err != nil {
			return nil, err
		}
		e.EndTag() // Properties
		e.EndTag() // Fetch
	}

	e.EndTag() // Response
	e.EndTag() // ItemOperations
	return &Result{Payload: e.Bytes()}, nil
}

// resolveFetchItem loads one item by its wire ServerId, or nil when the
// id is malformed or unknown.
func resolveFetchItem(ctx *EASHandlerContext, h *Handler, serverID string) *mailstore.Item {
	id, err := strconv.ParseInt(serverID, 10, 64)
	if err != nil {
		return nil
	}
	items, err := h.Mail.GetItems(ctx.Context, ctx.Username, []int64{id})
	if err != nil || len(items) == 0 {
		return nil
	}
	return items[0]
}

func encodeItemOpsStatus(status int) []byte {
	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PageItemOperations, wbxml.ItemOpsItemOperations)
	e.TextTag(wbxml.PageItemOperations, wbxml.ItemOpsStatus, strconv.Itoa(status))
	e.EndTag()
	return e.Bytes()
}
