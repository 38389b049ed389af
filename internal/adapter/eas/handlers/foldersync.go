package handlers

import (
	"strconv"

	"github.com/veilmail/easgate/internal/logger"
	"github.com/veilmail/easgate/internal/protocol/eas"
	"github.com/veilmail/easgate/internal/protocol/wbxml"
)

// HandleFolderSync emits the fixed system folder hierarchy. Client key
// "0" resets the hierarchy state and sends all folders; a matching key
// confirms nothing changed; a mismatch forces the client to reset.
func HandleFolderSync(ctx *EASHandlerContext, h *Handler, body []byte) (*Result, error) {
	req, err := eas.DecodeFolderSyncRequest(body)
	if err != nil {
		logger.WarnCtx(ctx.Context, "Malformed FolderSync request",
			logger.Username(ctx.Username),
			logger.DeviceID(ctx.DeviceID),
			logger.Err(err))
		return &Result{Payload: encodeFolderSyncStatus(eas.StatusProtocolError)}, nil
	}

	if req.SyncKey == "0" {
		st, err := h.State.ResetHierarchy(ctx.Context, ctx.Username, ctx.DeviceID)
		if err != nil {
			return nil, err
		}
		logger.InfoCtx(ctx.Context, "Folder hierarchy reset",
			logger.Username(ctx.Username),
			logger.DeviceID(ctx.DeviceID),
			logger.SyncKey(st.SyncKey))
		return &Result{Payload: encodeFolderSync(st.SyncKey, eas.SystemFolders)}, nil
	}

	st, err := h.State.LoadHierarchy(ctx.Context, ctx.Username, ctx.DeviceID)
	if err != nil {
		return nil, err
	}
	if req.SyncKey == st.SyncKey {
		return &Result{Payload: encodeFolderSync(st.SyncKey, nil)}, nil
	}

	logger.WarnCtx(ctx.Context, "FolderSync key mismatch, forcing hierarchy reset",
		logger.Username(ctx.Username),
		logger.DeviceID(ctx.DeviceID),
		logger.SyncKey(req.SyncKey))
	return &Result{Payload: encodeFolderSyncStatus(eas.StatusHierarchyError)}, nil
}

// encodeFolderSync renders the FolderSync response: Status, SyncKey, then
// a Changes block with Count and one Add per folder.
func encodeFolderSync(syncKey string, folders []eas.SystemFolder) []byte {
	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PageFolderHierarchy, wbxml.FolderFolderSync)
	e.TextTag(wbxml.PageFolderHierarchy, wbxml.FolderStatus, strconv.Itoa(eas.StatusSuccess))
	e.TextTag(wbxml.PageFolderHierarchy, wbxml.FolderSyncKey, syncKey)
	e.StartTag(wbxml.PageFolderHierarchy, wbxml.FolderChanges)
	e.TextTag(wbxml.PageFolderHierarchy, wbxml.FolderCount, strconv.Itoa(len(folders)))
	for _, f := range folders {
		e.StartTag(wbxml.PageFolderHierarchy, wbxml.FolderAdd)
		e.TextTag(wbxml.PageFolderHierarchy, wbxml.FolderServerId, f.ServerID)
		e.TextTag(wbxml.PageFolderHierarchy, wbxml.FolderParentId, "0")
		e.TextTag(wbxml.PageFolderHierarchy, wbxml.FolderDisplayName, f.DisplayName)
		e.TextTag(wbxml.PageFolderHierarchy, wbxml.FolderType, strconv.Itoa(f.Type))
		e.EndTag()
	}
	e.EndTag() // Changes
	e.EndTag() // FolderSync
	return e.Bytes()
}

func encodeFolderSyncStatus(status int) []byte {
	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PageFolderHierarchy, wbxml.FolderFolderSync)
	e.TextTag(wbxml.PageFolderHierarchy, wbxml.FolderStatus, strconv.Itoa(status))
	e.EndTag()
	return e.Bytes()
}
