package handlers

import (
	"strconv"

	"github.com/veilmail/easgate/internal/logger"
	"github.com/veilmail/easgate/internal/protocol/eas"
	"github.com/veilmail/easgate/internal/protocol/wbxml"
)

// searchResultLimit bounds GAL lookups; ActiveSync clients page with
// Range but the first page is all we serve.
const searchResultLimit = 100

// HandleSearch serves GAL lookups against the user directory. An empty
// result set is a successful response.
func HandleSearch(ctx *EASHandlerContext, h *Handler, body []byte) (*Result, error) {
	req, err := eas.DecodeSearchRequest(body)
	if err != nil {
		logger.WarnCtx(ctx.Context, "Malformed Search request",
			logger.Username(ctx.Username),
			logger.DeviceID(ctx.DeviceID),
			logger.Err(err))
		return &Result{Payload: encodeSearchStatus(eas.StatusProtocolError)}, nil
	}

	users, err := h.State.SearchUsers(ctx.Context, req.Query, searchResultLimit)
	if err != nil {
		logger.ErrorCtx(ctx.Context, "GAL lookup failed",
			logger.Username(ctx.Username),
			logger.Err(err))
		return &Result{Payload: encodeSearchStatus(eas.StatusServerError)}, nil
	}

	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PageSearch, wbxml.SearchSearch)
	e.TextTag(wbxml.PageSearch, wbxml.SearchStatus, strconv.Itoa(eas.StatusSuccess))
	e.StartTag(wbxml.PageSearch, wbxml.SearchResponse)
	e.StartTag(wbxml.PageSearch, wbxml.SearchStore)
	e.TextTag(wbxml.PageSearch, wbxml.SearchStatus, strconv.Itoa(eas.StatusSuccess))
	for _, user := range users {
		e.StartTag(wbxml.PageSearch, wbxml.SearchResult)
		e.StartTag(wbxml.PageSearch, wbxml.SearchProperties)
		e.TextTag(wbxml.PageGAL, wbxml.GALDisplayName, user.GetDisplayName())
		e.TextTag(wbxml.PageGAL, wbxml.GALAlias, user.Username)
		if user.Email != "" {
			e.TextTag(wbxml.PageGAL, wbxml.GALEmailAddress, user.Email)
		}
		e.EndTag() // Properties
		e.EndTag() // Result
	}
	e.TextTag(wbxml.PageSearch, wbxml.SearchTotal, strconv.Itoa(len(users)))
	e.EndTag() // Store
	e.EndTag() // Response
	e.EndTag() // Search
	return &Result{Payload: e.Bytes()}, nil
}

func encodeSearchStatus(status int) []byte {
	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PageSearch, wbxml.SearchSearch)
	e.TextTag(wbxml.PageSearch, wbxml.SearchStatus, strconv.Itoa(status))
	e.EndTag()
	return e.Bytes()
}
