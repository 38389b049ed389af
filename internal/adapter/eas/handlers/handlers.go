// Package handlers implements the ActiveSync command handlers invoked by
// the dispatch layer. Each handler decodes its WBXML request body, runs
// the operation against the shared collaborators, and returns the encoded
// response document.
package handlers

import (
	"context"

	"github.com/veilmail/easgate/internal/ping"
	syncengine "github.com/veilmail/easgate/internal/sync"
	"github.com/veilmail/easgate/pkg/mailstore"
	"github.com/veilmail/easgate/pkg/state/store"
)

// Handler bundles the collaborators shared by all command handlers.
type Handler struct {
	State *store.GORMStore
	Mail  mailstore.Store
	Sync  *syncengine.Engine
	Ping  *ping.Engine
}

// New builds the shared handler over the server's collaborators.
func New(state *store.GORMStore, mail mailstore.Store, syncEng *syncengine.Engine, pingEng *ping.Engine) *Handler {
	return &Handler{
		State: state,
		Mail:  mail,
		Sync:  syncEng,
		Ping:  pingEng,
	}
}

// EASHandlerContext carries per-request state through all command
// handlers. Created by the dispatch layer for each incoming request.
type EASHandlerContext struct {
	// Context for cancellation and deadlines
	Context context.Context

	// Username of the authenticated account
	Username string

	// DeviceID and DeviceType from the query string
	DeviceID   string
	DeviceType string

	// Version is the negotiated MS-ASProtocolVersion
	Version string

	// PolicyKey is the device's current policy key ("0" when
	// unprovisioned)
	PolicyKey string

	// ClientAddr is the remote address of the client
	ClientAddr string
}

// Result is a handler outcome: the WBXML response body plus an optional
// HTTP status override (0 means 200).
type Result struct {
	Payload    []byte
	HTTPStatus int
}
