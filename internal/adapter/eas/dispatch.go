// Package eas serves the ActiveSync HTTP endpoint: authentication,
// provisioning enforcement, command dispatch, and protocol headers.
package eas

import (
	"github.com/veilmail/easgate/internal/adapter/eas/handlers"
	"github.com/veilmail/easgate/internal/protocol/eas"
)

// Result is an alias for the handlers.Result type
type Result = handlers.Result

// CommandHandler is the signature for ActiveSync command handlers
type CommandHandler func(
	ctx *handlers.EASHandlerContext,
	handler *handlers.Handler,
	body []byte,
) (*Result, error)

// Command metadata
type Command struct {
	Name           string
	Handler        CommandHandler
	NeedsProvision bool // Gated behind the policy handshake (HTTP 449)
}

// DispatchTable maps Cmd query parameter values to handlers. Commands
// advertised in MS-ASProtocolCommands but absent here fall through to
// the unsupported handler.
var DispatchTable map[string]*Command

func init() {
	DispatchTable = map[string]*Command{
		eas.CmdProvision: {
			Name:           eas.CmdProvision,
			Handler:        handlers.HandleProvision,
			NeedsProvision: false,
		},
		eas.CmdFolderSync: {
			Name:           eas.CmdFolderSync,
			Handler:        handlers.HandleFolderSync,
			NeedsProvision: true,
		},
		eas.CmdSync: {
			Name:           eas.CmdSync,
			Handler:        handlers.HandleSync,
			NeedsProvision: true,
		},
		eas.CmdPing: {
			Name:           eas.CmdPing,
			Handler:        handlers.HandlePing,
			NeedsProvision: true,
		},
		eas.CmdItemOperations: {
			Name:           eas.CmdItemOperations,
			Handler:        handlers.HandleItemOperations,
			NeedsProvision: true,
		},
		eas.CmdGetItemEstimate: {
			Name:           eas.CmdGetItemEstimate,
			Handler:        handlers.HandleGetItemEstimate,
			NeedsProvision: true,
		},
		eas.CmdSettings: {
			Name:           eas.CmdSettings,
			Handler:        handlers.HandleSettings,
			NeedsProvision: true,
		},
		eas.CmdSearch: {
			Name:           eas.CmdSearch,
			Handler:        handlers.HandleSearch,
			NeedsProvision: true,
		},
	}
}

// lookupCommand resolves a Cmd value, substituting the unsupported
// handler for anything not in the table.
func lookupCommand(name string) *Command {
	if cmd, ok := DispatchTable[name]; ok {
		return cmd
	}
	return &Command{Name: name, Handler: handlers.HandleUnsupported, NeedsProvision: true}
}
