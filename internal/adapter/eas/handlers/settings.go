package handlers

import (
	"strconv"

	"github.com/veilmail/easgate/internal/protocol/eas"
	"github.com/veilmail/easgate/internal/protocol/wbxml"
)

// HandleSettings acknowledges Settings requests with a static success
// document. DeviceInformation sets are accepted and discarded;
// UserInformation gets report the account's address.
func HandleSettings(ctx *EASHandlerContext, h *Handler, _ []byte) (*Result, error) {
	address := ctx.Username
	if user, err := h.State.GetUser(ctx.Context, ctx.Username); err == nil && user.Email != "" {
		address = user.Email
	}

	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PageSettings, wbxml.SettingsSettings)
	e.TextTag(wbxml.PageSettings, wbxml.SettingsStatus, strconv.Itoa(eas.StatusSuccess))

	e.StartTag(wbxml.PageSettings, wbxml.SettingsDeviceInformation)
	e.TextTag(wbxml.PageSettings, wbxml.SettingsStatus, strconv.Itoa(eas.StatusSuccess))
	e.EndTag()

	e.StartTag(wbxml.PageSettings, wbxml.SettingsUserInformation)
	e.TextTag(wbxml.PageSettings, wbxml.SettingsStatus, strconv.Itoa(eas.StatusSuccess))
	e.StartTag(wbxml.PageSettings, wbxml.SettingsGet)
	e.StartTag(wbxml.PageSettings, wbxml.SettingsEmailAddresses)
	e.TextTag(wbxml.PageSettings, wbxml.SettingsSMTPAddress, address)
	e.EndTag() // EmailAddresses
	e.EndTag() // Get
	e.EndTag() // UserInformation

	e.EndTag() // Settings
	return &Result{Payload: e.Bytes()}, nil
}
