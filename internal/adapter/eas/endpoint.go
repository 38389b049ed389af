package eas

import (
	"errors"
	"io"
	"net/http"

	"github.com/veilmail/easgate/internal/adapter/eas/handlers"
	"github.com/veilmail/easgate/internal/logger"
	"github.com/veilmail/easgate/internal/protocol/eas"
)

// defaultMaxRequestBody caps command bodies; the largest legitimate
// payloads are multi-Fetch ItemOperations requests, well under a
// megabyte.
const defaultMaxRequestBody = 4 << 20

// statusRetryWith is the Microsoft extension status telling the client
// to run the Provision handshake and retry. Not part of net/http.
const statusRetryWith = 449

// endpoint serves POST and OPTIONS on /Microsoft-Server-ActiveSync.
type endpoint struct {
	handler *handlers.Handler
	maxBody int64
}

// handleOptions advertises the protocol capabilities. OPTIONS carries
// the plural versions header but never the negotiated singular one.
func (ep *endpoint) handleOptions(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("MS-Server-ActiveSync", eas.LatestVersion)
	h.Set("MS-ASProtocolVersions", protocolVersionsHeader())
	h.Set("MS-ASProtocolCommands", eas.SupportedCommands)
	h.Set("Cache-Control", "private, no-cache")
	h.Set("Pragma", "no-cache")
	w.WriteHeader(http.StatusOK)
}

// handlePost authenticates, negotiates the version, enforces the
// provisioning gate, and dispatches the command.
func (ep *endpoint) handlePost(w http.ResponseWriter, r *http.Request) {
	user := authenticatedUser(r.Context())
	if user == nil {
		// basicAuth always runs first; reaching here means a wiring bug.
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	query := r.URL.Query()
	cmdName := query.Get("Cmd")
	deviceID := query.Get("DeviceId")
	deviceType := query.Get("DeviceType")
	if cmdName == "" || deviceID == "" {
		http.Error(w, "missing Cmd or DeviceId", http.StatusBadRequest)
		return
	}

	version := negotiateVersion(r.Header.Get("MS-ASProtocolVersion"))

	lc := logger.FromContext(r.Context()).WithCommand(cmdName).WithDevice(deviceID).WithProtocolVersion(version)
	ctx := logger.WithContext(r.Context(), lc)

	device, err := ep.handler.State.GetOrCreateDevice(ctx, user.Username, deviceID, deviceType)
	if err != nil {
		logger.ErrorCtx(ctx, "Device lookup failed", logger.Err(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	cmd := lookupCommand(cmdName)
	if cmd.NeedsProvision && !device.IsProvisioned {
		writeCommonHeaders(w, version, device.PolicyKey)
		w.WriteHeader(statusRetryWith) // client must provision first
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, ep.maxBody))
	if err != nil {
		logger.WarnCtx(ctx, "Failed to read request body", logger.Err(err))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	hctx := &handlers.EASHandlerContext{
		Context:    ctx,
		Username:   user.Username,
		DeviceID:   deviceID,
		DeviceType: deviceType,
		Version:    version,
		PolicyKey:  device.PolicyKey,
		ClientAddr: r.RemoteAddr,
	}

	result, err := cmd.Handler(hctx, ep.handler, body)
	if err != nil {
		if errors.Is(err, r.Context().Err()) && r.Context().Err() != nil {
			// Client went away mid-command (long Ping, mostly). Nothing
			// useful to write.
			return
		}
		logger.ErrorCtx(ctx, "Command failed",
			logger.DurationMs(lc.DurationMs()),
			logger.Err(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	writeCommonHeaders(w, version, device.PolicyKey)
	if result.HTTPStatus != 0 && result.HTTPStatus != http.StatusOK {
		w.WriteHeader(result.HTTPStatus)
		return
	}
	if len(result.Payload) > 0 {
		w.Header().Set("Content-Type", eas.ContentTypeWBXML)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Payload); err != nil {
		logger.DebugCtx(ctx, "Response write failed", logger.Err(err))
	}
}

// writeCommonHeaders sets the protocol headers every POST response
// carries, including the negotiated singular version header.
func writeCommonHeaders(w http.ResponseWriter, version, policyKey string) {
	h := w.Header()
	h.Set("MS-Server-ActiveSync", eas.LatestVersion)
	h.Set("MS-ASProtocolVersion", version)
	h.Set("MS-ASProtocolVersions", protocolVersionsHeader())
	h.Set("MS-ASProtocolCommands", eas.SupportedCommands)
	h.Set("X-MS-PolicyKey", policyKey)
	h.Set("Cache-Control", "private, no-cache")
	h.Set("Pragma", "no-cache")
}
