package handlers

import (
	"strconv"

	"github.com/veilmail/easgate/internal/logger"
	"github.com/veilmail/easgate/internal/protocol/eas"
	"github.com/veilmail/easgate/internal/protocol/wbxml"
)

// policyField is one EASProvisionDoc entry.
type policyField struct {
	tag   byte
	value string
}

// permissivePolicy is the Phase 1 policy document: nothing is required of
// the device, everything is allowed. Field order is fixed; clients have
// been observed to misparse reordered documents.
var permissivePolicy = []policyField{
	{wbxml.ProvisionDevicePasswordEnabled, "0"},
	{wbxml.ProvisionAlphanumericDevicePasswordRequired, "0"},
	{wbxml.ProvisionPasswordRecoveryEnabled, "0"},
	{wbxml.ProvisionRequireDeviceEncryption, "0"},
	{wbxml.ProvisionAttachmentsEnabled, "1"},
	{wbxml.ProvisionMinDevicePasswordLength, "0"},
	{wbxml.ProvisionMaxInactivityTimeDeviceLock, "0"},
	{wbxml.ProvisionMaxDevicePasswordFailedAttempts, "0"},
	{wbxml.ProvisionMaxEmailAgeFilter, "0"},
	{wbxml.ProvisionAllowSimpleDevicePassword, "1"},
	{wbxml.ProvisionMaxAttachmentSize, "52428800"},
	{wbxml.ProvisionAllowStorageCard, "1"},
	{wbxml.ProvisionAllowCamera, "1"},
	{wbxml.ProvisionAllowUnsignedApplications, "1"},
	{wbxml.ProvisionAllowUnsignedInstallationPackages, "1"},
	{wbxml.ProvisionMinDevicePasswordComplexCharacters, "0"},
	{wbxml.ProvisionAllowWiFi, "1"},
	{wbxml.ProvisionAllowTextMessaging, "1"},
	{wbxml.ProvisionAllowPOPIMAPEmail, "1"},
	{wbxml.ProvisionAllowBluetooth, "2"},
	{wbxml.ProvisionAllowIrDA, "1"},
	{wbxml.ProvisionRequireManualSyncWhenRoaming, "0"},
	{wbxml.ProvisionAllowDesktopSync, "1"},
	{wbxml.ProvisionMaxCalendarAgeFilter, "0"},
	{wbxml.ProvisionAllowHTMLEmail, "1"},
	{wbxml.ProvisionMaxEmailBodyTruncationSize, "-1"},
	{wbxml.ProvisionMaxEmailHTMLBodyTruncationSize, "-1"},
	{wbxml.ProvisionRequireSignedSMIMEMessages, "0"},
	{wbxml.ProvisionRequireEncryptedSMIMEMessages, "0"},
	{wbxml.ProvisionRequireSignedSMIMEAlgorithm, "0"},
	{wbxml.ProvisionRequireEncryptionSMIMEAlgorithm, "0"},
	{wbxml.ProvisionAllowSMIMEEncryptionAlgorithmNegotiation, "2"},
	{wbxml.ProvisionAllowSMIMESoftCerts, "1"},
	{wbxml.ProvisionAllowBrowser, "1"},
	{wbxml.ProvisionAllowConsumerEmail, "1"},
	{wbxml.ProvisionAllowRemoteDesktop, "1"},
	{wbxml.ProvisionAllowInternetSharing, "1"},
}

// HandleProvision runs the two-phase provisioning handshake. Phase 1
// issues the permissive policy under temporary key "0"; Phase 2
// acknowledges and receives the final key, persisted before the response
// is returned.
func HandleProvision(ctx *EASHandlerContext, h *Handler, body []byte) (*Result, error) {
	req, err := eas.DecodeProvisionRequest(body)
	if err != nil {
		logger.WarnCtx(ctx.Context, "Malformed Provision request",
			logger.Username(ctx.Username),
			logger.DeviceID(ctx.DeviceID),
			logger.Err(err))
		return &Result{Payload: encodeProvisionStatus(eas.StatusProtocolError)}, nil
	}

	if req.Acknowledgment() {
		if err := h.State.MarkProvisioned(ctx.Context, ctx.Username, ctx.DeviceID); err != nil {
			return nil, err
		}
		logger.InfoCtx(ctx.Context, "Device provisioned",
			logger.Username(ctx.Username),
			logger.DeviceID(ctx.DeviceID),
			logger.PolicyKey(eas.ProvisionedPolicyKey))
		return &Result{Payload: encodeProvision(eas.ProvisionedPolicyKey, false)}, nil
	}

	logger.DebugCtx(ctx.Context, "Provision phase 1",
		logger.Username(ctx.Username),
		logger.DeviceID(ctx.DeviceID))
	return &Result{Payload: encodeProvision(eas.UnprovisionedPolicyKey, true)}, nil
}

// encodeProvision renders the Provision response. withPolicy controls the
// Phase 1 <Data> policy document; the Phase 2 acknowledgment carries the
// final key and no document.
func encodeProvision(policyKey string, withPolicy bool) []byte {
	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PageProvision, wbxml.ProvisionProvision)
	e.TextTag(wbxml.PageProvision, wbxml.ProvisionStatus, strconv.Itoa(eas.StatusSuccess))
	e.StartTag(wbxml.PageProvision, wbxml.ProvisionPolicies)
	e.StartTag(wbxml.PageProvision, wbxml.ProvisionPolicy)
	e.TextTag(wbxml.PageProvision, wbxml.ProvisionPolicyType, eas.PolicyTypeWBXML)
	e.TextTag(wbxml.PageProvision, wbxml.ProvisionStatus, strconv.Itoa(eas.StatusSuccess))
	e.TextTag(wbxml.PageProvision, wbxml.ProvisionPolicyKey, policyKey)
	if withPolicy {
		e.StartTag(wbxml.PageProvision, wbxml.ProvisionData)
		e.StartTag(wbxml.PageProvision, wbxml.ProvisionEASProvisionDoc)
		for _, f := range permissivePolicy {
			e.TextTag(wbxml.PageProvision, f.tag, f.value)
		}
		e.EndTag() // EASProvisionDoc
		e.EndTag() // Data
	}
	e.EndTag() // Policy
	e.EndTag() // Policies
	e.EndTag() // Provision
	return e.Bytes()
}

func encodeProvisionStatus(status int) []byte {
	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PageProvision, wbxml.ProvisionProvision)
	e.TextTag(wbxml.PageProvision, wbxml.ProvisionStatus, strconv.Itoa(status))
	e.EndTag()
	return e.Bytes()
}
