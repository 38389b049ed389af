package eas

import (
	"strings"

	"github.com/veilmail/easgate/internal/protocol/eas"
)

// negotiateVersion picks the protocol version for a request from its
// MS-ASProtocolVersion header. A supported value is echoed back; a
// missing or unknown one falls back to the default, except that clients
// asking for an unsupported 16.x revision get the newest version we do
// speak.
func negotiateVersion(header string) string {
	header = strings.TrimSpace(header)
	for _, v := range eas.SupportedVersions {
		if header == v {
			return v
		}
	}
	if strings.HasPrefix(header, "16.") {
		return eas.LatestVersion
	}
	return eas.DefaultVersion
}

// protocolVersionsHeader renders SupportedVersions for the
// MS-ASProtocolVersions response header.
func protocolVersionsHeader() string {
	return strings.Join(eas.SupportedVersions, ",")
}
