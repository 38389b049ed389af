// Package eas defines the Exchange ActiveSync protocol surface shared by
// the command handlers: protocol versions, command names, WBXML status
// codes, system folder identity and the decoded request structures.
//
// Wire formats follow [MS-ASCMD] and [MS-ASAIRS]; the binary encoding is
// handled by internal/protocol/wbxml.
package eas

// Endpoint is the HTTP path every ActiveSync client posts to.
const Endpoint = "/Microsoft-Server-ActiveSync"

// ContentTypeWBXML is the response content type for WBXML bodies.
const ContentTypeWBXML = "application/vnd.ms-sync.wbxml"

// SupportedVersions is the protocol version set this server negotiates,
// ascending. The newest entry doubles as the MS-Server-ActiveSync value.
var SupportedVersions = []string{"12.1", "14.0", "14.1", "16.0", "16.1"}

const (
	// DefaultVersion is offered to clients that do not send
	// MS-ASProtocolVersion or send one we do not support.
	DefaultVersion = "14.1"

	// LatestVersion is the newest supported protocol version.
	LatestVersion = "16.1"
)

// Command names as they appear in the Cmd query parameter.
const (
	CmdProvision       = "Provision"
	CmdFolderSync      = "FolderSync"
	CmdSync            = "Sync"
	CmdPing            = "Ping"
	CmdItemOperations  = "ItemOperations"
	CmdGetItemEstimate = "GetItemEstimate"
	CmdSettings        = "Settings"
	CmdSearch          = "Search"
)

// SupportedCommands is advertised in the MS-ASProtocolCommands header.
// Commands beyond the implemented set answer with a Status=2 document.
const SupportedCommands = "Sync,FolderSync,FolderCreate,FolderDelete,FolderUpdate," +
	"GetItemEstimate,Ping,Provision,Options,Settings,ItemOperations,SendMail," +
	"SmartForward,SmartReply,MoveItems,MeetingResponse,Search,Find,GetAttachment," +
	"ResolveRecipients,ValidateCert"

// WBXML Status values surfaced by the core. All are carried over HTTP 200.
const (
	StatusSuccess        = 1
	StatusProtocolError  = 2 // malformed request or unsupported command
	StatusServerError    = 3 // also invalid-sync-key recovery in Sync
	StatusHierarchyError = 8 // FolderSync state invalid
)

// PingStatusChanges is the Ping status reporting changed folders;
// StatusSuccess (1) means the heartbeat expired with no changes.
const PingStatusChanges = 2

// ProvisionedPolicyKey is the policy key handed out once the two-phase
// Provision handshake completes. Unprovisioned devices carry "0".
const (
	ProvisionedPolicyKey   = "1234567890"
	UnprovisionedPolicyKey = "0"
)

// PolicyTypeWBXML identifies the WBXML-encoded policy document format
// requested by protocol 12.0 and later clients.
const PolicyTypeWBXML = "MS-EAS-Provisioning-WBXML"

// System folder types from [MS-ASCMD] FolderSync.
const (
	FolderTypeInbox    = 2
	FolderTypeDrafts   = 3
	FolderTypeDeleted  = 4
	FolderTypeSent     = 5
	FolderTypeOutbox   = 6
	FolderTypeCalendar = 8
	FolderTypeContacts = 9
)

// SystemFolder is one entry of the fixed folder hierarchy.
type SystemFolder struct {
	ServerID    string
	DisplayName string
	Type        int
}

// SystemFolders is the fixed hierarchy emitted by FolderSync. All folders
// hang off the root (ParentId "0").
var SystemFolders = []SystemFolder{
	{ServerID: "1", DisplayName: "Inbox", Type: FolderTypeInbox},
	{ServerID: "2", DisplayName: "Drafts", Type: FolderTypeDrafts},
	{ServerID: "3", DisplayName: "Deleted Items", Type: FolderTypeDeleted},
	{ServerID: "4", DisplayName: "Sent Items", Type: FolderTypeSent},
	{ServerID: "5", DisplayName: "Outbox", Type: FolderTypeOutbox},
	{ServerID: "6", DisplayName: "Calendar", Type: FolderTypeCalendar},
	{ServerID: "7", DisplayName: "Contacts", Type: FolderTypeContacts},
}

// Body types from [MS-ASAIRS] BodyPreference.
const (
	BodyTypePlain = 1
	BodyTypeHTML  = 2
	BodyTypeRTF   = 3
	BodyTypeMIME  = 4
)

// MIMETruncationCap caps Type=4 bodies when the client did not supply a
// TruncationSize. Plain and HTML bodies are never capped implicitly.
const MIMETruncationCap = 512 * 1024

// Sync windowing limits per [MS-ASCMD] WindowSize.
const (
	DefaultWindowSize = 25
	MaxWindowSize     = 100
)

// Ping heartbeat bounds in seconds.
const (
	MinHeartbeat     = 300
	MaxHeartbeat     = 1800
	DefaultHeartbeat = 540
)
