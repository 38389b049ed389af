package wbxml

// Codepage numbers used by the ActiveSync namespaces this server speaks.
const (
	PageAirSync         byte = 0
	PagePing            byte = 1
	PageEmail           byte = 2
	PageGetItemEstimate byte = 6
	PageFolderHierarchy byte = 7
	PageProvision       byte = 14
	PageSearch          byte = 15
	PageGAL             byte = 16
	PageAirSyncBase     byte = 17
	PageItemOperations  byte = 19
	PageSettings        byte = 20
)

// Codepage 0: AirSync.
const (
	AirSyncSync            byte = 0x05
	AirSyncResponses       byte = 0x06
	AirSyncAdd             byte = 0x07
	AirSyncChange          byte = 0x08
	AirSyncDelete          byte = 0x09
	AirSyncFetch           byte = 0x0A
	AirSyncSyncKey         byte = 0x0B
	AirSyncClientId        byte = 0x0C
	AirSyncServerId        byte = 0x0D
	AirSyncStatus          byte = 0x0E
	AirSyncCollection      byte = 0x0F
	AirSyncClass           byte = 0x10
	AirSyncCollectionId    byte = 0x12
	AirSyncGetChanges      byte = 0x13
	AirSyncMoreAvailable   byte = 0x14
	AirSyncWindowSize      byte = 0x15
	AirSyncCommands        byte = 0x16
	AirSyncOptions         byte = 0x17
	AirSyncFilterType      byte = 0x18
	AirSyncConflict        byte = 0x1B
	AirSyncCollections     byte = 0x1C
	AirSyncApplicationData byte = 0x1D
	AirSyncDeletesAsMoves  byte = 0x1E
	AirSyncSupported       byte = 0x20
	AirSyncSoftDelete      byte = 0x21
	AirSyncMIMESupport     byte = 0x22
	AirSyncMIMETruncation  byte = 0x23
	AirSyncWait            byte = 0x24
	AirSyncLimit           byte = 0x25
	AirSyncPartial         byte = 0x26
)

// Codepage 1: Ping.
const (
	PingPing              byte = 0x05
	PingAutdState         byte = 0x06
	PingStatus            byte = 0x07
	PingHeartbeatInterval byte = 0x08
	PingFolders           byte = 0x09
	PingFolder            byte = 0x0A
	PingId                byte = 0x0B
	PingClass             byte = 0x0C
	PingMaxFolders        byte = 0x0D
)

// Codepage 2: Email.
const (
	EmailDateReceived  byte = 0x0F
	EmailDisplayTo     byte = 0x11
	EmailImportance    byte = 0x12
	EmailMessageClass  byte = 0x13
	EmailSubject       byte = 0x14
	EmailRead          byte = 0x15
	EmailTo            byte = 0x16
	EmailCc            byte = 0x17
	EmailFrom          byte = 0x18
	EmailReplyTo       byte = 0x19
	EmailInternetCPID  byte = 0x39
	EmailContentClass  byte = 0x3A
	EmailFlag          byte = 0x3B
	EmailFlagStatus    byte = 0x3C
)

// Codepage 6: GetItemEstimate.
const (
	EstimateGetItemEstimate byte = 0x05
	EstimateVersion         byte = 0x06
	EstimateCollections     byte = 0x07
	EstimateCollection      byte = 0x08
	EstimateClass           byte = 0x09
	EstimateCollectionId    byte = 0x0A
	EstimateDateFilter      byte = 0x0B
	EstimateEstimate        byte = 0x0C
	EstimateResponse        byte = 0x0D
	EstimateStatus          byte = 0x0E
)

// Codepage 7: FolderHierarchy.
const (
	FolderFolders     byte = 0x05
	FolderFolder      byte = 0x06
	FolderDisplayName byte = 0x07
	FolderServerId    byte = 0x08
	FolderParentId    byte = 0x09
	FolderType        byte = 0x0A
	FolderResponse    byte = 0x0B
	FolderStatus      byte = 0x0C
	FolderChanges     byte = 0x0E
	FolderAdd         byte = 0x0F
	FolderDelete      byte = 0x10
	FolderUpdate      byte = 0x11
	FolderSyncKey     byte = 0x12
	FolderFolderSync  byte = 0x16
	FolderCount       byte = 0x17
)

// Codepage 14: Provision.
const (
	ProvisionProvision                                byte = 0x05
	ProvisionPolicies                                 byte = 0x06
	ProvisionPolicy                                   byte = 0x07
	ProvisionPolicyType                               byte = 0x08
	ProvisionPolicyKey                                byte = 0x09
	ProvisionData                                     byte = 0x0A
	ProvisionStatus                                   byte = 0x0B
	ProvisionRemoteWipe                               byte = 0x0C
	ProvisionEASProvisionDoc                          byte = 0x0D
	ProvisionDevicePasswordEnabled                    byte = 0x0E
	ProvisionAlphanumericDevicePasswordRequired       byte = 0x0F
	ProvisionPasswordRecoveryEnabled                  byte = 0x11
	ProvisionAttachmentsEnabled                       byte = 0x13
	ProvisionMinDevicePasswordLength                  byte = 0x14
	ProvisionMaxInactivityTimeDeviceLock              byte = 0x15
	ProvisionMaxDevicePasswordFailedAttempts          byte = 0x16
	ProvisionMaxAttachmentSize                        byte = 0x17
	ProvisionAllowSimpleDevicePassword                byte = 0x18
	ProvisionDevicePasswordExpiration                 byte = 0x19
	ProvisionDevicePasswordHistory                    byte = 0x1A
	ProvisionAllowStorageCard                         byte = 0x1B
	ProvisionAllowCamera                              byte = 0x1C
	ProvisionRequireDeviceEncryption                  byte = 0x1D
	ProvisionAllowUnsignedApplications                byte = 0x1E
	ProvisionAllowUnsignedInstallationPackages        byte = 0x1F
	ProvisionMinDevicePasswordComplexCharacters       byte = 0x20
	ProvisionAllowWiFi                                byte = 0x21
	ProvisionAllowTextMessaging                       byte = 0x22
	ProvisionAllowPOPIMAPEmail                        byte = 0x23
	ProvisionAllowBluetooth                           byte = 0x24
	ProvisionAllowIrDA                                byte = 0x25
	ProvisionRequireManualSyncWhenRoaming             byte = 0x26
	ProvisionAllowDesktopSync                         byte = 0x27
	ProvisionMaxCalendarAgeFilter                     byte = 0x28
	ProvisionAllowHTMLEmail                           byte = 0x29
	ProvisionMaxEmailAgeFilter                        byte = 0x2A
	ProvisionMaxEmailBodyTruncationSize               byte = 0x2B
	ProvisionMaxEmailHTMLBodyTruncationSize           byte = 0x2C
	ProvisionRequireSignedSMIMEMessages               byte = 0x2D
	ProvisionRequireEncryptedSMIMEMessages            byte = 0x2E
	ProvisionRequireSignedSMIMEAlgorithm              byte = 0x2F
	ProvisionRequireEncryptionSMIMEAlgorithm          byte = 0x30
	ProvisionAllowSMIMEEncryptionAlgorithmNegotiation byte = 0x31
	ProvisionAllowSMIMESoftCerts                      byte = 0x32
	ProvisionAllowBrowser                             byte = 0x33
	ProvisionAllowConsumerEmail                       byte = 0x34
	ProvisionAllowRemoteDesktop                       byte = 0x35
	ProvisionAllowInternetSharing                     byte = 0x36
)

// Codepage 15: Search. Codepage 16: GAL.
const (
	SearchSearch     byte = 0x05
	SearchStore      byte = 0x07
	SearchName       byte = 0x08
	SearchQuery      byte = 0x09
	SearchOptions    byte = 0x0A
	SearchRange      byte = 0x0B
	SearchStatus     byte = 0x0C
	SearchResponse   byte = 0x0D
	SearchResult     byte = 0x0E
	SearchProperties byte = 0x0F
	SearchTotal      byte = 0x10

	GALDisplayName  byte = 0x05
	GALPhone        byte = 0x06
	GALOffice       byte = 0x07
	GALTitle        byte = 0x08
	GALCompany      byte = 0x09
	GALAlias        byte = 0x0A
	GALFirstName    byte = 0x0B
	GALLastName     byte = 0x0C
	GALHomePhone    byte = 0x0D
	GALMobilePhone  byte = 0x0E
	GALEmailAddress byte = 0x0F
)

// Codepage 17: AirSyncBase.
const (
	BaseBodyPreference    byte = 0x05
	BaseType              byte = 0x06
	BaseTruncationSize    byte = 0x07
	BaseAllOrNone         byte = 0x08
	BaseBody              byte = 0x0A
	BaseData              byte = 0x0B
	BaseEstimatedDataSize byte = 0x0C
	BaseTruncated         byte = 0x0D
	BaseAttachments       byte = 0x0E
	BaseAttachment        byte = 0x0F
	BaseDisplayName       byte = 0x10
	BaseFileReference     byte = 0x11
	BaseNativeBodyType    byte = 0x16
	BaseContentType       byte = 0x17
)

// Codepage 19: ItemOperations.
const (
	ItemOpsItemOperations byte = 0x05
	ItemOpsFetch          byte = 0x06
	ItemOpsStore          byte = 0x07
	ItemOpsOptions        byte = 0x08
	ItemOpsRange          byte = 0x09
	ItemOpsTotal          byte = 0x0A
	ItemOpsProperties     byte = 0x0B
	ItemOpsData           byte = 0x0C
	ItemOpsStatus         byte = 0x0D
	ItemOpsResponse       byte = 0x0E
)

// Codepage 20: Settings.
const (
	SettingsSettings          byte = 0x05
	SettingsStatus            byte = 0x06
	SettingsGet               byte = 0x07
	SettingsSet               byte = 0x08
	SettingsOof               byte = 0x09
	SettingsDeviceInformation byte = 0x16
	SettingsModel             byte = 0x17
	SettingsFriendlyName      byte = 0x19
	SettingsOS                byte = 0x1A
	SettingsUserInformation   byte = 0x1D
	SettingsEmailAddresses    byte = 0x1E
	SettingsSMTPAddress       byte = 0x1F
)

// pageNames maps codepage numbers to namespace names for debug logging.
var pageNames = map[byte]string{
	PageAirSync:         "AirSync",
	PagePing:            "Ping",
	PageEmail:           "Email",
	PageGetItemEstimate: "GetItemEstimate",
	PageFolderHierarchy: "FolderHierarchy",
	PageProvision:       "Provision",
	PageSearch:          "Search",
	PageGAL:             "GAL",
	PageAirSyncBase:     "AirSyncBase",
	PageItemOperations:  "ItemOperations",
	PageSettings:        "Settings",
}

// PageName returns the namespace name for a codepage, or "Page <n>" when
// the page is not one this server speaks.
func PageName(page byte) string {
	if name, ok := pageNames[page]; ok {
		return name
	}
	return "Page " + itoa(page)
}

func itoa(b byte) string {
	if b == 0 {
		return "0"
	}
	var buf [3]byte
	i := len(buf)
	for b > 0 {
		i--
		buf[i] = '0' + b%10
		b /= 10
	}
	return string(buf[i:])
}
