// Package wbxml implements the WAP Binary XML encoding used by the
// Exchange ActiveSync protocol ([MS-ASWBXML]).
//
// WBXML replaces XML element names with single-byte tokens scoped to a
// codepage. A document starts with a four byte header (version, public
// identifier, charset, string table length) and then a token stream:
//
//	┌────────────┬───────┬──────────────────────────────────────────────┐
//	│ Byte       │ Name  │ Meaning                                      │
//	├────────────┼───────┼──────────────────────────────────────────────┤
//	│ 0x00       │ SWITCH_PAGE │ next byte selects the active codepage  │
//	│ 0x01       │ END   │ closes the current element                   │
//	│ 0x03       │ STR_I │ inline NUL-terminated UTF-8 string           │
//	│ 0xC3       │ OPAQUE│ mb_u32 length followed by raw bytes          │
//	│ tag        │       │ element start; bit 6 set when content follows│
//	└────────────┴───────┴──────────────────────────────────────────────┘
//
// The package follows an error-accumulation pattern: callers perform a
// sequence of reads or writes and check for errors once at the end. Once
// an error occurs all subsequent operations become no-ops.
//
// Every ActiveSync response produced by this server begins with the bytes
// 03 01 6A 00: WBXML v1.3, unknown public identifier, UTF-8, empty string
// table.
package wbxml
