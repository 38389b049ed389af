package eas

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/veilmail/easgate/internal/protocol/wbxml"
)

// ErrUnexpectedRoot is returned when a request body does not open with the
// element the command requires.
var ErrUnexpectedRoot = errors.New("eas: unexpected root element")

// openRoot consumes the first tag of the document and verifies it.
func openRoot(d *wbxml.Decoder, page, code byte) (wbxml.Token, error) {
	tok, ok := d.Next()
	if !ok {
		if err := d.Err(); err != nil {
			return wbxml.Token{}, err
		}
		return wbxml.Token{}, fmt.Errorf("%w: empty body", ErrUnexpectedRoot)
	}
	if tok.Kind != wbxml.TokenTag || tok.Page != page || tok.Code != code {
		return wbxml.Token{}, fmt.Errorf("%w: want %s tag 0x%02x, got page %d tag 0x%02x",
			ErrUnexpectedRoot, wbxml.PageName(page), code, tok.Page, tok.Code)
	}
	return tok, nil
}

// eachChild invokes fn for every direct child tag of the element opened by
// parent. fn must fully consume the child's content (Skip, TextContent or
// its own descent). Inline text at this level is ignored.
func eachChild(d *wbxml.Decoder, parent wbxml.Token, fn func(tok wbxml.Token)) {
	if parent.Kind != wbxml.TokenTag || !parent.HasContent {
		return
	}
	for {
		tok, ok := d.Next()
		if !ok {
			return
		}
		switch tok.Kind {
		case wbxml.TokenEnd:
			return
		case wbxml.TokenTag:
			fn(tok)
		}
	}
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// decodeBodyPreference consumes one airsyncbase:BodyPreference element.
func decodeBodyPreference(d *wbxml.Decoder, tag wbxml.Token) BodyPreference {
	pref := BodyPreference{}
	eachChild(d, tag, func(tok wbxml.Token) {
		if tok.Page != wbxml.PageAirSyncBase {
			d.Skip(tok)
			return
		}
		switch tok.Code {
		case wbxml.BaseType:
			pref.Type = atoiDefault(d.TextContent(tok), 0)
		case wbxml.BaseTruncationSize:
			n := atoiDefault(d.TextContent(tok), 0)
			pref.TruncationSize = &n
		case wbxml.BaseAllOrNone:
			pref.AllOrNone = d.TextContent(tok) == "1"
		default:
			d.Skip(tok)
		}
	})
	return pref
}

// DecodeSyncRequest parses a Sync command body. Only the first Collection
// is recognized; additional collections are skipped.
func DecodeSyncRequest(body []byte) (*SyncRequest, error) {
	d, err := wbxml.NewDecoder(body)
	if err != nil {
		return nil, err
	}
	root, err := openRoot(d, wbxml.PageAirSync, wbxml.AirSyncSync)
	if err != nil {
		return nil, err
	}

	req := &SyncRequest{}
	seenCollection := false
	eachChild(d, root, func(tok wbxml.Token) {
		switch {
		case tok.Page == wbxml.PageAirSync && tok.Code == wbxml.AirSyncCollections:
			eachChild(d, tok, func(col wbxml.Token) {
				if col.Page == wbxml.PageAirSync && col.Code == wbxml.AirSyncCollection && !seenCollection {
					seenCollection = true
					decodeSyncCollection(d, col, req)
					return
				}
				d.Skip(col)
			})
		case tok.Page == wbxml.PageAirSync && tok.Code == wbxml.AirSyncWindowSize:
			req.WindowSize = atoiDefault(d.TextContent(tok), 0)
		default:
			d.Skip(tok)
		}
	})
	if err := d.Err(); err != nil {
		return nil, err
	}
	return req, nil
}

func decodeSyncCollection(d *wbxml.Decoder, col wbxml.Token, req *SyncRequest) {
	eachChild(d, col, func(tok wbxml.Token) {
		if tok.Page != wbxml.PageAirSync {
			d.Skip(tok)
			return
		}
		switch tok.Code {
		case wbxml.AirSyncSyncKey:
			req.SyncKey = d.TextContent(tok)
		case wbxml.AirSyncCollectionId:
			req.CollectionID = d.TextContent(tok)
		case wbxml.AirSyncClass:
			req.Class = d.TextContent(tok)
		case wbxml.AirSyncWindowSize:
			req.WindowSize = atoiDefault(d.TextContent(tok), 0)
		case wbxml.AirSyncGetChanges:
			// Contentless <GetChanges/> means true; with content, "1".
			if !tok.HasContent {
				req.GetChanges = true
			} else {
				req.GetChanges = d.TextContent(tok) != "0"
			}
		case wbxml.AirSyncOptions:
			decodeSyncOptions(d, tok, req)
		case wbxml.AirSyncCommands:
			decodeSyncCommands(d, tok, req)
		default:
			d.Skip(tok)
		}
	})
}

func decodeSyncOptions(d *wbxml.Decoder, opts wbxml.Token, req *SyncRequest) {
	eachChild(d, opts, func(tok wbxml.Token) {
		if tok.Page == wbxml.PageAirSyncBase && tok.Code == wbxml.BaseBodyPreference {
			req.BodyPreferences = append(req.BodyPreferences, decodeBodyPreference(d, tok))
			return
		}
		d.Skip(tok)
	})
}

func decodeSyncCommands(d *wbxml.Decoder, cmds wbxml.Token, req *SyncRequest) {
	serverID := func(entry wbxml.Token) string {
		var id string
		eachChild(d, entry, func(tok wbxml.Token) {
			if tok.Page == wbxml.PageAirSync && tok.Code == wbxml.AirSyncServerId {
				id = d.TextContent(tok)
				return
			}
			d.Skip(tok)
		})
		return id
	}
	eachChild(d, cmds, func(tok wbxml.Token) {
		if tok.Page != wbxml.PageAirSync {
			d.Skip(tok)
			return
		}
		switch tok.Code {
		case wbxml.AirSyncFetch:
			if id := serverID(tok); id != "" {
				req.FetchServerIDs = append(req.FetchServerIDs, id)
			}
		case wbxml.AirSyncDelete:
			if id := serverID(tok); id != "" {
				req.DeleteServerIDs = append(req.DeleteServerIDs, id)
			}
		default:
			d.Skip(tok)
		}
	})
}

// DecodeFolderSyncRequest parses a FolderSync command body.
func DecodeFolderSyncRequest(body []byte) (*FolderSyncRequest, error) {
	d, err := wbxml.NewDecoder(body)
	if err != nil {
		return nil, err
	}
	root, err := openRoot(d, wbxml.PageFolderHierarchy, wbxml.FolderFolderSync)
	if err != nil {
		return nil, err
	}
	req := &FolderSyncRequest{}
	eachChild(d, root, func(tok wbxml.Token) {
		if tok.Page == wbxml.PageFolderHierarchy && tok.Code == wbxml.FolderSyncKey {
			req.SyncKey = d.TextContent(tok)
			return
		}
		d.Skip(tok)
	})
	if err := d.Err(); err != nil {
		return nil, err
	}
	return req, nil
}

// DecodeProvisionRequest parses a Provision command body. An empty body is
// valid: some clients send the initial request without one.
func DecodeProvisionRequest(body []byte) (*ProvisionRequest, error) {
	req := &ProvisionRequest{}
	if len(body) == 0 {
		return req, nil
	}
	d, err := wbxml.NewDecoder(body)
	if err != nil {
		return nil, err
	}
	root, err := openRoot(d, wbxml.PageProvision, wbxml.ProvisionProvision)
	if err != nil {
		return nil, err
	}
	eachChild(d, root, func(tok wbxml.Token) {
		if tok.Page == wbxml.PageProvision && tok.Code == wbxml.ProvisionPolicies {
			eachChild(d, tok, func(pol wbxml.Token) {
				if pol.Page == wbxml.PageProvision && pol.Code == wbxml.ProvisionPolicy {
					eachChild(d, pol, func(field wbxml.Token) {
						switch {
						case field.Page == wbxml.PageProvision && field.Code == wbxml.ProvisionPolicyType:
							req.PolicyType = d.TextContent(field)
						case field.Page == wbxml.PageProvision && field.Code == wbxml.ProvisionPolicyKey:
							key := d.TextContent(field)
							req.ClientPolicyKey = &key
						default:
							d.Skip(field)
						}
					})
					return
				}
				d.Skip(pol)
			})
			return
		}
		d.Skip(tok)
	})
	if err := d.Err(); err != nil {
		return nil, err
	}
	return req, nil
}

// DecodePingRequest parses a Ping command body. An empty body reuses the
// device's previous parameters; callers handle that case.
func DecodePingRequest(body []byte) (*PingRequest, error) {
	req := &PingRequest{}
	if len(body) == 0 {
		return req, nil
	}
	d, err := wbxml.NewDecoder(body)
	if err != nil {
		return nil, err
	}
	root, err := openRoot(d, wbxml.PagePing, wbxml.PingPing)
	if err != nil {
		return nil, err
	}
	eachChild(d, root, func(tok wbxml.Token) {
		if tok.Page != wbxml.PagePing {
			d.Skip(tok)
			return
		}
		switch tok.Code {
		case wbxml.PingHeartbeatInterval:
			req.HeartbeatSeconds = atoiDefault(d.TextContent(tok), 0)
		case wbxml.PingFolders:
			eachChild(d, tok, func(folder wbxml.Token) {
				if folder.Page == wbxml.PagePing && folder.Code == wbxml.PingFolder {
					eachChild(d, folder, func(f wbxml.Token) {
						if f.Page == wbxml.PagePing && f.Code == wbxml.PingId {
							req.FolderIDs = append(req.FolderIDs, d.TextContent(f))
							return
						}
						d.Skip(f)
					})
					return
				}
				d.Skip(folder)
			})
		default:
			d.Skip(tok)
		}
	})
	if err := d.Err(); err != nil {
		return nil, err
	}
	return req, nil
}

// DecodeItemOperationsRequest parses an ItemOperations body, recognizing
// Fetch operations only. Other operations are skipped.
func DecodeItemOperationsRequest(body []byte) (*ItemOperationsRequest, error) {
	d, err := wbxml.NewDecoder(body)
	if err != nil {
		return nil, err
	}
	root, err := openRoot(d, wbxml.PageItemOperations, wbxml.ItemOpsItemOperations)
	if err != nil {
		return nil, err
	}
	req := &ItemOperationsRequest{}
	eachChild(d, root, func(tok wbxml.Token) {
		if tok.Page == wbxml.PageItemOperations && tok.Code == wbxml.ItemOpsFetch {
			fetch := ItemOperationsFetch{}
			eachChild(d, tok, func(f wbxml.Token) {
				switch {
				case f.Page == wbxml.PageItemOperations && f.Code == wbxml.ItemOpsStore:
					fetch.Store = d.TextContent(f)
				case f.Page == wbxml.PageAirSync && f.Code == wbxml.AirSyncCollectionId:
					fetch.CollectionID = d.TextContent(f)
				case f.Page == wbxml.PageAirSync && f.Code == wbxml.AirSyncServerId:
					fetch.ServerID = d.TextContent(f)
				case f.Page == wbxml.PageItemOperations && f.Code == wbxml.ItemOpsOptions:
					eachChild(d, f, func(opt wbxml.Token) {
						if opt.Page == wbxml.PageAirSyncBase && opt.Code == wbxml.BaseBodyPreference {
							fetch.BodyPreferences = append(fetch.BodyPreferences, decodeBodyPreference(d, opt))
							return
						}
						d.Skip(opt)
					})
				default:
					d.Skip(f)
				}
			})
			req.Fetches = append(req.Fetches, fetch)
			return
		}
		d.Skip(tok)
	})
	if err := d.Err(); err != nil {
		return nil, err
	}
	return req, nil
}

// DecodeGetItemEstimateRequest parses a GetItemEstimate body. Only the
// first Collection is recognized.
func DecodeGetItemEstimateRequest(body []byte) (*GetItemEstimateRequest, error) {
	d, err := wbxml.NewDecoder(body)
	if err != nil {
		return nil, err
	}
	root, err := openRoot(d, wbxml.PageGetItemEstimate, wbxml.EstimateGetItemEstimate)
	if err != nil {
		return nil, err
	}
	req := &GetItemEstimateRequest{}
	seen := false
	var walkCollection func(col wbxml.Token)
	walkCollection = func(col wbxml.Token) {
		eachChild(d, col, func(tok wbxml.Token) {
			switch {
			case tok.Page == wbxml.PageGetItemEstimate && tok.Code == wbxml.EstimateCollectionId:
				req.CollectionID = d.TextContent(tok)
			case tok.Page == wbxml.PageAirSync && tok.Code == wbxml.AirSyncCollectionId:
				req.CollectionID = d.TextContent(tok)
			case tok.Page == wbxml.PageGetItemEstimate && tok.Code == wbxml.EstimateClass:
				req.Class = d.TextContent(tok)
			case tok.Page == wbxml.PageAirSync && tok.Code == wbxml.AirSyncSyncKey:
				req.SyncKey = d.TextContent(tok)
			case tok.Page == wbxml.PageAirSync && tok.Code == wbxml.AirSyncOptions:
				walkCollection(tok) // 14.1 nests Class/SyncKey under Options
			default:
				d.Skip(tok)
			}
		})
	}
	eachChild(d, root, func(tok wbxml.Token) {
		if tok.Page == wbxml.PageGetItemEstimate && tok.Code == wbxml.EstimateCollections {
			eachChild(d, tok, func(col wbxml.Token) {
				if col.Page == wbxml.PageGetItemEstimate && col.Code == wbxml.EstimateCollection && !seen {
					seen = true
					walkCollection(col)
					return
				}
				d.Skip(col)
			})
			return
		}
		d.Skip(tok)
	})
	if err := d.Err(); err != nil {
		return nil, err
	}
	return req, nil
}

// DecodeSearchRequest parses a Search body (GAL store queries).
func DecodeSearchRequest(body []byte) (*SearchRequest, error) {
	d, err := wbxml.NewDecoder(body)
	if err != nil {
		return nil, err
	}
	root, err := openRoot(d, wbxml.PageSearch, wbxml.SearchSearch)
	if err != nil {
		return nil, err
	}
	req := &SearchRequest{}
	eachChild(d, root, func(tok wbxml.Token) {
		if tok.Page == wbxml.PageSearch && tok.Code == wbxml.SearchStore {
			eachChild(d, tok, func(f wbxml.Token) {
				switch {
				case f.Page == wbxml.PageSearch && f.Code == wbxml.SearchName:
					req.StoreName = d.TextContent(f)
				case f.Page == wbxml.PageSearch && f.Code == wbxml.SearchQuery:
					req.Query = d.TextContent(f)
				default:
					d.Skip(f)
				}
			})
			return
		}
		d.Skip(tok)
	})
	if err := d.Err(); err != nil {
		return nil, err
	}
	return req, nil
}
