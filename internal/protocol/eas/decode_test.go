package eas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veilmail/easgate/internal/protocol/wbxml"
)

func encodeSyncRequest(t *testing.T, syncKey, collectionID string, window int, prefs []BodyPreference, fetchIDs []string) []byte {
	t.Helper()
	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PageAirSync, wbxml.AirSyncSync)
	e.StartTag(wbxml.PageAirSync, wbxml.AirSyncCollections)
	e.StartTag(wbxml.PageAirSync, wbxml.AirSyncCollection)
	e.TextTag(wbxml.PageAirSync, wbxml.AirSyncSyncKey, syncKey)
	e.TextTag(wbxml.PageAirSync, wbxml.AirSyncCollectionId, collectionID)
	e.TextTag(wbxml.PageAirSync, wbxml.AirSyncClass, "Email")
	e.EmptyTag(wbxml.PageAirSync, wbxml.AirSyncGetChanges)
	if window > 0 {
		e.IntTag(wbxml.PageAirSync, wbxml.AirSyncWindowSize, window)
	}
	if len(prefs) > 0 {
		e.StartTag(wbxml.PageAirSync, wbxml.AirSyncOptions)
		for _, p := range prefs {
			e.StartTag(wbxml.PageAirSyncBase, wbxml.BaseBodyPreference)
			e.IntTag(wbxml.PageAirSyncBase, wbxml.BaseType, p.Type)
			if p.TruncationSize != nil {
				e.IntTag(wbxml.PageAirSyncBase, wbxml.BaseTruncationSize, *p.TruncationSize)
			}
			if p.AllOrNone {
				e.TextTag(wbxml.PageAirSyncBase, wbxml.BaseAllOrNone, "1")
			}
			e.EndTag()
		}
		e.EndTag()
	}
	if len(fetchIDs) > 0 {
		e.StartTag(wbxml.PageAirSync, wbxml.AirSyncCommands)
		for _, id := range fetchIDs {
			e.StartTag(wbxml.PageAirSync, wbxml.AirSyncFetch)
			e.TextTag(wbxml.PageAirSync, wbxml.AirSyncServerId, id)
			e.EndTag()
		}
		e.EndTag()
	}
	e.EndTag() // Collection
	e.EndTag() // Collections
	e.EndTag() // Sync
	return e.Bytes()
}

func TestDecodeSyncRequest(t *testing.T) {
	trunc := 32768
	body := encodeSyncRequest(t, "5", "1", 10,
		[]BodyPreference{
			{Type: BodyTypeHTML, TruncationSize: &trunc},
			{Type: BodyTypeMIME},
		},
		[]string{"101", "102"},
	)

	req, err := DecodeSyncRequest(body)
	require.NoError(t, err)

	assert.Equal(t, "5", req.SyncKey)
	assert.Equal(t, "1", req.CollectionID)
	assert.Equal(t, "Email", req.Class)
	assert.Equal(t, 10, req.WindowSize)
	assert.True(t, req.GetChanges)
	require.Len(t, req.BodyPreferences, 2)
	assert.Equal(t, BodyTypeHTML, req.BodyPreferences[0].Type)
	require.NotNil(t, req.BodyPreferences[0].TruncationSize)
	assert.Equal(t, 32768, *req.BodyPreferences[0].TruncationSize)
	assert.Equal(t, BodyTypeMIME, req.BodyPreferences[1].Type)
	assert.Nil(t, req.BodyPreferences[1].TruncationSize)
	assert.Equal(t, []string{"101", "102"}, req.FetchServerIDs)
	assert.Empty(t, req.DeleteServerIDs)
}

func TestDecodeSyncRequestMinimal(t *testing.T) {
	body := encodeSyncRequest(t, "0", "1", 0, nil, nil)
	req, err := DecodeSyncRequest(body)
	require.NoError(t, err)
	assert.Equal(t, "0", req.SyncKey)
	assert.Zero(t, req.WindowSize)
	assert.Empty(t, req.BodyPreferences)
}

func TestDecodeSyncRequestRoundTripStable(t *testing.T) {
	// Decoding the same bytes twice yields identical structures, and
	// re-encoding the recognized fields reproduces the original bytes.
	trunc := 1024
	body := encodeSyncRequest(t, "2", "1", 5, []BodyPreference{{Type: BodyTypePlain, TruncationSize: &trunc}}, nil)
	first, err := DecodeSyncRequest(body)
	require.NoError(t, err)
	second, err := DecodeSyncRequest(body)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	reencoded := encodeSyncRequest(t, first.SyncKey, first.CollectionID, first.WindowSize, first.BodyPreferences, first.FetchServerIDs)
	assert.Equal(t, body, reencoded)
}

func TestDecodeSyncRequestWrongRoot(t *testing.T) {
	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PageFolderHierarchy, wbxml.FolderFolderSync)
	e.EndTag()
	_, err := DecodeSyncRequest(e.Bytes())
	assert.ErrorIs(t, err, ErrUnexpectedRoot)
}

func TestDecodeFolderSyncRequest(t *testing.T) {
	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PageFolderHierarchy, wbxml.FolderFolderSync)
	e.TextTag(wbxml.PageFolderHierarchy, wbxml.FolderSyncKey, "0")
	e.EndTag()

	req, err := DecodeFolderSyncRequest(e.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "0", req.SyncKey)
}

func TestDecodeProvisionRequest(t *testing.T) {
	encode := func(policyKey *string) []byte {
		e := wbxml.NewEncoder()
		e.StartTag(wbxml.PageProvision, wbxml.ProvisionProvision)
		e.StartTag(wbxml.PageProvision, wbxml.ProvisionPolicies)
		e.StartTag(wbxml.PageProvision, wbxml.ProvisionPolicy)
		e.TextTag(wbxml.PageProvision, wbxml.ProvisionPolicyType, PolicyTypeWBXML)
		if policyKey != nil {
			e.TextTag(wbxml.PageProvision, wbxml.ProvisionPolicyKey, *policyKey)
		}
		e.EndTag()
		e.EndTag()
		e.EndTag()
		return e.Bytes()
	}

	t.Run("Phase1", func(t *testing.T) {
		req, err := DecodeProvisionRequest(encode(nil))
		require.NoError(t, err)
		assert.Equal(t, PolicyTypeWBXML, req.PolicyType)
		assert.Nil(t, req.ClientPolicyKey)
		assert.False(t, req.Acknowledgment())
	})

	t.Run("Phase2", func(t *testing.T) {
		zero := "0"
		req, err := DecodeProvisionRequest(encode(&zero))
		require.NoError(t, err)
		require.NotNil(t, req.ClientPolicyKey)
		assert.Equal(t, "0", *req.ClientPolicyKey)
		assert.True(t, req.Acknowledgment())
	})

	t.Run("EmptyBody", func(t *testing.T) {
		req, err := DecodeProvisionRequest(nil)
		require.NoError(t, err)
		assert.False(t, req.Acknowledgment())
	})
}

func TestDecodePingRequest(t *testing.T) {
	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PagePing, wbxml.PingPing)
	e.TextTag(wbxml.PagePing, wbxml.PingHeartbeatInterval, "600")
	e.StartTag(wbxml.PagePing, wbxml.PingFolders)
	for _, id := range []string{"1", "5"} {
		e.StartTag(wbxml.PagePing, wbxml.PingFolder)
		e.TextTag(wbxml.PagePing, wbxml.PingId, id)
		e.TextTag(wbxml.PagePing, wbxml.PingClass, "Email")
		e.EndTag()
	}
	e.EndTag()
	e.EndTag()

	req, err := DecodePingRequest(e.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 600, req.HeartbeatSeconds)
	assert.Equal(t, []string{"1", "5"}, req.FolderIDs)
}

func TestDecodeItemOperationsRequest(t *testing.T) {
	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PageItemOperations, wbxml.ItemOpsItemOperations)
	e.StartTag(wbxml.PageItemOperations, wbxml.ItemOpsFetch)
	e.TextTag(wbxml.PageItemOperations, wbxml.ItemOpsStore, "Mailbox")
	e.TextTag(wbxml.PageAirSync, wbxml.AirSyncCollectionId, "1")
	e.TextTag(wbxml.PageAirSync, wbxml.AirSyncServerId, "204")
	e.StartTag(wbxml.PageItemOperations, wbxml.ItemOpsOptions)
	e.StartTag(wbxml.PageAirSyncBase, wbxml.BaseBodyPreference)
	e.IntTag(wbxml.PageAirSyncBase, wbxml.BaseType, BodyTypeMIME)
	e.EndTag()
	e.EndTag()
	e.EndTag()
	e.EndTag()

	req, err := DecodeItemOperationsRequest(e.Bytes())
	require.NoError(t, err)
	require.Len(t, req.Fetches, 1)
	f := req.Fetches[0]
	assert.Equal(t, "Mailbox", f.Store)
	assert.Equal(t, "1", f.CollectionID)
	assert.Equal(t, "204", f.ServerID)
	require.Len(t, f.BodyPreferences, 1)
	assert.Equal(t, BodyTypeMIME, f.BodyPreferences[0].Type)
}

func TestDecodeGetItemEstimateRequest(t *testing.T) {
	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PageGetItemEstimate, wbxml.EstimateGetItemEstimate)
	e.StartTag(wbxml.PageGetItemEstimate, wbxml.EstimateCollections)
	e.StartTag(wbxml.PageGetItemEstimate, wbxml.EstimateCollection)
	e.TextTag(wbxml.PageGetItemEstimate, wbxml.EstimateCollectionId, "1")
	e.StartTag(wbxml.PageAirSync, wbxml.AirSyncOptions)
	e.TextTag(wbxml.PageGetItemEstimate, wbxml.EstimateClass, "Email")
	e.EndTag()
	e.TextTag(wbxml.PageAirSync, wbxml.AirSyncSyncKey, "3")
	e.EndTag()
	e.EndTag()
	e.EndTag()

	req, err := DecodeGetItemEstimateRequest(e.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "1", req.CollectionID)
	assert.Equal(t, "Email", req.Class)
	assert.Equal(t, "3", req.SyncKey)
}

func TestDecodeSearchRequest(t *testing.T) {
	e := wbxml.NewEncoder()
	e.StartTag(wbxml.PageSearch, wbxml.SearchSearch)
	e.StartTag(wbxml.PageSearch, wbxml.SearchStore)
	e.TextTag(wbxml.PageSearch, wbxml.SearchName, "GAL")
	e.TextTag(wbxml.PageSearch, wbxml.SearchQuery, "ali")
	e.EndTag()
	e.EndTag()

	req, err := DecodeSearchRequest(e.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "GAL", req.StoreName)
	assert.Equal(t, "ali", req.Query)
}
