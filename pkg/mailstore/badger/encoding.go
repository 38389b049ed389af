package badger

import (
	"encoding/json"
	"fmt"

	"github.com/veilmail/easgate/pkg/mailstore"
)

// ============================================================================
// Database Key Namespace Design
// ============================================================================
//
// BadgerDB is a key-value store, so prefixed keys organize the data types
// into logical namespaces and make range scans cheap.
//
// Item ids are zero-padded to 20 digits so lexicographic key order equals
// numeric id order; a reverse prefix scan over "i:<user>:<folder>:" yields
// the newest-first view without a secondary index.
//
// Data Type        Prefix   Key Format                         Value Type
// =========================================================================
// Mail Item        "i:"     i:<user>:<folder>:<id:20d>         Item (JSON)
// Item Index       "x:"     x:<user>:<id:20d>                  folder (bytes)
// Id Sequence      "seq:"   seq:<user>                         badger sequence
//
// The index row maps a bare id back to its folder so GetItems can resolve
// Fetch requests, which carry no folder context.

const (
	prefixItem     = "i:"
	prefixIndex    = "x:"
	prefixSequence = "seq:"
)

// paddedID formats an id for key use: 20 digits, zero-padded.
func paddedID(id int64) string {
	return fmt.Sprintf("%020d", id)
}

// keyItem generates a key for item data: "i:<user>:<folder>:<id:20d>"
func keyItem(user, folder string, id int64) []byte {
	return []byte(prefixItem + user + ":" + folder + ":" + paddedID(id))
}

// keyItemFolderPrefix generates the scan prefix for one folder's items.
func keyItemFolderPrefix(user, folder string) []byte {
	return []byte(prefixItem + user + ":" + folder + ":")
}

// keyIndex generates the id-to-folder index key: "x:<user>:<id:20d>"
func keyIndex(user string, id int64) []byte {
	return []byte(prefixIndex + user + ":" + paddedID(id))
}

// keySequence generates the per-user id sequence key: "seq:<user>"
func keySequence(user string) []byte {
	return []byte(prefixSequence + user)
}

func encodeItem(item *mailstore.Item) ([]byte, error) {
	data, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to encode item %d: %w", item.ID, err)
	}
	return data, nil
}

func decodeItem(data []byte) (*mailstore.Item, error) {
	var item mailstore.Item
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("failed to decode item: %w", err)
	}
	return &item, nil
}
