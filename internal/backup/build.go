package backup

import (
	"encoding/json"
	"fmt"
	"time"
)

// BuildDocument assembles the final document from already-partitioned data.
// Pure assembly: no I/O, no crypto. Exactly one of encryptedPayload or
// inline sensitive categories ends up in appData, matching Encrypted.
func BuildDocument(public map[string]json.RawMessage, encryptedPayload string, info *EncryptionInfo, producer string) *Document {
	appData := make(map[string]json.RawMessage, len(public)+1)
	for name, value := range public {
		appData[name] = value
	}

	doc := &Document{
		Manifest: Manifest{
			Version:   FormatVersion,
			CreatedAt: time.Now().UTC().Format(time.RFC3339),
			Producer:  producer,
		},
		AppData: appData,
	}

	if encryptedPayload != "" {
		payload, _ := json.Marshal(encryptedPayload)
		doc.AppData[encryptedPayloadKey] = payload
		doc.Encrypted = true
		doc.EncryptionInfo = info
	}
	return doc
}

// marshalSnapshot encodes each category value of a snapshot to its JSON
// form, keyed by category name.
func marshalSnapshot(snapshot Snapshot) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(snapshot))
	for name, value := range snapshot {
		payload, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode category %q: %w", name, err)
		}
		out[string(name)] = payload
	}
	return out, nil
}
