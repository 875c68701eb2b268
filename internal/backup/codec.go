package backup

import (
	"encoding/json"
	"fmt"
)

// EncodeDocument serializes a document to its wire form.
func EncodeDocument(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("encode document: document is nil")
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return append(raw, '\n'), nil
}

// DecodeDocument parses raw bytes and enforces the document's structural
// invariants: supported version, encryption metadata present iff encrypted,
// and mutual exclusion between encryptedPayload and inline sensitive
// categories.
func DecodeDocument(raw []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}

	if doc.Manifest.Version != FormatVersion {
		return nil, fmt.Errorf("%w: document version %d", ErrUnsupportedVersion, doc.Manifest.Version)
	}

	_, hasPayload := doc.AppData[encryptedPayloadKey]
	if doc.Encrypted {
		if !hasPayload {
			return nil, fmt.Errorf("%w: encrypted document without payload", ErrParse)
		}
		if doc.EncryptionInfo == nil {
			return nil, fmt.Errorf("%w: encrypted document without encryption info", ErrParse)
		}
		for _, spec := range categorySpecs {
			if !spec.sensitive {
				continue
			}
			if _, ok := doc.AppData[string(spec.name)]; ok {
				return nil, fmt.Errorf("%w: category %q present alongside encrypted payload", ErrParse, spec.name)
			}
		}
	} else {
		if hasPayload {
			return nil, fmt.Errorf("%w: unencrypted document carries encrypted payload", ErrParse)
		}
		if doc.EncryptionInfo != nil {
			return nil, fmt.Errorf("%w: unencrypted document carries encryption info", ErrParse)
		}
	}

	if doc.AppData == nil {
		doc.AppData = map[string]json.RawMessage{}
	}
	return &doc, nil
}

func (d *Document) payload() (string, error) {
	raw, ok := d.AppData[encryptedPayloadKey]
	if !ok {
		return "", fmt.Errorf("%w: encrypted payload missing", ErrParse)
	}
	var payload string
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("%w: encrypted payload is not a string: %v", ErrParse, err)
	}
	return payload, nil
}
