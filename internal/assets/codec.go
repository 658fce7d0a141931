package assets

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder configured with Core Deterministic Encoding
// (RFC 8949 §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. The same index always produces identical bytes,
// which makes the builder's byte-level change detection exact.
var encMode cbor.EncMode

// decMode accepts standard CBOR. Unknown struct fields are ignored.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("assets: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("assets: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode serializes the index to its compact binary artifact form.
// Round-trip with Decode is lossless.
func Encode(index AssetIndex) ([]byte, error) {
	data, err := encMode.Marshal(index)
	if err != nil {
		return nil, fmt.Errorf("could not encode asset index: %w", err)
	}
	return data, nil
}

// Decode deserializes an index artifact. Truncated, corrupt, or
// schema-incompatible bytes yield a *DeserializeError; arbitrary input
// never panics, since partial or stale artifacts are a normal
// operational occurrence.
func Decode(data []byte) (AssetIndex, error) {
	var index AssetIndex
	if err := decMode.Unmarshal(data, &index); err != nil {
		return nil, &DeserializeError{Err: err}
	}
	if index == nil {
		// CBOR null decodes without error but is not an index
		return nil, &DeserializeError{Err: fmt.Errorf("not an asset index")}
	}
	if _, ok := index[""]; ok {
		return nil, &DeserializeError{Err: fmt.Errorf("index contains an empty key")}
	}
	return index, nil
}

// Display renders the index as human-readable text for offline
// inspection. One-way; there is no corresponding parse.
func Display(index AssetIndex) (string, error) {
	text, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return "", fmt.Errorf("could not render asset index: %w", err)
	}
	return string(text), nil
}
