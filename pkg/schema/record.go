package schema

import (
	"encoding/json"
	"errors"
)

// Record versions understood by DecodeRecord. Version 0 is a bare payload
// written before records were enveloped.
const (
	RecordVersionLegacy  = 0
	RecordVersionCurrent = 1
)

var errUnknownVersion = errors.New("unknown record version")

// Record is the envelope every durable value is stored in.
type Record struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// EncodeRecord wraps v in a current-version envelope.
func EncodeRecord(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Record{Version: RecordVersionCurrent, Data: data})
}

// DecodeRecord turns raw stored bytes into a typed value.
// ok is false when the input is empty, corrupt, or of an unknown version;
// callers then fall back to their default.
func DecodeRecord[T any](raw []byte) (T, bool) {
	var zero T
	v, err := decodeRecord[T](raw)
	if err != nil {
		return zero, false
	}
	return v, true
}

func decodeRecord[T any](raw []byte) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, errors.New("empty record")
	}

	var env struct {
		Version *int            `json:"version"`
		Data    json.RawMessage `json:"data"`
	}
	// Anything that is not an enveloped object is treated as a legacy payload.
	if err := json.Unmarshal(raw, &env); err != nil || env.Version == nil {
		err := json.Unmarshal(raw, &out)
		return out, err
	}

	switch *env.Version {
	case RecordVersionCurrent:
		if len(env.Data) == 0 {
			return out, errors.New("record has no data")
		}
		err := json.Unmarshal(env.Data, &out)
		return out, err
	default:
		return out, errUnknownVersion
	}
}
