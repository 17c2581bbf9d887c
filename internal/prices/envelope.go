package prices

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/guarzo/pkmpricedash/internal/model"
)

// EnvelopeKind says where in the response body the record array was found.
type EnvelopeKind int

const (
	EnvelopeUnrecognized EnvelopeKind = iota
	EnvelopeBare                      // [...]
	EnvelopeData                      // {"data": [...]}
	EnvelopeCards                     // {"cards": [...]}
)

func (k EnvelopeKind) String() string {
	switch k {
	case EnvelopeBare:
		return "bare"
	case EnvelopeData:
		return "data"
	case EnvelopeCards:
		return "cards"
	default:
		return "unrecognized"
	}
}

// Envelope is the parsed response. Records is empty, never nil, for
// EnvelopeUnrecognized.
type Envelope struct {
	Kind    EnvelopeKind
	Records []model.PriceRecord
	// Skipped counts array elements that did not decode as a record.
	Skipped int
	// SkipErr is the first decode error among the skipped elements.
	SkipErr error
}

// ParseEnvelope picks the first shape that actually holds an array: the body
// itself, then "data", then "cards". A body that is valid JSON in any other
// shape yields EnvelopeUnrecognized with no records. Elements are decoded one
// at a time; an element of the wrong shape is skipped and counted, the rest
// are kept. Only malformed JSON is an error.
func ParseEnvelope(body []byte) (Envelope, error) {
	raw := bytes.TrimSpace(body)
	if !json.Valid(raw) {
		return Envelope{}, fmt.Errorf("parsing response: invalid JSON")
	}

	kind, arr := locateArray(raw)
	if kind == EnvelopeUnrecognized {
		return Envelope{Kind: kind, Records: []model.PriceRecord{}}, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(arr, &elems); err != nil {
		return Envelope{}, fmt.Errorf("parsing %s envelope: %w", kind, err)
	}

	env := Envelope{Kind: kind, Records: make([]model.PriceRecord, 0, len(elems))}
	for i, elem := range elems {
		var r model.PriceRecord
		if err := json.Unmarshal(elem, &r); err != nil {
			if env.SkipErr == nil {
				env.SkipErr = fmt.Errorf("record %d: %w", i, err)
			}
			env.Skipped++
			continue
		}
		env.Records = append(env.Records, r)
	}
	return env, nil
}

func locateArray(raw []byte) (EnvelopeKind, json.RawMessage) {
	if isArray(raw) {
		return EnvelopeBare, raw
	}
	if len(raw) == 0 || raw[0] != '{' {
		return EnvelopeUnrecognized, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return EnvelopeUnrecognized, nil
	}
	if v, ok := obj["data"]; ok && isArray(v) {
		return EnvelopeData, v
	}
	if v, ok := obj["cards"]; ok && isArray(v) {
		return EnvelopeCards, v
	}
	return EnvelopeUnrecognized, nil
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}
