package extraction

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoEnvelope is returned when model output holds neither the JSON
// envelope nor a bare table
var ErrNoEnvelope = errors.New("no table envelope in model output")

// TableFromEnvelope pulls the Markdown table out of the JSON envelope the
// text provider was asked for. Output that skipped the envelope but still
// looks like a table is returned as is.
func TableFromEnvelope(text string) (string, error) {
	cleaned := stripCodeFence(text)

	if table, ok := envelopeTable(cleaned); ok {
		return table, nil
	}
	if obj, err := jsonObject(cleaned); err == nil {
		if table, ok := envelopeTable(obj); ok {
			return table, nil
		}
	}
	if strings.Contains(cleaned, "|") {
		return cleaned, nil
	}
	return "", ErrNoEnvelope
}

func envelopeTable(text string) (string, bool) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &envelope); err != nil {
		return "", false
	}
	raw, ok := envelope[tableEnvelopeKey]
	if !ok {
		return "", false
	}
	var table string
	if err := json.Unmarshal(raw, &table); err != nil {
		return "", false
	}
	return table, true
}
