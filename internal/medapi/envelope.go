package medapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jwalitptl/clinic-portal/pkg/errors"
)

// extractor pulls one candidate value out of a response payload.
type extractor func(payload json.RawMessage) (json.RawMessage, bool)

// at descends through object keys, e.g. at("data.availabilities").
func at(path string) extractor {
	keys := strings.Split(path, ".")
	return func(payload json.RawMessage) (json.RawMessage, bool) {
		cur := payload
		for _, k := range keys {
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(cur, &obj); err != nil {
				return nil, false
			}
			next, ok := obj[k]
			if !ok {
				return nil, false
			}
			cur = next
		}
		return cur, true
	}
}

func bare() extractor {
	return func(payload json.RawMessage) (json.RawMessage, bool) {
		return payload, true
	}
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

// Envelope orders for list endpoints. The first strategy that yields a JSON
// array wins.
var (
	specializationEnvelope = []extractor{at("specializations"), at("data.specializations"), at("data"), bare()}
	doctorEnvelope         = []extractor{at("doctors"), at("data.doctors"), at("data"), bare()}
	availabilityEnvelope   = []extractor{
		at("availabilities"),
		at("data.availabilities"),
		at("payload.availabilities"),
		at("availability"),
		at("data"),
		bare(),
	}
	appointmentEnvelope  = []extractor{at("appointments"), at("data.appointments"), at("data"), bare()}
	userEnvelope         = []extractor{at("pending_users"), at("users"), at("data"), bare()}
	notificationEnvelope = []extractor{at("notifications"), at("data.notifications"), at("data"), bare()}
	prescriptionEnvelope = []extractor{at("prescriptions"), at("data.prescriptions"), at("data"), bare()}
)

// decodeList returns an empty list when no strategy matches.
func decodeList[T any](payload json.RawMessage, strategies []extractor) ([]T, error) {
	out := []T{}
	if payload == nil {
		return out, nil
	}
	for _, extract := range strategies {
		raw, ok := extract(payload)
		if !ok || !isArray(raw) {
			continue
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, unexpectedShape(err)
		}
		return out, nil
	}
	return out, nil
}

// decodeObject decodes the first strategy that yields a JSON object.
func decodeObject[T any](payload json.RawMessage, resource string, strategies ...extractor) (*T, error) {
	if payload != nil {
		for _, extract := range append(strategies, bare()) {
			raw, ok := extract(payload)
			if !ok || !isObject(raw) {
				continue
			}
			var out T
			if err := json.Unmarshal(raw, &out); err != nil {
				return nil, unexpectedShape(err)
			}
			return &out, nil
		}
	}
	return nil, errors.NewIncomplete(fmt.Sprintf("%s missing from response", resource), nil)
}

func unexpectedShape(err error) error {
	return errors.NewInternal(fmt.Errorf("unexpected response shape: %w", err))
}
