// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is one loggable health event as held by the local record store.
//
// All times are Unix milliseconds. UpdatedAt is stamped by the client on every
// mutation and is the only input to conflict resolution; server receipt time
// never participates. Synced is local-only and never leaves the device.
type Record struct {
	ID         string
	EntityType EntityType
	Payload    Payload
	Timestamp  int64
	UpdatedAt  int64
	Deleted    bool
	DeletedAt  *int64
	Synced     bool
}

// RecordPatch describes an update to an existing record. A nil Payload keeps
// the current payload, a nil Timestamp keeps the current event time.
type RecordPatch struct {
	ID        string
	Payload   Payload
	Timestamp *int64
}

type recordJSON struct {
	ID         string          `json:"id"`
	EntityType EntityType      `json:"entityType"`
	Payload    json.RawMessage `json:"payload"`
	Timestamp  int64           `json:"timestamp"`
	UpdatedAt  int64           `json:"updatedAt"`
	Deleted    bool            `json:"deleted"`
	DeletedAt  *int64          `json:"deletedAt,omitempty"`
	Synced     bool            `json:"synced"`
}

// MarshalJSON implements [json.Marshaler].
func (r Record) MarshalJSON() ([]byte, error) {
	payload := json.RawMessage("null")
	if r.Payload != nil {
		raw, err := json.Marshal(r.Payload)
		if err != nil {
			return nil, fmt.Errorf("error encoding payload of record %s: %w", r.ID, err)
		}
		payload = raw
	}

	return json.Marshal(recordJSON{
		ID:         r.ID,
		EntityType: r.EntityType,
		Payload:    payload,
		Timestamp:  r.Timestamp,
		UpdatedAt:  r.UpdatedAt,
		Deleted:    r.Deleted,
		DeletedAt:  r.DeletedAt,
		Synced:     r.Synced,
	})
}

// UnmarshalJSON implements [json.Unmarshaler]. The payload is decoded into the
// concrete type selected by entityType.
func (r *Record) UnmarshalJSON(b []byte) error {
	var aux recordJSON
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	var payload Payload
	if len(aux.Payload) > 0 && !bytes.Equal(aux.Payload, []byte("null")) {
		p, err := DecodePayload(aux.EntityType, aux.Payload)
		if err != nil {
			return err
		}
		payload = p
	}

	*r = Record{
		ID:         aux.ID,
		EntityType: aux.EntityType,
		Payload:    payload,
		Timestamp:  aux.Timestamp,
		UpdatedAt:  aux.UpdatedAt,
		Deleted:    aux.Deleted,
		DeletedAt:  aux.DeletedAt,
		Synced:     aux.Synced,
	}
	return nil
}
