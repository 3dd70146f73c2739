package models

import (
	"encoding/json"
	"fmt"
)

// Payload is the entity-specific part of a [Record]. It is the only part of a
// record that is encrypted before it leaves the device.
//
// Every concrete payload reports the entity type it belongs to, so a record's
// tag and its payload can never disagree.
type Payload interface {
	EntityType() EntityType
}

// Intake is a fluid intake event.
type Intake struct {
	AmountMl int    `json:"amountMl"`
	Fluid    string `json:"fluid,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Output is a measured fluid output (urine, drain).
type Output struct {
	AmountMl int    `json:"amountMl"`
	Kind     string `json:"kind,omitempty"`
	Color    string `json:"color,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// Flush is a line flush.
type Flush struct {
	AmountMl int    `json:"amountMl"`
	Line     string `json:"line,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

type BowelMovement struct {
	Consistency string `json:"consistency,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

type DressingCheck struct {
	Site      string `json:"site,omitempty"`
	Condition string `json:"condition,omitempty"`
	Changed   bool   `json:"changed"`
	Notes     string `json:"notes,omitempty"`
}

// DailyTotal is a per-day summary entered by the user. Date is YYYY-MM-DD.
type DailyTotal struct {
	Date     string `json:"date"`
	IntakeMl int    `json:"intakeMl"`
	OutputMl int    `json:"outputMl"`
	Notes    string `json:"notes,omitempty"`
}

// Goal is a daily target, e.g. Kind "intake" with TargetMl 2000.
type Goal struct {
	Kind     string `json:"kind"`
	TargetMl int    `json:"targetMl"`
	Notes    string `json:"notes,omitempty"`
}

func (Intake) EntityType() EntityType        { return EntityIntake }
func (Output) EntityType() EntityType        { return EntityOutput }
func (Flush) EntityType() EntityType         { return EntityFlush }
func (BowelMovement) EntityType() EntityType { return EntityBowelMovement }
func (DressingCheck) EntityType() EntityType { return EntityDressingCheck }
func (DailyTotal) EntityType() EntityType    { return EntityDailyTotal }
func (Goal) EntityType() EntityType          { return EntityGoal }

// DecodePayload unmarshals raw JSON into the concrete payload for t.
func DecodePayload(t EntityType, raw []byte) (Payload, error) {
	var (
		p   Payload
		err error
	)

	switch t {
	case EntityIntake:
		var v Intake
		err = json.Unmarshal(raw, &v)
		p = v
	case EntityOutput:
		var v Output
		err = json.Unmarshal(raw, &v)
		p = v
	case EntityFlush:
		var v Flush
		err = json.Unmarshal(raw, &v)
		p = v
	case EntityBowelMovement:
		var v BowelMovement
		err = json.Unmarshal(raw, &v)
		p = v
	case EntityDressingCheck:
		var v DressingCheck
		err = json.Unmarshal(raw, &v)
		p = v
	case EntityDailyTotal:
		var v DailyTotal
		err = json.Unmarshal(raw, &v)
		p = v
	case EntityGoal:
		var v Goal
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntityType, t)
	}

	if err != nil {
		return nil, fmt.Errorf("error decoding %s payload: %w", t, err)
	}
	return p, nil
}
