// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// EntityType is the wire tag selecting which payload shape a [Record] carries.
// It is fixed when the record is created.
type EntityType string

const (
	EntityIntake        EntityType = "intake"
	EntityOutput        EntityType = "output"
	EntityFlush         EntityType = "flush"
	EntityBowelMovement EntityType = "bowel-movement"
	EntityDressingCheck EntityType = "dressing-check"
	EntityDailyTotal    EntityType = "daily-total"
	EntityGoal          EntityType = "goal"
)

// ErrUnknownEntityType is returned when a wire tag or alias does not name any
// known entity type. Pull treats it as "skip this entry".
var ErrUnknownEntityType = errors.New("unknown entity type")

// AllEntityTypes returns every entity type in the fixed order used by push.
func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityIntake,
		EntityOutput,
		EntityFlush,
		EntityBowelMovement,
		EntityDressingCheck,
		EntityDailyTotal,
		EntityGoal,
	}
}

// StoreName returns the local store (collection) name for the entity type,
// or an empty string for an unknown type.
func (t EntityType) StoreName() string {
	switch t {
	case EntityIntake:
		return "intakes"
	case EntityOutput:
		return "outputs"
	case EntityFlush:
		return "flushes"
	case EntityBowelMovement:
		return "bowelMovements"
	case EntityDressingCheck:
		return "dressingChecks"
	case EntityDailyTotal:
		return "dailyTotals"
	case EntityGoal:
		return "goals"
	}
	return ""
}

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	return t.StoreName() != ""
}

func (t EntityType) String() string {
	return string(t)
}

var folder = cases.Fold()

// ResolveEntityType maps a wire tag, a store name or one of the historical
// aliases to an [EntityType]. Matching ignores case and the separators
// '-', '_' and ' '.
func ResolveEntityType(tag string) (EntityType, error) {
	key := normalizeEntityTag(tag)

	switch key {
	case "intake", "intakes", "fluidintake", "drink":
		return EntityIntake, nil
	case "output", "outputs", "urine", "outputurine", "drain":
		return EntityOutput, nil
	case "flush", "flushes", "lineflush":
		return EntityFlush, nil
	case "bowelmovement", "bowelmovements", "bm", "stool":
		return EntityBowelMovement, nil
	case "dressingcheck", "dressingchecks", "dressing":
		return EntityDressingCheck, nil
	case "dailytotal", "dailytotals", "total", "totals":
		return EntityDailyTotal, nil
	case "goal", "goals", "target":
		return EntityGoal, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownEntityType, tag)
}

func normalizeEntityTag(tag string) string {
	folded := folder.String(strings.TrimSpace(tag))

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch r {
		case '-', '_', ' ':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
