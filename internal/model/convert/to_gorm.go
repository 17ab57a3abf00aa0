package convert

import (
	"gorm.io/datatypes"

	"github.com/redtable/combat-tracker/internal/model"
)

// RecordToGorm wraps r as the row stored at position pos.
func RecordToGorm(pos int, r model.Record) model.Combatant {
	return model.Combatant{
		Position:    pos,
		CombatantID: r.String("id"),
		Kind:        r.String("type"),
		Name:        r.String("name"),
		Record:      datatypes.JSONMap(r),
	}
}

// GormToRecord unwraps the field bag of a stored row.
func GormToRecord(row model.Combatant) model.Record {
	r := make(model.Record, len(row.Record))
	for k, v := range row.Record {
		r[k] = v
	}
	return r
}
