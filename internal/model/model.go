package model

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Encounter{},
	&Combatant{},
	&HitEvent{},
}

// Encounter is the single saved encounter. It records when the turn order
// was last written.
type Encounter struct {
	ID         uint      `json:"id" gorm:"primarykey"`
	Name       string    `json:"name" gorm:"size:127"`
	Combatants int       `json:"combatants"`
	SavedAt    time.Time `json:"savedAt"`
}

func (*Encounter) TableName() string {
	return "encounters"
}

// Combatant is one persisted record in turn order.
type Combatant struct {
	ID          uint              `json:"-" gorm:"primarykey"`
	Position    int               `json:"position" gorm:"index:idx_combatant_position"`
	CombatantID string            `json:"combatantId" gorm:"size:36"`
	Kind        string            `json:"type" gorm:"size:16"`
	Name        string            `json:"name" gorm:"size:127"`
	Record      datatypes.JSONMap `json:"record"`
}

func (*Combatant) TableName() string {
	return "combatants"
}

// HitEvent is one resolved attack, kept as an append-only log beside the
// turn order.
type HitEvent struct {
	ID           uint      `json:"-" gorm:"primarykey"`
	Time         time.Time `json:"time" gorm:"index:idx_hit_time"`
	CombatantID  string    `json:"combatantId" gorm:"size:36;index:idx_hit_combatant"`
	Kind         string    `json:"type" gorm:"size:16"`
	Name         string    `json:"name" gorm:"size:127"`
	Location     string    `json:"location" gorm:"size:16"`
	Raw          float64   `json:"raw"`
	ArmorBefore  int       `json:"armorBefore"`
	ArmorAfter   int       `json:"armorAfter"`
	Final        int       `json:"final"`
	Applied      int       `json:"applied"`
	Absorbed     bool      `json:"absorbed"`
	Notification string    `json:"notification" gorm:"size:64"`
}

func (*HitEvent) TableName() string {
	return "hit_events"
}

////////////////////////
// RECORDS
////////////////////////

// Record is the flat field bag for one combatant, keyed by field name
// ("type", "init", "headSp", "dmgTaken", ...). It is the shape written to
// every storage backend and served to the rendering layer.
type Record map[string]any

// Int reads a numeric field. Values decoded from JSON arrive as float64 or
// json.Number and are floored.
func (r Record) Int(key string) (int, bool) {
	switch v := r[key].(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, false
		}
		return int(math.Floor(v)), true
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return int(math.Floor(f)), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, false
		}
		return int(math.Floor(f)), true
	}
	return 0, false
}

// IntOr reads a numeric field, falling back to def.
func (r Record) IntOr(key string, def int) int {
	if v, ok := r.Int(key); ok {
		return v
	}
	return def
}

// String reads a text field.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Bool reads a flag field.
func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Strings reads a list of text values.
func (r Record) Strings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Clone copies r so the copy can be stored while r keeps changing. List
// values are copied; other values are immutable.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		switch v := v.(type) {
		case []string:
			out[k] = append([]string(nil), v...)
		case []any:
			out[k] = append([]any(nil), v...)
		default:
			out[k] = v
		}
	}
	return out
}

// CloneRecords copies every record in list.
func CloneRecords(list []Record) []Record {
	out := make([]Record, len(list))
	for i, r := range list {
		out[i] = r.Clone()
	}
	return out
}
