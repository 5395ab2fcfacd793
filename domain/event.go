package domain

import "encoding/json"

// Table names addressed by realtime subscriptions.
const (
	TableTasks         = "tasks"
	TableNotifications = "notifications"
	TableDeletedTasks  = "deleted_tasks"
)

type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent is one row-level change pushed by the store. New is set for INSERT/UPDATE,
// Old for UPDATE/DELETE.
type ChangeEvent struct {
	Table string          `json:"table"`
	Type  ChangeType      `json:"eventType"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
}

// DecodeNew unmarshals the new row into dst. It reports false when there is no new row.
func (e ChangeEvent) DecodeNew(dst interface{}) (bool, error) {
	if len(e.New) == 0 || string(e.New) == "null" {
		return false, nil
	}
	return true, json.Unmarshal(e.New, dst)
}

// DecodeOld unmarshals the old row into dst. It reports false when there is no old row.
func (e ChangeEvent) DecodeOld(dst interface{}) (bool, error) {
	if len(e.Old) == 0 || string(e.Old) == "null" {
		return false, nil
	}
	return true, json.Unmarshal(e.Old, dst)
}
