package reconciler

import (
	"time"

	"relay/internal/store"
)

// EntityType names the kind of store document a change refers to.
type EntityType string

const (
	EntityServer  EntityType = store.ServersDir
	EntityProfile EntityType = store.ProfilesDir
	EntitySetting EntityType = store.SettingsDir
	entityUnknown EntityType = ""
)

// ChangeOperation represents the type of change that occurred.
type ChangeOperation string

const (
	OperationCreate ChangeOperation = "Create"
	OperationUpdate ChangeOperation = "Update"
	OperationDelete ChangeOperation = "Delete"
)

// ChangeEvent describes one debounced change of a store document.
type ChangeEvent struct {
	Type      EntityType
	Name      string
	Operation ChangeOperation
	Timestamp time.Time
	FilePath  string
}
