package events

// Type discriminates the catalog mutation an event records. The wire
// names are part of the log format and never change meaning.
type Type string

const (
	TypeAddTag    Type = "addTag"
	TypeRemoveTag Type = "removeTag"
	TypeRename    Type = "rename"
	TypeDelete    Type = "delete"
	TypeRestore   Type = "restore"
	TypeSetRating Type = "setRating"
)

// LogType identifies the domain a log belongs to. Logs of different
// types are never merged.
type LogType string

const (
	LogTypeCatalog LogType = "catalog"
)

const (
	// CurrentLogVersion is the schema version new logs are written at.
	CurrentLogVersion = 2

	// MinCompatibleLogVersion is the oldest version this code still
	// reads and merges.
	MinCompatibleLogVersion = 1
)
