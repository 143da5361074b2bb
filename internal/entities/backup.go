package entities

// Backup rows are keyed by the uid of the image they snapshot (restoreId).
// At most one live backup exists per uid; rows are written only after the
// remote delete+create both succeeded and removed when a restore completes.

type BackupImage struct {
	RestoreID int64  `json:"restore_id"`
	Data      []byte `json:"data"`
}

type BackupFilename struct {
	RestoreID int64  `json:"restore_id"`
	Name      string `json:"name"`
}

type BackupAltName struct {
	RestoreID int64  `json:"restore_id"`
	Alt       string `json:"alt"`
}
