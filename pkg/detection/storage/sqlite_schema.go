package storage

// SchemaVersion is the current detection schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the detection schema.
// Timestamps are stored as Unix milliseconds so range predicates behave the
// same under both SQLite drivers.
const Schema = `
CREATE TABLE IF NOT EXISTS detections (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    plate_text TEXT NOT NULL,
    confidence INTEGER NOT NULL,
    bbox TEXT NOT NULL,
    original_image_url TEXT NOT NULL,
    cropped_image_url TEXT,
    status TEXT NOT NULL DEFAULT 'OK',
    camera_id TEXT,
    user_id INTEGER,
    detected_at INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_detections_detected_at ON detections(detected_at);
CREATE INDEX IF NOT EXISTS idx_detections_plate_text ON detections(plate_text);
CREATE INDEX IF NOT EXISTS idx_detections_status ON detections(status);
CREATE INDEX IF NOT EXISTS idx_detections_camera_id ON detections(camera_id);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const columns = `id, plate_text, confidence, bbox, original_image_url, cropped_image_url,
	status, camera_id, user_id, detected_at, created_at`

const insertDetection = `
INSERT INTO detections (
    plate_text, confidence, bbox, original_image_url, cropped_image_url,
    status, camera_id, user_id, detected_at, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectDetectionByID = `SELECT ` + columns + ` FROM detections WHERE id = ?`

const deleteDetectionByID = `DELETE FROM detections WHERE id = ?`

const selectTimeRange = `SELECT MIN(detected_at), MAX(detected_at) FROM detections`
