package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/afelipfo/alpr-dashboard/pkg/detection"
)

const backendSQLite = "sqlite"

// defaultQueryLimit caps Query results when the caller sets no limit.
const defaultQueryLimit = 100

// SQLiteStorage implements detection.Storage on a SQLite database.
//
// The *sql.DB is owned by the caller, which also shares it with the system
// configuration store. Close releases the prepared statements only.
type SQLiteStorage struct {
	db     *sql.DB
	logger *slog.Logger

	insertStmt     *sql.Stmt
	getStmt        *sql.Stmt
	deleteByIDStmt *sql.Stmt
	timeRangeStmt  *sql.Stmt
}

// NewSQLiteStorage creates the detection schema if needed and prepares the
// hot statements.
func NewSQLiteStorage(ctx context.Context, db *sql.DB) (*SQLiteStorage, error) {
	if db == nil {
		return nil, detection.NewStorageError(backendSQLite, "open", errors.New("nil database"))
	}

	s := &SQLiteStorage{
		db:     db,
		logger: slog.Default().With("component", "detection.storage.sqlite"),
	}

	if err := s.initialize(ctx); err != nil {
		return nil, err
	}
	if err := s.prepareStatements(ctx); err != nil {
		s.Close()
		return nil, err
	}

	s.logger.Info("SQLite detection storage initialized", "schema_version", SchemaVersion)
	return s, nil
}

// likeEscaper makes a LIKE pattern match its input literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// initialize creates the schema and verifies its version.
func (s *SQLiteStorage) initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return detection.NewStorageError(backendSQLite, "create_schema", err)
	}

	if _, err := s.db.ExecContext(ctx, InsertSchemaVersion, SchemaVersion); err != nil {
		return detection.NewStorageError(backendSQLite, "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRowContext(ctx, GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return detection.NewStorageError(backendSQLite, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return detection.NewStorageError(backendSQLite, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

func (s *SQLiteStorage) prepareStatements(ctx context.Context) error {
	var err error
	if s.insertStmt, err = s.db.PrepareContext(ctx, insertDetection); err != nil {
		return detection.NewStorageError(backendSQLite, "prepare_insert", err)
	}
	if s.getStmt, err = s.db.PrepareContext(ctx, selectDetectionByID); err != nil {
		return detection.NewStorageError(backendSQLite, "prepare_get", err)
	}
	if s.deleteByIDStmt, err = s.db.PrepareContext(ctx, deleteDetectionByID); err != nil {
		return detection.NewStorageError(backendSQLite, "prepare_delete", err)
	}
	if s.timeRangeStmt, err = s.db.PrepareContext(ctx, selectTimeRange); err != nil {
		return detection.NewStorageError(backendSQLite, "prepare_time_range", err)
	}
	return nil
}

// Store inserts a detection record.
func (s *SQLiteStorage) Store(ctx context.Context, record *detection.Record) (int64, error) {
	bbox, err := json.Marshal(record.BBox)
	if err != nil {
		return 0, detection.NewStorageError(backendSQLite, "store", err)
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if record.DetectedAt.IsZero() {
		record.DetectedAt = record.CreatedAt
	}
	status := record.Status
	if status == "" {
		status = detection.StatusOK
	}

	result, err := s.insertStmt.ExecContext(ctx,
		record.PlateText,
		record.Confidence,
		string(bbox),
		record.OriginalImageURL,
		nullString(record.CroppedImageURL),
		string(status),
		nullString(record.CameraID),
		nullInt(record.UserID),
		record.DetectedAt.UnixMilli(),
		record.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return 0, detection.NewStorageError(backendSQLite, "store", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, detection.NewStorageError(backendSQLite, "store", err)
	}
	record.ID = id
	record.Status = status

	return id, nil
}

// Get returns a single record by id.
func (s *SQLiteStorage) Get(ctx context.Context, id int64) (*detection.Record, error) {
	record, err := scanRecord(s.getStmt.QueryRowContext(ctx, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, detection.ErrNotFound
	}
	if err != nil {
		return nil, detection.NewStorageError(backendSQLite, "get", err)
	}
	return record, nil
}

// Query retrieves detection records matching the query, newest first.
func (s *SQLiteStorage) Query(ctx context.Context, query *detection.Query) ([]*detection.Record, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT " + columns + " FROM detections"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}
	sqlQuery += " ORDER BY detected_at DESC, id DESC"

	limit := defaultQueryLimit
	offset := 0
	if query != nil {
		if query.Limit > 0 {
			limit = query.Limit
		}
		offset = query.Offset
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, detection.NewStorageError(backendSQLite, "query", err)
	}
	defer rows.Close()

	records := []*detection.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, detection.NewStorageError(backendSQLite, "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, detection.NewStorageError(backendSQLite, "query", err)
	}

	return records, nil
}

// Count returns the number of records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *detection.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM detections"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, detection.NewStorageError(backendSQLite, "count", err)
	}
	return count, nil
}

// Delete removes records matching the query filters and returns how many
// rows were affected.
func (s *SQLiteStorage) Delete(ctx context.Context, query *detection.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "DELETE FROM detections"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, detection.NewStorageError(backendSQLite, "delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, detection.NewStorageError(backendSQLite, "delete", err)
	}
	return count, nil
}

// DeleteByID removes a single record.
func (s *SQLiteStorage) DeleteByID(ctx context.Context, id int64) error {
	result, err := s.deleteByIDStmt.ExecContext(ctx, id)
	if err != nil {
		return detection.NewStorageError(backendSQLite, "delete_by_id", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return detection.NewStorageError(backendSQLite, "delete_by_id", err)
	}
	if n == 0 {
		return detection.ErrNotFound
	}
	return nil
}

// TimeRange returns the oldest and newest detection timestamps.
func (s *SQLiteStorage) TimeRange(ctx context.Context) (*time.Time, *time.Time, error) {
	var minMs, maxMs sql.NullInt64
	if err := s.timeRangeStmt.QueryRowContext(ctx).Scan(&minMs, &maxMs); err != nil {
		return nil, nil, detection.NewStorageError(backendSQLite, "time_range", err)
	}
	if !minMs.Valid || !maxMs.Valid {
		return nil, nil, nil
	}
	oldest := time.UnixMilli(minMs.Int64)
	newest := time.UnixMilli(maxMs.Int64)
	return &oldest, &newest, nil
}

// Ping checks the database connection.
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return detection.NewStorageError(backendSQLite, "ping", err)
	}
	return nil
}

// Close releases prepared statements.
func (s *SQLiteStorage) Close() error {
	for _, stmt := range []*sql.Stmt{s.insertStmt, s.getStmt, s.deleteByIDStmt, s.timeRangeStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	s.logger.Debug("SQLite detection storage closed")
	return nil
}

// buildWhereClause builds a SQL WHERE clause from query filters.
// Returns the clause (without "WHERE") and the query arguments.
func buildWhereClause(query *detection.Query) (string, []any) {
	if query == nil {
		return "", nil
	}

	var conditions []string
	var args []any

	if query.DetectedFrom != nil {
		conditions = append(conditions, "detected_at >= ?")
		args = append(args, query.DetectedFrom.UnixMilli())
	}
	if query.DetectedUntil != nil {
		conditions = append(conditions, "detected_at <= ?")
		args = append(args, query.DetectedUntil.UnixMilli())
	}
	if query.DetectedBefore != nil {
		conditions = append(conditions, "detected_at < ?")
		args = append(args, query.DetectedBefore.UnixMilli())
	}
	if query.PlateText != "" {
		conditions = append(conditions, `plate_text LIKE ? ESCAPE '\'`)
		args = append(args, "%"+likeEscaper.Replace(strings.ToUpper(query.PlateText))+"%")
	}
	if query.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(query.Status))
	}
	if query.CameraID != "" {
		conditions = append(conditions, "camera_id = ?")
		args = append(args, query.CameraID)
	}
	if query.MinConfidence != nil {
		conditions = append(conditions, "confidence >= ?")
		args = append(args, *query.MinConfidence)
	}

	return strings.Join(conditions, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*detection.Record, error) {
	var (
		record                detection.Record
		bbox                  string
		status                string
		cropped, camera       sql.NullString
		userID                sql.NullInt64
		detectedAt, createdAt int64
	)

	err := row.Scan(
		&record.ID,
		&record.PlateText,
		&record.Confidence,
		&bbox,
		&record.OriginalImageURL,
		&cropped,
		&status,
		&camera,
		&userID,
		&detectedAt,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if bbox != "" {
		if err := json.Unmarshal([]byte(bbox), &record.BBox); err != nil {
			return nil, fmt.Errorf("invalid bbox for detection %d: %w", record.ID, err)
		}
	}
	record.Status = detection.Status(status)
	record.CroppedImageURL = cropped.String
	record.CameraID = camera.String
	record.UserID = userID.Int64
	record.DetectedAt = time.UnixMilli(detectedAt)
	record.CreatedAt = time.UnixMilli(createdAt)

	return &record, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}
