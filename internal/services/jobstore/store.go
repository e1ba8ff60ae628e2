// Package jobstore keeps jobs and artifacts in a local SQLite database. It stands in
// for the data management server when the plugin runs from the command line.
package jobstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/temirov/jobfolder/internal/types"
)

//go:embed schema.sql
var schemaSQL string

const (
	// InMemoryPath opens a private in-memory database.
	InMemoryPath = ":memory:"

	StatusRunning = types.JobStatusRunning
	StatusSuccess = types.JobStatusSuccess
	StatusError   = types.JobStatusError

	driverName           = "sqlite3"
	connectionParameters = "?_busy_timeout=5000&_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on"
	lockedErrorMessage   = "database is locked"
	timestampLayout      = time.RFC3339
)

var (
	// ErrJobNotFound is returned for unknown job identifiers.
	ErrJobNotFound = errors.New("job not found")
	// ErrArtifactNotFound is returned for unknown artifact identifiers.
	ErrArtifactNotFound = errors.New("artifact not found")
	// ErrNoDirectory is returned when an artifact has no directory file.
	ErrNoDirectory = errors.New("artifact has no directory")
)

// Store manages the SQLite database of jobs and artifacts.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens or creates the database at dbPath and applies the schema.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != InMemoryPath {
		directory := filepath.Dir(dbPath)
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	dataSource := dbPath
	if dbPath != InMemoryPath {
		// connection parameters apply to every pooled connection, unlike PRAGMA statements
		dataSource = dbPath + connectionParameters
	}
	db, err := sql.Open(driverName, dataSource)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == InMemoryPath {
		// every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, dbPath: dbPath}, nil
}

// execWithRetry retries statements that fail while another connection holds the database lock.
func execWithRetry(db *sql.DB, statement string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(statement)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), lockedErrorMessage) {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// CreateJob records a running job for command and returns its identifier.
func (s *Store) CreateJob(ctx context.Context, command string) (string, error) {
	jobID := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, command, status) VALUES (?, ?, ?)`,
		jobID, command, StatusRunning)
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	return jobID, nil
}

// UpdateJobStep records the step a running job is at.
func (s *Store) UpdateJobStep(ctx context.Context, jobID string, step string) error {
	return s.updateJob(ctx, jobID,
		`UPDATE jobs SET step = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		step, jobID)
}

// CompleteJob marks a job as finished successfully or with errorMessage.
func (s *Store) CompleteJob(ctx context.Context, jobID string, success bool, errorMessage string) error {
	status := StatusSuccess
	if !success {
		status = StatusError
	}
	return s.updateJob(ctx, jobID,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, errorMessage, jobID)
}

func (s *Store) updateJob(ctx context.Context, jobID string, statement string, arguments ...any) error {
	result, err := s.db.ExecContext(ctx, statement, arguments...)
	if err != nil {
		return fmt.Errorf("update job %s: %w", jobID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update job %s: %w", jobID, err)
	}
	if affected == 0 {
		return fmt.Errorf("update job %s: %w", jobID, ErrJobNotFound)
	}
	return nil
}

// GetJob returns the stored job.
func (s *Store) GetJob(ctx context.Context, jobID string) (types.JobRecord, error) {
	var record types.JobRecord
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT id, command, status, step, error_message, created_at FROM jobs WHERE id = ?`, jobID).
		Scan(&record.ID, &record.Command, &record.Status, &record.Step, &record.ErrorMessage, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return types.JobRecord{}, fmt.Errorf("get job %s: %w", jobID, ErrJobNotFound)
	}
	if err != nil {
		return types.JobRecord{}, fmt.Errorf("get job %s: %w", jobID, err)
	}
	record.CreatedAt = createdAt.UTC().Format(timestampLayout)
	return record, nil
}

// RegisterArtifact stores an artifact created by jobID and returns its identifier.
func (s *Store) RegisterArtifact(ctx context.Context, jobID string, artifact types.ArtifactInfo) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO artifacts (artifact_type, job_id) VALUES (?, ?)`, artifact.Type, jobID)
	if err != nil {
		return 0, fmt.Errorf("insert artifact: %w", err)
	}
	artifactID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read artifact id: %w", err)
	}
	if err := insertFiles(ctx, tx, artifactID, artifact.Files); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit artifact: %w", err)
	}
	return artifactID, nil
}

func insertFiles(ctx context.Context, tx *sql.Tx, artifactID int64, files []types.ArtifactFile) error {
	for position, file := range files {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO artifact_files (artifact_id, filepath, filepath_type, position) VALUES (?, ?, ?, ?)`,
			artifactID, file.Path, file.Type, position)
		if err != nil {
			return fmt.Errorf("insert artifact file %s: %w", file.Path, err)
		}
	}
	return nil
}

// ArtifactFolder returns the first directory registered for the artifact.
func (s *Store) ArtifactFolder(ctx context.Context, artifactID string) (string, error) {
	identifier, err := s.existingArtifact(ctx, artifactID)
	if err != nil {
		return "", err
	}
	var folder string
	err = s.db.QueryRowContext(ctx,
		`SELECT filepath FROM artifact_files WHERE artifact_id = ? AND filepath_type = ? ORDER BY position LIMIT 1`,
		identifier, types.FilepathTypeDirectory).Scan(&folder)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("artifact %s: %w", artifactID, ErrNoDirectory)
	}
	if err != nil {
		return "", fmt.Errorf("artifact %s folder: %w", artifactID, err)
	}
	return folder, nil
}

// AddHTMLSummary replaces the HTML summary files of an artifact.
func (s *Store) AddHTMLSummary(ctx context.Context, artifactID string, summary types.HTMLSummary) error {
	identifier, err := s.existingArtifact(ctx, artifactID)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM artifact_files WHERE artifact_id = ? AND filepath_type IN (?, ?)`,
		identifier, types.FilepathTypeHTMLSummary, types.FilepathTypeHTMLSummaryDir)
	if err != nil {
		return fmt.Errorf("clear summary of artifact %s: %w", artifactID, err)
	}

	var nextPosition int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), -1) + 1 FROM artifact_files WHERE artifact_id = ?`, identifier).Scan(&nextPosition)
	if err != nil {
		return fmt.Errorf("position for artifact %s: %w", artifactID, err)
	}

	files := []types.ArtifactFile{{Path: summary.HTMLPath, Type: types.FilepathTypeHTMLSummary}}
	if summary.SupportDirectoryPath != nil {
		files = append(files, types.ArtifactFile{Path: *summary.SupportDirectoryPath, Type: types.FilepathTypeHTMLSummaryDir})
	}
	for offset, file := range files {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO artifact_files (artifact_id, filepath, filepath_type, position) VALUES (?, ?, ?, ?)`,
			identifier, file.Path, file.Type, nextPosition+offset)
		if err != nil {
			return fmt.Errorf("insert artifact file %s: %w", file.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit summary: %w", err)
	}
	return nil
}

// ArtifactFiles returns the files of an artifact in registration order.
func (s *Store) ArtifactFiles(ctx context.Context, artifactID string) ([]types.ArtifactFile, error) {
	identifier, err := s.existingArtifact(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	return s.filesOf(ctx, identifier)
}

func (s *Store) filesOf(ctx context.Context, identifier int64) ([]types.ArtifactFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT filepath, filepath_type FROM artifact_files WHERE artifact_id = ? ORDER BY position`, identifier)
	if err != nil {
		return nil, fmt.Errorf("query artifact files: %w", err)
	}
	defer rows.Close()

	var files []types.ArtifactFile
	for rows.Next() {
		var file types.ArtifactFile
		if err := rows.Scan(&file.Path, &file.Type); err != nil {
			return nil, fmt.Errorf("scan artifact file: %w", err)
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

// ListArtifacts returns every stored artifact with its files, oldest first.
func (s *Store) ListArtifacts(ctx context.Context) ([]types.ArtifactInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, artifact_type FROM artifacts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	var artifacts []types.ArtifactInfo
	for rows.Next() {
		var artifact types.ArtifactInfo
		if err := rows.Scan(&artifact.ID, &artifact.Type); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, artifact)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for index := range artifacts {
		files, err := s.filesOf(ctx, artifacts[index].ID)
		if err != nil {
			return nil, err
		}
		artifacts[index].Files = files
	}
	return artifacts, nil
}

func (s *Store) existingArtifact(ctx context.Context, artifactID string) (int64, error) {
	identifier, err := strconv.ParseInt(strings.TrimSpace(artifactID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("artifact %q: %w", artifactID, ErrArtifactNotFound)
	}
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM artifacts WHERE id = ?`, identifier).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("artifact %s: %w", artifactID, ErrArtifactNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("artifact %s: %w", artifactID, err)
	}
	return identifier, nil
}
