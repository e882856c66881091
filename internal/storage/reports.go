package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clipbrief/video-insight/internal/types"
)

// ReportStore persists the raw text of completed analyses alongside
// metadata rows in the database.
type ReportStore struct {
	db  *DB
	dir string
}

// NewReportStore creates a report store rooted at dir.
func NewReportStore(db *DB, dir string) (*ReportStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create reports directory: %v", err)
	}
	return &ReportStore{db: db, dir: dir}, nil
}

// Save writes the report text to disk and records its metadata. Returns the
// saved file path.
func (s *ReportStore) Save(jobID, sourceName string, result *types.AnalysisResult) (string, error) {
	filename := fmt.Sprintf("%s_%s.txt", sanitizeFilename(sourceName), jobID)
	localPath := filepath.Join(s.dir, filename)

	if err := os.WriteFile(localPath, []byte(result.RawText), 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %v", err)
	}

	_, err := s.db.db.Exec(`
		INSERT INTO reports (job_id, source_name, local_path, title_count, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		jobID, sourceName, localPath, len(result.Titles), time.Now())
	if err != nil {
		return "", fmt.Errorf("failed to save report metadata: %v", err)
	}

	return localPath, nil
}

// ReportMeta is one archive entry.
type ReportMeta struct {
	JobID      string    `json:"job_id"`
	SourceName string    `json:"source_name"`
	LocalPath  string    `json:"local_path"`
	TitleCount int       `json:"title_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Get retrieves one report's metadata by job ID.
func (s *ReportStore) Get(jobID string) (*ReportMeta, error) {
	row := s.db.db.QueryRow(`
		SELECT job_id, source_name, local_path, title_count, created_at
		FROM reports WHERE job_id = ?`, jobID)

	var m ReportMeta
	if err := row.Scan(&m.JobID, &m.SourceName, &m.LocalPath, &m.TitleCount, &m.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to get report: %v", err)
	}
	return &m, nil
}

// ReadText returns the saved report text for a job.
func (s *ReportStore) ReadText(jobID string) (string, error) {
	meta, err := s.Get(jobID)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(meta.LocalPath)
	if err != nil {
		return "", fmt.Errorf("failed to read report file: %v", err)
	}
	return string(content), nil
}

// List returns recent reports, newest first.
func (s *ReportStore) List(limit int) ([]ReportMeta, error) {
	rows, err := s.db.db.Query(`
		SELECT job_id, source_name, local_path, title_count, created_at
		FROM reports ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %v", err)
	}
	defer rows.Close()

	var reports []ReportMeta
	for rows.Next() {
		var m ReportMeta
		if err := rows.Scan(&m.JobID, &m.SourceName, &m.LocalPath, &m.TitleCount, &m.CreatedAt); err != nil {
			continue
		}
		reports = append(reports, m)
	}
	return reports, nil
}

// sanitizeFilename keeps report filenames filesystem-safe.
func sanitizeFilename(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_",
		"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	)
	name = replacer.Replace(name)
	if name == "" {
		name = "untitled"
	}
	if len(name) > 80 {
		name = name[:80]
	}
	return name
}
