package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/treefix50/reelrange/internal/server"
)

func (s *Store) SaveVideos(videos []server.Video) (err error) {
	if s == nil || s.db == nil {
		return errNoDB
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.Prepare(`
		INSERT INTO videos (id, filename, title, content_type, size, modified)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename=excluded.filename,
			title=excluded.title,
			content_type=excluded.content_type,
			size=excluded.size,
			modified=excluded.modified
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, v := range videos {
		_, err = stmt.Exec(
			v.ID,
			v.Filename,
			nullString(v.Title),
			nullString(v.ContentType),
			v.Size,
			v.Modified.Unix(),
		)
		if err != nil {
			return fmt.Errorf("storage: save video %s: %w", v.Filename, err)
		}
	}

	return tx.Commit()
}

func (s *Store) DeleteVideos(ids []string) error {
	if s == nil || s.db == nil {
		return errNoDB
	}
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf("DELETE FROM videos WHERE id IN (%s)", strings.Join(placeholders, ","))
	_, err := s.db.Exec(query, args...)
	return err
}

func (s *Store) ListVideos() ([]server.Video, error) {
	if s == nil || s.db == nil {
		return nil, errNoDB
	}

	rows, err := s.db.Query(`
		SELECT id, filename, title, content_type, size, modified
		FROM videos
		ORDER BY title, filename
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []server.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

func (s *Store) GetVideo(id string) (server.Video, bool, error) {
	if s == nil || s.db == nil {
		return server.Video{}, false, errNoDB
	}

	row := s.db.QueryRow(`
		SELECT id, filename, title, content_type, size, modified
		FROM videos
		WHERE id = ?
	`, id)
	v, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return server.Video{}, false, nil
		}
		return server.Video{}, false, err
	}
	return v, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (server.Video, error) {
	var (
		v           server.Video
		title       sql.NullString
		contentType sql.NullString
		modified    int64
	)
	if err := row.Scan(&v.ID, &v.Filename, &title, &contentType, &v.Size, &modified); err != nil {
		return server.Video{}, err
	}
	v.Title = title.String
	v.ContentType = contentType.String
	v.Modified = time.Unix(modified, 0)
	return v, nil
}

func (s *Store) StartScanRun(startedAt time.Time) (server.ScanRun, error) {
	if s == nil || s.db == nil {
		return server.ScanRun{}, errNoDB
	}
	run := server.ScanRun{
		ID:        uuid.NewString(),
		StartedAt: startedAt,
		Status:    server.ScanStatusRunning,
	}
	_, err := s.db.Exec(`
		INSERT INTO scan_runs (id, started_at, status)
		VALUES (?, ?, ?)
	`, run.ID, startedAt.Unix(), run.Status)
	if err != nil {
		return server.ScanRun{}, fmt.Errorf("storage: start scan run: %w", err)
	}
	return run, nil
}

func (s *Store) FinishScanRun(id string, finishedAt time.Time, videoCount int) error {
	return s.endScanRun(id, finishedAt, server.ScanStatusFinished, "", videoCount)
}

func (s *Store) FailScanRun(id string, finishedAt time.Time, errMsg string) error {
	return s.endScanRun(id, finishedAt, server.ScanStatusFailed, errMsg, 0)
}

func (s *Store) endScanRun(id string, finishedAt time.Time, status, errMsg string, videoCount int) error {
	if s == nil || s.db == nil {
		return errNoDB
	}
	res, err := s.db.Exec(`
		UPDATE scan_runs
		SET finished_at = ?, status = ?, error = ?, video_count = ?
		WHERE id = ?
	`, finishedAt.Unix(), status, nullString(errMsg), videoCount, id)
	if err != nil {
		return fmt.Errorf("storage: end scan run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("storage: scan run %s not found", id)
	}
	return nil
}

func (s *Store) ListScanRuns(limit int) ([]server.ScanRun, error) {
	if s == nil || s.db == nil {
		return nil, errNoDB
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, status, error, video_count
		FROM scan_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []server.ScanRun{}
	for rows.Next() {
		var (
			run        server.ScanRun
			startedAt  int64
			finishedAt sql.NullInt64
			errMsg     sql.NullString
		)
		if err := rows.Scan(&run.ID, &startedAt, &finishedAt, &run.Status, &errMsg, &run.VideoCount); err != nil {
			return nil, err
		}
		run.StartedAt = time.Unix(startedAt, 0)
		if finishedAt.Valid {
			run.FinishedAt = time.Unix(finishedAt.Int64, 0)
		}
		run.Error = errMsg.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
