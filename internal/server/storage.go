package server

import "time"

// CatalogStore persists the video catalog built by library scans.
type CatalogStore interface {
	ReadOnly() bool
	SaveVideos(videos []Video) error
	DeleteVideos(ids []string) error
	ListVideos() ([]Video, error)
	GetVideo(id string) (Video, bool, error)
	StartScanRun(startedAt time.Time) (ScanRun, error)
	FinishScanRun(id string, finishedAt time.Time, videoCount int) error
	FailScanRun(id string, finishedAt time.Time, errMsg string) error
	ListScanRuns(limit int) ([]ScanRun, error)
}

const (
	ScanStatusRunning  = "running"
	ScanStatusFinished = "finished"
	ScanStatusFailed   = "failed"
)

type ScanRun struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Status     string    `json:"status"`
	VideoCount int       `json:"videoCount"`
	Error      string    `json:"error,omitempty"`
}
