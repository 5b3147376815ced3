package puckdump

import (
	"time"

	"github.com/google/uuid"
)

// RunStamp identifies one export run. The filename-safe Stamp goes into
// produced file names, the rest into manifests and latest.json.
type RunStamp struct {
	RunID    string
	Stamp    string // e.g. "20250912T143012Z", filename-safe
	Unix     int64
	ISOUTC   string
	ISOLocal string
}

// NewRunStamp stamps the current moment.
func NewRunStamp() RunStamp {
	return newRunStampAt(time.Now())
}

func newRunStampAt(now time.Time) RunStamp {
	utc := now.UTC()
	return RunStamp{
		RunID:    uuid.NewString(),
		Stamp:    utc.Format("20060102T150405Z"),
		Unix:     utc.Unix(),
		ISOUTC:   utc.Format("2006-01-02T15:04:05Z"),
		ISOLocal: now.Format("2006-01-02T15:04:05-07:00"),
	}
}
