package qc

import (
	"time"

	"github.com/google/uuid"
)

// Activity is one data-taking period a task monitors.
type Activity struct {
	ID        uuid.UUID
	RunNumber int
	Started   time.Time
}

// NewActivity starts an activity for run.
func NewActivity(run int) Activity {
	return Activity{ID: uuid.New(), RunNumber: run, Started: time.Now().UTC()}
}

// Task is the lifecycle every QC task implements. The framework calls
// Initialize once, then StartOfActivity, a sequence of cycles and
// EndOfActivity. Reset clears all monitor objects.
type Task interface {
	Initialize() error
	StartOfActivity(Activity)
	StartOfCycle()
	EndOfCycle()
	EndOfActivity(Activity)
	Reset()
}

// DataTask is a Task that consumes records of type T.
type DataTask[T any] interface {
	Task
	MonitorData(batch []T)
	Objects() *ObjectsManager
}

// Summarizer is implemented by tasks that report per-cycle statistics.
type Summarizer interface {
	Summary() CycleSummary
}

// Check turns the published objects into a Quality.
type Check interface {
	Check(objs map[string]MonitorObject) Quality
	// AcceptedType is the histogram kind the check inspects.
	AcceptedType() string
}
