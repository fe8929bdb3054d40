package job

import (
	"context"
	"sync"
	"time"
)

// Job is one room assignment handed to the agent.
type Job struct {
	// ID is unique per assignment, "job_" followed by a UUID when generated.
	ID string

	// RoomName is the LiveKit room this job runs in.
	RoomName string

	// Context owns the job's lifetime and its room connection.
	Context *JobContext
}

// JobContext manages the lifecycle of a job: its room connection and
// coordinated shutdown.
type JobContext struct {
	// Ctx is cancelled when the job ends.
	Ctx context.Context

	cancel context.CancelFunc
	room   RoomConfig

	shutdownMu    sync.Mutex
	shutdownHooks []func(string)
	shutdownDone  bool

	roomMu    sync.Mutex
	connected *Room
}

// Config describes a job to create.
type Config struct {
	// ID for the job. Generated when empty.
	ID string

	// RoomName is required.
	RoomName string

	// URL and Token are used by JobContext.Connect.
	URL   string
	Token string

	// Timeout bounds the whole job. Zero means no limit.
	Timeout time.Duration
}

// AutoSubscribe selects which remote tracks a room subscribes to.
type AutoSubscribe int

const (
	SubscribeAll AutoSubscribe = iota
	SubscribeNone
	AudioOnly
	VideoOnly
)

func (a AutoSubscribe) String() string {
	switch a {
	case SubscribeAll:
		return "subscribe_all"
	case SubscribeNone:
		return "subscribe_none"
	case AudioOnly:
		return "audio_only"
	case VideoOnly:
		return "video_only"
	default:
		return "unknown"
	}
}

const (
	// AssignmentTimeout is how long a worker waits for an assignment to be accepted.
	AssignmentTimeout = 7500 * time.Millisecond

	DefaultJobTimeout = 5 * time.Minute

	// ShutdownHookTimeout bounds how long Shutdown waits on hooks.
	ShutdownHookTimeout = 5 * time.Second
)
