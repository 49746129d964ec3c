package tasks

import "fmt"

// ProgressUpdate represents a progress event during a reconciliation run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Initializing Phase = iota
	SourceStart
	PullFeed
	AppendVideo
	Checkpoint
	SourceSkipped
	SourceComplete
	RunComplete
)

func (p Phase) String() string {
	switch p {
	case Initializing:
		return "initializing"
	case SourceStart:
		return "source_start"
	case PullFeed:
		return "pull_feed"
	case AppendVideo:
		return "append_video"
	case Checkpoint:
		return "checkpoint"
	case SourceSkipped:
		return "source_skipped"
	case SourceComplete:
		return "source_complete"
	case RunComplete:
		return "run_complete"
	default:
		return ""
	}
}

func initializingUpdate(total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Initializing,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Processing %s (%d sources)...", name, total),
	}
}

func sourceStartUpdate(step, total int, label string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SourceStart,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, label),
	}
}

func pullFeedUpdate(step, total int, label string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PullFeed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Pulling feed for %s...", label),
	}
}

func appendVideoUpdate(step, total int, videoID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AppendVideo,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Adding %s", step, total, videoID),
	}
}

func checkpointUpdate(step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Checkpoint,
		Step:    step,
		Total:   total,
		Message: "Checkpoint saved",
	}
}

func sourceSkippedUpdate(step, total int, label string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SourceSkipped,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, label, err),
	}
}

func sourceCompleteUpdate(step, total int, label string, added int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SourceComplete,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d added)", step, total, label, added),
	}
}

func runCompleteUpdate(total, added int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RunComplete,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Run complete: %d videos added", added),
	}
}
