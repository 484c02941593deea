package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyPipeline is returned when an operation needs at least one
	// pending stage and none exists.
	ErrEmptyPipeline = errors.New("no stages in pipeline")

	// ErrInputAfterStages is returned by SetInput once stages have been
	// added — input cannot be injected mid-pipeline.
	ErrInputAfterStages = errors.New("cannot set input after stages have been added")

	// ErrStdinNotPiped is returned when writing to a pipeline whose
	// first stage does not read external input.
	ErrStdinNotPiped = errors.New("first stage's stdin is not opened for writing")

	// ErrStreamNotCaptured is returned when reading a stream the last
	// stage was never configured to pipe out.
	ErrStreamNotCaptured = errors.New("stream is not routed for capture")
)

// RoutingError reports an invalid stream-routing request. It is raised
// when the offending stage is added or a run is prepared, always before
// any process is spawned.
type RoutingError struct {
	Command []string
	Reason  string
}

func (e *RoutingError) Error() string {
	if len(e.Command) == 0 {
		return "invalid routing: " + e.Reason
	}
	return fmt.Sprintf("invalid routing for %q: %s", strings.Join(e.Command, " "), e.Reason)
}

// SpawnError reports that the OS refused to start a stage. Stage is the
// zero-based index of the failing stage.
type SpawnError struct {
	Stage   int
	Command []string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn stage %d (%q): %v", e.Stage, strings.Join(e.Command, " "), e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }
