package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

// StageCounter reports how many files currently sit at each stage.
type StageCounter interface {
	CountByStage(ctx context.Context) (map[string]int64, error)
}

// RunningTasksReporter is the narrow taskmanager.Manager surface the status
// handler needs.
type RunningTasksReporter interface {
	IsIdle() bool
	RunningNames() []string
}

// StatusHandler backs GET /status: a live snapshot of pipeline activity.
type StatusHandler struct {
	files   StageCounter
	manager RunningTasksReporter
}

// NewStatusHandler constructs a StatusHandler.
func NewStatusHandler(files StageCounter, manager RunningTasksReporter) *StatusHandler {
	return &StatusHandler{files: files, manager: manager}
}

// StatusInput is the input for GET /status.
type StatusInput struct{}

// StatusOutput is the output for GET /status.
type StatusOutput struct {
	Body PipelineStatusResponse
}

// Register registers the status route with the API.
func (h *StatusHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "getStatus",
		Method:      "GET",
		Path:        "/status",
		Summary:     "Pipeline status",
		Description: "Returns per-stage file counts and currently running tasks",
		Tags:        []string{"System"},
	}, h.GetStatus)
}

// GetStatus returns the current pipeline snapshot.
func (h *StatusHandler) GetStatus(ctx context.Context, input *StatusInput) (*StatusOutput, error) {
	counts, err := h.files.CountByStage(ctx)
	if err != nil {
		return nil, err
	}

	resp := PipelineStatusResponse{FilesPerStage: counts}
	if h.manager != nil {
		resp.Idle = h.manager.IsIdle()
		resp.RunningTasks = h.manager.RunningNames()
	} else {
		resp.Idle = true
	}

	return &StatusOutput{Body: resp}, nil
}
