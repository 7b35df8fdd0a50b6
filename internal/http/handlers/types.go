// Package handlers provides the ambient HTTP API handlers for amm-core:
// health, pipeline status, and plugin introspection. Grounded on the
// teacher's internal/http/handlers/{health,types}.go response-struct style.
package handlers

// HealthResponse represents the comprehensive health check response.
type HealthResponse struct {
	Status        string            `json:"status"`
	Timestamp     string            `json:"timestamp"`
	Version       string            `json:"version"`
	Uptime        string            `json:"uptime"`
	UptimeSeconds float64           `json:"uptime_seconds"`
	SystemLoad    float64           `json:"system_load"`
	CPUInfo       CPUInfo           `json:"cpu_info"`
	Memory        MemoryInfo        `json:"memory"`
	Components    HealthComponents  `json:"components"`
	Checks        map[string]string `json:"checks,omitempty"`
}

// CPUInfo contains CPU load information.
type CPUInfo struct {
	Cores              int     `json:"cores"`
	Load1Min           float64 `json:"load_1min"`
	Load5Min           float64 `json:"load_5min"`
	Load15Min          float64 `json:"load_15min"`
	LoadPercentage1Min float64 `json:"load_percentage_1min"`
}

// MemoryInfo contains memory usage information.
type MemoryInfo struct {
	TotalMemoryMB     float64           `json:"total_memory_mb"`
	UsedMemoryMB      float64           `json:"used_memory_mb"`
	FreeMemoryMB      float64           `json:"free_memory_mb"`
	AvailableMemoryMB float64           `json:"available_memory_mb"`
	SwapUsedMB        float64           `json:"swap_used_mb"`
	SwapTotalMB       float64           `json:"swap_total_mb"`
	ProcessMemory     ProcessMemoryInfo `json:"process_memory"`
}

// ProcessMemoryInfo contains process-specific memory information.
type ProcessMemoryInfo struct {
	MainProcessMB      float64 `json:"main_process_mb"`
	ChildProcessesMB   float64 `json:"child_processes_mb"`
	TotalProcessTreeMB float64 `json:"total_process_tree_mb"`
	PercentageOfSystem float64 `json:"percentage_of_system"`
	ChildProcessCount  int     `json:"child_process_count"`
}

// HealthComponents contains health status of various components.
type HealthComponents struct {
	Database  DatabaseHealth  `json:"database"`
	Scheduler SchedulerHealth `json:"scheduler"`
}

// DatabaseHealth contains database health information.
type DatabaseHealth struct {
	Status                 string  `json:"status"`
	ConnectionPoolSize     int     `json:"connection_pool_size"`
	ActiveConnections      int     `json:"active_connections"`
	IdleConnections        int     `json:"idle_connections"`
	PoolUtilizationPercent float64 `json:"pool_utilization_percent"`
	ResponseTimeMS         float64 `json:"response_time_ms"`
	ResponseTimeStatus     string  `json:"response_time_status"`
	TablesAccessible       bool    `json:"tables_accessible"`
	WriteCapability        bool    `json:"write_capability"`
	NoBlockingLocks        bool    `json:"no_blocking_locks"`
}

// SchedulerHealth reports whether the pipeline is currently idle. Status is
// always "ok"; whether the TaskManager's idle loop is running is not checked.
type SchedulerHealth struct {
	Status string `json:"status"`
	Idle   bool   `json:"idle"`
}

// PipelineStatusResponse is the body of GET /status: a live snapshot of
// per-stage file counts and the names of currently-running tasks and
// processors.
type PipelineStatusResponse struct {
	Idle          bool             `json:"idle"`
	RunningTasks  []string         `json:"running_tasks"`
	FilesPerStage map[string]int64 `json:"files_per_stage"`
}

// PluginInfo describes one registered plugin, backing GET /plugins
// (spec.md SUPPLEMENTED FEATURES: registry.list_registered()).
type PluginInfo struct {
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`
	TaskType    string `json:"task_type,omitempty"`
	StageName   string `json:"stage_name,omitempty"`
}

// PluginsResponse is the body of GET /plugins.
type PluginsResponse struct {
	AudioUtilities []PluginInfo `json:"audio_utilities"`
	Tasks          []PluginInfo `json:"tasks"`
	Processors     []PluginInfo `json:"processors"`
}
