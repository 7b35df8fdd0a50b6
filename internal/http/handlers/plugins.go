package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/core/registry"
)

// PluginCatalog is the narrow registry.Registry surface the plugins
// handler needs, supplementing the reference's registry.list_registered()
// (spec.md SUPPLEMENTED FEATURES).
type PluginCatalog interface {
	ListRegistered() registry.Registered
	AudioUtilMeta(name string) (core.PluginMeta, bool)
	TaskMeta(name string) (core.PluginMeta, bool)
	ProcessorMeta(name string) (core.PluginMeta, bool)
}

// PluginsHandler backs GET /plugins.
type PluginsHandler struct {
	catalog PluginCatalog
}

// NewPluginsHandler constructs a PluginsHandler.
func NewPluginsHandler(catalog PluginCatalog) *PluginsHandler {
	return &PluginsHandler{catalog: catalog}
}

// PluginsInput is the input for GET /plugins.
type PluginsInput struct{}

// PluginsOutput is the output for GET /plugins.
type PluginsOutput struct {
	Body PluginsResponse
}

// Register registers the plugins route with the API.
func (h *PluginsHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "listPlugins",
		Method:      "GET",
		Path:        "/plugins",
		Summary:     "List registered plugins",
		Description: "Returns every registered audio utility, task, and processor plugin",
		Tags:        []string{"System"},
	}, h.ListPlugins)
}

// ListPlugins returns the registry's current contents.
func (h *PluginsHandler) ListPlugins(ctx context.Context, input *PluginsInput) (*PluginsOutput, error) {
	reg := h.catalog.ListRegistered()

	resp := PluginsResponse{
		AudioUtilities: make([]PluginInfo, 0, len(reg.AudioUtils)),
		Tasks:          make([]PluginInfo, 0, len(reg.Tasks)),
		Processors:     make([]PluginInfo, 0, len(reg.Processors)),
	}

	for _, name := range reg.AudioUtils {
		meta, _ := h.catalog.AudioUtilMeta(name)
		resp.AudioUtilities = append(resp.AudioUtilities, PluginInfo{
			Kind: "audio_utility", Name: name,
			Description: meta.Description, Version: meta.Version,
		})
	}
	for _, name := range reg.Tasks {
		meta, _ := h.catalog.TaskMeta(name)
		resp.Tasks = append(resp.Tasks, PluginInfo{
			Kind: "task", Name: name,
			Description: meta.Description, Version: meta.Version,
			TaskType: string(meta.TaskType), StageName: meta.StageName,
		})
	}
	for _, name := range reg.Processors {
		meta, _ := h.catalog.ProcessorMeta(name)
		resp.Processors = append(resp.Processors, PluginInfo{
			Kind: "processor", Name: name,
			Description: meta.Description, Version: meta.Version,
			TaskType: string(meta.TaskType),
		})
	}

	return &PluginsOutput{Body: resp}, nil
}
