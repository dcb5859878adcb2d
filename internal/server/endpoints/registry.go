package endpoints

import (
	"html/template"

	"github.com/jackzampolin/pdfextract/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	// Templates are the parsed web templates used by the HTML pages.
	Templates *template.Template
	// ThumbnailWidth bounds page previews in the HTML result view.
	ThumbnailWidth int
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	ui := &UI{Templates: cfg.Templates, ThumbnailWidth: cfg.ThumbnailWidth}
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&StatusEndpoint{},

		// Prompt endpoints
		&ListPromptsEndpoint{},
		&GetPromptEndpoint{},

		// Extraction endpoints
		&ExtractEndpoint{},
		&ExportEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{},
		&SwaggerUIEndpoint{},

		// HTML pages
		&StaticEndpoint{},
		&IndexEndpoint{UI: ui},
		&SubmitEndpoint{UI: ui},
		&PromptPageEndpoint{UI: ui},
	}
}
