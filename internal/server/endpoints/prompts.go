package endpoints

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pdfextract/internal/api"
	"github.com/jackzampolin/pdfextract/internal/prompts"
	"github.com/jackzampolin/pdfextract/internal/svcctx"
)

// PromptResponse represents a single prompt.
type PromptResponse struct {
	Name    string          `json:"name"`
	Text    string          `json:"text"`
	Hash    string          `json:"hash"`
	Schema  any             `json:"schema,omitempty"`
	Outline prompts.Outline `json:"outline"`
}

// PromptsListResponse contains all prompt names.
type PromptsListResponse struct {
	Dir     string   `json:"dir"`
	Prompts []string `json:"prompts"`
}

// ListPromptsEndpoint handles GET /api/prompts.
type ListPromptsEndpoint struct{}

var _ api.Endpoint = (*ListPromptsEndpoint)(nil)

func (e *ListPromptsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts", e.handler
}

func (e *ListPromptsEndpoint) RequiresInit() bool { return true }

func (e *ListPromptsEndpoint) Group() (string, string) { return promptsGroup() }

// handler godoc
//
//	@Summary		List all prompts
//	@Description	Names of the markdown prompts in the prompt directory, sorted
//	@Tags			prompts
//	@Produce		json
//	@Success		200	{object}	PromptsListResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/prompts [get]
func (e *ListPromptsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	reg := svcctx.PromptsFrom(r.Context())
	if reg == nil {
		writeError(w, http.StatusInternalServerError, "prompt registry not available")
		return
	}

	names, err := reg.List()
	if err != nil {
		writeKindError(w, http.StatusInternalServerError, KindInternal, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, PromptsListResponse{Dir: reg.Dir(), Prompts: names})
}

func (e *ListPromptsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var resp PromptsListResponse
			if err := client.Get(ctx, "/api/prompts", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetPromptEndpoint handles GET /api/prompts/{name}.
type GetPromptEndpoint struct{}

var _ api.Endpoint = (*GetPromptEndpoint)(nil)

func (e *GetPromptEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/prompts/{name}", e.handler
}

func (e *GetPromptEndpoint) RequiresInit() bool { return true }

func (e *GetPromptEndpoint) Group() (string, string) { return promptsGroup() }

// handler godoc
//
//	@Summary		Get a prompt
//	@Description	Exact prompt text, its hash, optional schema and a field outline
//	@Tags			prompts
//	@Produce		json
//	@Param			name	path		string	true	"Prompt name (file stem)"
//	@Success		200		{object}	PromptResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/prompts/{name} [get]
func (e *GetPromptEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	reg := svcctx.PromptsFrom(r.Context())
	if reg == nil {
		writeError(w, http.StatusInternalServerError, "prompt registry not available")
		return
	}

	p, err := reg.Get(r.PathValue("name"))
	if err != nil {
		var nf *prompts.NotFoundError
		if errors.As(err, &nf) {
			writeKindError(w, http.StatusNotFound, KindNotFound, err.Error())
			return
		}
		writeKindError(w, http.StatusInternalServerError, KindInternal, err.Error())
		return
	}

	resp := PromptResponse{
		Name:    p.Name,
		Text:    p.Text,
		Hash:    p.Hash,
		Outline: prompts.ParseOutline(p),
	}
	if p.HasSchema() {
		resp.Schema = p.Schema
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *GetPromptEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Get a prompt by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var resp PromptResponse
			if err := client.Get(ctx, "/api/prompts/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

func promptsGroup() (string, string) {
	return "prompts", "Extraction prompt commands"
}
