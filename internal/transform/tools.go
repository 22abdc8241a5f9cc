package transform

import (
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/responses"

	"github.com/n0madic/go-chatkit/internal/types"
)

func emptyObjectSchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

// ChatTools converts tool definitions to the Chat Completions format.
func ChatTools(defs []types.ToolDefinition) []types.ChatTool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]types.ChatTool, 0, len(defs))
	for _, d := range defs {
		params := d.Parameters
		if params == nil {
			params = emptyObjectSchema()
		}
		out = append(out, types.ChatTool{
			Type: "function",
			Function: &types.FunctionDef{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
				Strict:      d.Strict,
			},
		})
	}
	return out
}

// ResponsesTools converts tool definitions to SDK function tools.
func ResponsesTools(defs []types.ToolDefinition) []responses.ToolUnionParam {
	if len(defs) == 0 {
		return nil
	}
	out := make([]responses.ToolUnionParam, 0, len(defs))
	for _, d := range defs {
		params := d.Parameters
		if params == nil {
			params = emptyObjectSchema()
		}
		ft := responses.FunctionToolParam{
			Name:       d.Name,
			Parameters: params,
			Strict:     openai.Bool(d.IsStrict()),
		}
		if d.Description != "" {
			ft.Description = openai.String(d.Description)
		}
		out = append(out, responses.ToolUnionParam{OfFunction: &ft})
	}
	return out
}
