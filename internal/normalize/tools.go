package normalize

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/n0madic/go-chatkit/internal/types"
)

// NormalizeToolStrict forces strict=true on every tool once any tool asks
// for it. Backends reject requests that mix strict and non-strict tools.
func NormalizeToolStrict(req types.Request, _ Config) types.Request {
	anyStrict := false
	for _, t := range req.Tools {
		if t.IsStrict() {
			anyStrict = true
			break
		}
	}
	if !anyStrict {
		return req
	}
	for i := range req.Tools {
		req.Tools[i].Strict = types.BoolPtr(true)
	}
	return req
}

// ToolArgumentError reports a tool call whose arguments do not satisfy the
// tool's parameter schema.
type ToolArgumentError struct {
	CallID string
	Tool   string
	Issues []string
}

func (e *ToolArgumentError) Error() string {
	return fmt.Sprintf("arguments for tool %q (call %s) do not match schema: %s",
		e.Tool, e.CallID, strings.Join(e.Issues, "; "))
}

// CheckToolArguments validates call arguments against the matching tool
// definitions. Calls for unknown tools or tools without parameters are
// skipped. Empty arguments are validated as an empty object.
func CheckToolArguments(tools []types.ToolDefinition, calls []types.ToolCall) []error {
	schemas := make(map[string]*gojsonschema.Schema)
	var errs []error
	for _, call := range calls {
		schema, ok := schemas[call.Name]
		if !ok {
			schema = compileToolSchema(tools, call.Name)
			schemas[call.Name] = schema
		}
		if schema == nil {
			continue
		}
		args := strings.TrimSpace(call.Arguments)
		if args == "" {
			args = "{}"
		}
		result, err := schema.Validate(gojsonschema.NewStringLoader(args))
		if err != nil {
			errs = append(errs, &ToolArgumentError{CallID: call.ID, Tool: call.Name, Issues: []string{err.Error()}})
			continue
		}
		if result.Valid() {
			continue
		}
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		errs = append(errs, &ToolArgumentError{CallID: call.ID, Tool: call.Name, Issues: issues})
	}
	return errs
}

func compileToolSchema(tools []types.ToolDefinition, name string) *gojsonschema.Schema {
	for _, t := range tools {
		if t.Name != name || len(t.Parameters) == 0 {
			continue
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(t.Parameters))
		if err != nil {
			return nil
		}
		return schema
	}
	return nil
}
