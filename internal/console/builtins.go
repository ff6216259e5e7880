package console

import (
	"context"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"pkdindustries/switchboard/internal/tools"
)

// CurrentTimeTool reports the host's current time, optionally in a named
// IANA timezone.
type CurrentTimeTool struct{}

func (t *CurrentTimeTool) GetName() string { return "current_time" }

func (t *CurrentTimeTool) GetSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "object",
		Description: "get the current date and time",
		Properties: map[string]*jsonschema.Schema{
			"timezone": {
				Type:        "string",
				Description: "IANA timezone name like America/New_York; defaults to the host timezone",
			},
		},
	}
}

func (t *CurrentTimeTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	loc := time.Local
	if tz, ok := args["timezone"].(string); ok && tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return "", fmt.Errorf("unknown timezone %q", tz)
		}
		loc = parsed
	}
	return time.Now().In(loc).Format(time.RFC1123), nil
}

// RegisterBuiltins adds the console's built-in tools to a registry.
func RegisterBuiltins(registry *tools.Registry) error {
	return registry.Register(&CurrentTimeTool{})
}
