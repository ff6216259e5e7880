package commands

import (
	"sort"
	"strings"

	"pkdindustries/switchboard/internal/tools"
)

// ToolsCommand lists the registered tools and their parameters.
type ToolsCommand struct{}

func (c *ToolsCommand) Name() string        { return "tools" }
func (c *ToolsCommand) Usage() string       { return "/tools" }
func (c *ToolsCommand) Description() string { return "list available tools" }

func (c *ToolsCommand) Execute(env *Env, args []string) {
	replyToolList(env)
}

func replyToolList(env *Env) {
	all := env.Tools.All()
	if len(all) == 0 {
		env.Reply("no tools registered")
		return
	}
	for _, t := range all {
		schema := tools.SchemaOf(t)
		params := make([]string, 0, len(schema.Properties))
		for name := range schema.Properties {
			params = append(params, name)
		}
		sort.Strings(params)
		line := t.GetName() + "(" + strings.Join(params, ", ") + ")"
		if schema.Description != "" {
			line += " - " + schema.Description
		}
		env.Reply("%s", line)
	}
}
