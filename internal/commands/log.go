package commands

import (
	"strconv"
	"strings"
)

// defaultLogTail is how many records /log shows without an argument.
const defaultLogTail = 5

// LogCommand shows recent exchange records from the audit log.
type LogCommand struct{}

func (c *LogCommand) Name() string        { return "log" }
func (c *LogCommand) Usage() string       { return "/log [n]" }
func (c *LogCommand) Description() string { return "show recent exchange records" }

func (c *LogCommand) Execute(env *Env, args []string) {
	n := defaultLogTail
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			env.Reply("usage: /log [n]")
			return
		}
		n = v
	}

	records := env.Audit.Records()
	if len(records) == 0 {
		env.Reply("no exchanges recorded")
		return
	}
	if len(records) > n {
		records = records[len(records)-n:]
	}

	for _, rec := range records {
		cfg := rec.Request.ModelConfig
		if !rec.Completed {
			env.Reply("#%d %s incomplete", rec.ID, cfg.Model)
			continue
		}
		resp := rec.Response
		preview := strings.Join(resp.TextParts, " ")
		if preview == "" && len(resp.ToolCallParts) > 0 {
			names := make([]string, 0, len(resp.ToolCallParts))
			for _, call := range resp.ToolCallParts {
				names = append(names, call.Name)
			}
			preview = "tools: " + strings.Join(names, ", ")
		}
		if len(preview) > 80 {
			preview = preview[:80] + "..."
		}
		env.Reply("#%d %s %dms in=%d out=%d %s",
			rec.ID, cfg.Model, resp.DurationMS,
			resp.Usage.InputTokens, resp.Usage.OutputTokens, preview)
	}
}
