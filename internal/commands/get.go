package commands

import "strings"

// GetCommand shows one configuration value.
type GetCommand struct{}

func (c *GetCommand) Name() string        { return "get" }
func (c *GetCommand) Usage() string       { return "/get <key>" }
func (c *GetCommand) Description() string { return "show a configuration value" }

func (c *GetCommand) Execute(env *Env, args []string) {
	keys := getConfigKeys()
	if len(args) < 1 {
		env.Reply("usage: /get <key>. available keys: %s", strings.Join(keys, ", "))
		return
	}

	param := strings.ToLower(args[0])

	// Handle special cases first
	if param == "tools" {
		replyToolList(env)
		return
	}

	field, ok := configFields[param]
	if !ok {
		env.Reply("unknown key %q. available keys: %s", param, strings.Join(keys, ", "))
		return
	}

	env.Reply("%s: %s", param, field.getter(env.Config))
}
