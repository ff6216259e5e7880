package commands

import (
	"strings"

	"pkdindustries/switchboard/internal/core"
	"pkdindustries/switchboard/internal/secrets"
)

// SetCommand changes one configuration value. Credential fields write through
// to the secret store so they survive restarts; the new value takes effect on
// the next exchange.
type SetCommand struct{}

func (c *SetCommand) Name() string        { return "set" }
func (c *SetCommand) Usage() string       { return "/set <key> <value>" }
func (c *SetCommand) Description() string { return "change a configuration value" }

func (c *SetCommand) Execute(env *Env, args []string) {
	keys := getConfigKeys()
	if len(args) < 2 {
		env.Reply("usage: /set <key> <value>. available keys: %s", strings.Join(keys, ", "))
		return
	}

	param := strings.ToLower(args[0])
	value := strings.Join(args[1:], " ")

	core.GetLogger().Debugw("config_change_requested", "param", param)

	field, ok := configFields[param]
	if !ok {
		env.Reply("unknown key %q. available keys: %s", param, strings.Join(keys, ", "))
		return
	}

	if err := field.setter(env.Config, value); err != nil {
		env.Reply("%v", err)
		return
	}

	switch {
	case field.provider != "":
		if env.Secrets != nil {
			if err := env.Secrets.Set(secrets.KeyFor(field.provider), value); err != nil {
				core.GetLogger().Warnw("secret_store_write_failed", "provider", field.provider, "error", err)
				env.Reply("saved for this run, but the secret store rejected it: %v", err)
			}
		}
	case param == "maxhistory":
		env.Session.SetMaxHistory(env.Config.App.MaxHistory)
	case param == "verbose":
		core.InitLogger(env.Config.App.Verbose)
	}

	// Changed credentials and endpoints only reach a freshly built client.
	if env.Backends != nil {
		if field.provider != "" || strings.HasSuffix(param, "url") || param == "sdkretries" {
			env.Backends.Invalidate()
		}
	}

	env.Reply("%s set to: %s", param, field.getter(env.Config))
}
