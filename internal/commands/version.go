package commands

// VersionCommand handles the /version command
type VersionCommand struct {
	Version string
}

func (c *VersionCommand) Name() string        { return "version" }
func (c *VersionCommand) Usage() string       { return "/version" }
func (c *VersionCommand) Description() string { return "show the running version" }

func (c *VersionCommand) Execute(env *Env, args []string) {
	env.Reply("switchboard %s", c.Version)
}
