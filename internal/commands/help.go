package commands

// HelpCommand lists the registered commands.
type HelpCommand struct {
	registry *Registry
}

// NewHelpCommand creates a help command that can list registered commands
func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{registry: registry}
}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Usage() string       { return "/help" }
func (c *HelpCommand) Description() string { return "list available commands" }

func (c *HelpCommand) Execute(env *Env, args []string) {
	for _, cmd := range c.registry.All() {
		env.Reply("%-22s %s", cmd.Usage(), cmd.Description())
	}
}
