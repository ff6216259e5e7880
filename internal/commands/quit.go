package commands

// QuitCommand ends the console session.
type QuitCommand struct{}

func (c *QuitCommand) Name() string        { return "quit" }
func (c *QuitCommand) Usage() string       { return "/quit" }
func (c *QuitCommand) Description() string { return "exit" }

func (c *QuitCommand) Execute(env *Env, args []string) {
	env.RequestQuit()
}
