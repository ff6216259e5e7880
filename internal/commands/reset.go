package commands

// ResetCommand drops the conversation, keeping the configured system prompt.
type ResetCommand struct{}

func (c *ResetCommand) Name() string        { return "reset" }
func (c *ResetCommand) Usage() string       { return "/reset" }
func (c *ResetCommand) Description() string { return "clear the conversation" }

func (c *ResetCommand) Execute(env *Env, args []string) {
	env.Session.Reset(env.Config.App.Prompt)
	env.Reply("conversation reset")
}
