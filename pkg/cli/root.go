package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// app is the state shared by every subcommand of one invocation
type app struct {
	out        io.Writer
	errOut     io.Writer
	projectDir string
}

// NewRootCommand creates the root command. Command output goes to out and
// logs to errOut; nil means the process streams.
func NewRootCommand(out, errOut io.Writer) *Command {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	a := &app{out: out, errOut: errOut, projectDir: "."}

	root := &Command{
		Name:        "cog",
		Description: "cog - plugin product configuration sync and native artifact generation",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("cog", flag.ContinueOnError),
	}

	for _, cmd := range []*Command{
		newSyncCommand(a),
		newActivateCommand(a),
		newCleanupCommand(a),
		newPreBuildCommand(a),
		newPostBuildCommand(a),
		newValidateCommand(a),
		newInspectCommand(a),
	} {
		root.Subcommands[cmd.Name] = cmd
	}

	return root
}

// newCommand creates a subcommand whose flag set carries the shared -project flag
func newCommand(a *app, name, description string) *Command {
	flags := flag.NewFlagSet(name, flag.ContinueOnError)
	flags.SetOutput(a.errOut)
	flags.StringVar(&a.projectDir, "project", a.projectDir, "Unity project root (COG_PROJECT_ROOT overrides)")
	return &Command{
		Name:        name,
		Description: description,
		Flags:       flags,
	}
}

// Execute runs the command with the process arguments
func (c *Command) Execute() error {
	return c.ExecuteArgs(os.Args[1:])
}

// ExecuteArgs runs the command with explicit arguments
func (c *Command) ExecuteArgs(args []string) error {
	if len(args) == 0 {
		return c.usage()
	}

	if strings.EqualFold(args[0], "-h") || strings.EqualFold(args[0], "--help") {
		return c.usage()
	}

	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	fmt.Printf("Usage: %s <command> [args]\n\n", c.Name)
	fmt.Printf("Commands:\n")

	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-15s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}
