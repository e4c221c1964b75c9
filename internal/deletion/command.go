package deletion

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"git.home.luguber.info/inful/wscleanup/internal/errors"
)

// Placeholder is the token in a command template that receives the absolute
// path of the entry to delete.
const Placeholder = "%s"

// Command deletes entries by invoking a user-supplied external command with
// the entry's absolute path substituted for the template placeholder.
//
// Substitution is a literal string replacement. Filenames routinely contain
// regex metacharacters (a literal `$`, `\s`, ...), so any pattern-interpreting
// replacement API would corrupt them; see TestClean_FilenameIsNeverTreatedAsRegex.
// The command runs without a shell, so spaces and shell metacharacters in
// paths need no quoting and survive byte-for-byte.
type Command struct {
	argv []string
}

// NewCommand parses and validates a command template. The template is split
// on whitespace into argv and must contain the placeholder exactly once; a
// malformed template is a configuration error and nothing is attempted.
func NewCommand(template string) (*Command, error) {
	argv := strings.Fields(template)
	if len(argv) == 0 {
		return nil, errors.ConfigError("deletion command is empty")
	}

	count := 0
	for _, arg := range argv {
		count += strings.Count(arg, Placeholder)
	}
	switch {
	case count == 0:
		return nil, errors.ConfigError("deletion command is missing the path placeholder").
			WithContext("template", template).WithContext("placeholder", Placeholder)
	case count > 1:
		return nil, errors.ConfigError("deletion command must contain the path placeholder exactly once").
			WithContext("template", template)
	}

	return &Command{argv: argv}, nil
}

func (c *Command) Name() string { return "command" }

// Clean invokes the command once per selected entry. A selected directory is
// handed to the command whole when no exclusion can apply beneath it. An
// entry still present after the command ran is recorded as a failure.
func (c *Command) Clean(ctx context.Context, root string, sel Selection) Outcome {
	out := Outcome{Root: root}
	walkSelected(ctx, root, sel, &out, func(abs string, _ bool) {
		c.deleteEntry(ctx, abs, &out)
	})
	return out
}

// Render substitutes path into the template argv. Exported so callers can log
// the exact command line that will run.
func (c *Command) Render(path string) []string {
	argv := make([]string, len(c.argv))
	for i, arg := range c.argv {
		// literal substitution; never a regex replacement
		argv[i] = strings.Replace(arg, Placeholder, path, 1)
	}
	return argv
}

func (c *Command) deleteEntry(ctx context.Context, abs string, out *Outcome) {
	argv := c.Render(abs)
	out.Log = append(out.Log, "Using command: "+strings.Join(argv, " "))

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if err := cmd.Run(); err != nil {
		out.recordFailure(abs, fmt.Errorf("deletion command failed: %w", err))
		return
	}

	if _, err := os.Lstat(abs); err == nil {
		out.recordFailure(abs, fmt.Errorf("deletion command exited 0 but entry remains"))
		return
	}
	out.recordRemoved()
}
