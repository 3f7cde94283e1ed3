package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cyberinferno/dglab-ws/protocol"
	"github.com/cyberinferno/dglab-ws/session"
	"github.com/fatih/color"
)

const consoleHelp = `commands:
  strength <A|B> <dec|inc|set> <value>
  pulse <A|B> <wave>
  preset <A|B> <name>
  presets <A|B>
  clear <A|B>
  send <type> <message>
  state
  connect [host]
  close
  quit`

// console applies line commands to a session. exec must run on the
// goroutine that drains the session's queue.
type console struct {
	manager *session.Manager
	host    string
	out     io.Writer
}

// exec runs one command line and reports whether the user asked to quit.
func (c *console) exec(line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help", "?":
		fmt.Fprintln(c.out, consoleHelp)
		return false, nil
	case "state":
		printState(c.out, c.manager.State())
		return false, nil
	case "connect":
		h := c.host
		if len(args) > 0 {
			h = args[0]
		}
		c.manager.Connect(h)
		return false, nil
	case "close":
		c.manager.Close()
		return false, nil
	case "send":
		if len(args) < 1 {
			return false, usageError("send <type> <message>")
		}
		t, err := protocol.ParseMessageType(args[0])
		if err != nil {
			return false, err
		}
		return false, c.manager.Send(t, restOf(line, 2))
	}

	if len(args) < 1 {
		return false, fmt.Errorf("unknown command %q, type help", cmd)
	}

	ch, err := protocol.ParseChannel(args[0])
	if err != nil {
		return false, err
	}

	switch cmd {
	case "strength":
		if len(args) != 3 {
			return false, usageError("strength <A|B> <dec|inc|set> <value>")
		}
		mode, err := protocol.ParseStrengthChangeMode(args[1])
		if err != nil {
			return false, err
		}
		value, err := strconv.Atoi(args[2])
		if err != nil {
			return false, fmt.Errorf("invalid value %q: %w", args[2], err)
		}
		return false, c.manager.SendStrength(ch, mode, value)
	case "pulse":
		wave := restOf(line, 2)
		if wave == "" {
			return false, usageError("pulse <A|B> <wave>")
		}
		return false, c.manager.SendPulse(ch, wave)
	case "preset":
		name := restOf(line, 2)
		if name == "" {
			return false, usageError("preset <A|B> <name>")
		}
		return false, c.manager.SendPresetPulse(ch, name)
	case "presets":
		return false, c.manager.SendAllPresetPulses(ch)
	case "clear":
		return false, c.manager.SendClear(ch)
	default:
		return false, fmt.Errorf("unknown command %q, type help", cmd)
	}
}

// restOf returns line without its first n fields, inner spacing preserved.
func restOf(line string, n int) string {
	rest := strings.TrimSpace(line)
	for i := 0; i < n; i++ {
		idx := strings.IndexAny(rest, " \t")
		if idx < 0 {
			return ""
		}
		rest = strings.TrimSpace(rest[idx:])
	}

	return rest
}

func usageError(usage string) error {
	return fmt.Errorf("usage: %s", usage)
}

func printState(out io.Writer, s session.State) {
	bound := color.RedString("unbound")
	if s.Bound() {
		bound = color.GreenString("bound")
	}

	fmt.Fprintf(out, "%s client=%q target=%q A=%d/%d B=%d/%d\n",
		bound, s.ClientID, s.TargetID, s.StrengthA, s.StrengthLimitA, s.StrengthB, s.StrengthLimitB)
}

func printFeedback(out io.Writer, f protocol.Feedback) {
	fmt.Fprintf(out, "%s %s %s\n", color.CyanString("feedback"), f.Glyph(), f)
}
