package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
)

var errQuit = errors.New("quit")

// shell runs operator commands against a rig.
type shell struct {
	rig  *rig
	out  io.Writer
	cmds map[string]command
}

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

func newShell(r *rig, out io.Writer) *shell {
	s := &shell{rig: r, out: out}
	s.cmds = map[string]command{
		"temp":   {"temp [name]", "convert and print a DS18B20 temperature", s.cmdTemp},
		"watch":  {"watch [rounds] [period]", "sample thermometers and encoders periodically", s.cmdWatch},
		"dac":    {"dac [name] <ch> <code|pct%> | dac [name] <ch> ramp <to> <ms>", "set an AD5370 channel (0..39)", s.cmdDAC},
		"tx":     {"tx [name] <payload|0xHEX>", "send one fixed-length CC1200 packet", s.cmdTX},
		"rx":     {"rx [name] <len> [timeout]", "wait for one fixed-length CC1200 packet", s.cmdRX},
		"status": {"status [name]", "read the CC1200 chip status byte", s.cmdStatus},
		"gpio":   {"gpio [name] <pin> [in|0|1]", "read or drive a PCA9554 pin", s.cmdGPIO},
		"leds":   {"leds [name] <chip> <ch> on|off | leds [name] reset", "switch MBI5039 outputs", s.cmdLEDs},
		"angle":  {"angle [name]", "read an EMS22A position", s.cmdAngle},
		"help":   {"help", "list commands", s.cmdHelp},
		"exit":   {"exit", "leave the shell", func(context.Context, []string) error { return errQuit }},
	}
	s.cmds["quit"] = s.cmds["exit"]
	s.cmds["?"] = s.cmds["help"]
	return s
}

// exec runs one input line. It returns errQuit when the shell should stop.
func (s *shell) exec(ctx context.Context, line string) error {
	words, err := shlex.Split(line)
	if err != nil {
		fmt.Fprintf(s.out, "parse error: %v\n", err)
		return nil
	}
	if len(words) == 0 {
		return nil
	}
	name := strings.ToLower(words[0])
	c, ok := s.cmds[name]
	if !ok {
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", name)
		return nil
	}
	if err := c.run(ctx, words[1:]); err != nil {
		if errors.Is(err, errQuit) {
			return err
		}
		fmt.Fprintf(s.out, "%s: %v\n", name, err)
	}
	return nil
}

// run reads lines until exit, EOF or ctx is done.
func (s *shell) run(ctx context.Context, rl *readline.Instance) {
	defer rl.Close()
	s.cmdHelp(ctx, nil)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			return
		}
		if err := s.exec(ctx, line); errors.Is(err, errQuit) {
			fmt.Fprintln(s.out, "Exiting...")
			return
		}
	}
}

func (s *shell) cmdHelp(context.Context, []string) error {
	fmt.Fprintln(s.out, "Commands:")
	for _, n := range names(s.cmds) {
		if n == "quit" || n == "?" {
			continue
		}
		c := s.cmds[n]
		fmt.Fprintf(s.out, "  %-58s %s\n", c.usage, c.help)
	}
	return nil
}
