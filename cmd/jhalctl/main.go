// Command jhalctl is an interactive bench shell for the devices described
// by a board file, run on a Linux host through periph.io.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chzyer/readline"

	"jhal-go/config"
	"jhal-go/jhal"
	"jhal-go/jhal/periphio"
)

func main() {
	boardPath := flag.String("board", "board.yaml", "board description file")
	command := flag.String("c", "", "run one command and exit")
	flag.Parse()

	if err := run(*boardPath, *command); err != nil {
		fmt.Fprintln(os.Stderr, "jhalctl:", err)
		os.Exit(1)
	}
}

func run(boardPath, command string) error {
	board, err := config.Load(boardPath)
	if err != nil {
		return err
	}

	lines := map[jhal.PinID]string{}
	for k, v := range board.Pins {
		id, err := jhal.ParsePinID(k)
		if err != nil {
			return err
		}
		lines[id] = v
	}
	host, err := periphio.Open(lines)
	if err != nil {
		return err
	}
	defer host.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if command != "" {
		r, err := build(board, host, func(msg string) { fmt.Fprintln(os.Stderr, "warning:", msg) })
		if err != nil {
			return err
		}
		newShell(r, os.Stdout).exec(ctx, command)
		return nil
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          board.Name + "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	r, err := build(board, host, func(msg string) { fmt.Fprintln(rl.Stderr(), "warning:", msg) })
	if err != nil {
		rl.Close()
		return err
	}
	newShell(r, rl.Stdout()).run(ctx, rl)
	return nil
}
