// Command lox is the REPL/file-loading driver around internal/vm. It is
// the external-collaborator layer spec.md §1 explicitly places outside the
// core (REPL, terminal formatting, dot-command dispatch, argv parsing) —
// built from the teacher's cmd/noxy/main.go shape: a panic-recover
// wrapper, a fixed usage line for bad argv, and a bufio.Scanner REPL loop.
package main

import (
	"bufio"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/ncruces/go-strftime"

	"github.com/estevaofon/lox-vm/internal/config"
	"github.com/estevaofon/lox-vm/internal/vm"
)

const usage = "Usage: lox [path]"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintln(os.Stderr, "panic:", r)
			debug.PrintStack()
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "lox: invalid configuration:", err)
		return 64
	}

	switch len(args) {
	case 0:
		startREPL(cfg)
		return 0
	case 1:
		return runFile(cfg, args[0])
	default:
		fmt.Fprintln(os.Stderr, usage)
		return 64
	}
}

func runFile(cfg config.VMConfig, path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "lox: can't read %q: %s\n", path, err)
		return 1
	}

	machine := vm.NewWithStackSize(cfg.StackSize)
	if err := machine.Interpret(string(src)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// startREPL drives an interactive session over a single, persistent VM so
// globals defined on one line are visible to the next — matching the
// teacher's own "shared VM for persistence" REPL design.
func startREPL(cfg config.VMConfig) {
	start := time.Now()
	fmt.Printf("Lox REPL — started %s\n", strftime.Format("%Y-%m-%d %H:%M:%S", start))
	fmt.Println("Type .help for a list of commands.")

	machine := vm.NewWithStackSize(cfg.StackSize)
	promptsEnabled := isatty.IsTerminal(os.Stdin.Fd()) && !cfg.NoColor
	reader := bufio.NewScanner(os.Stdin)

	for {
		if promptsEnabled {
			fmt.Print(cfg.Prompt)
		}
		if !reader.Scan() {
			break
		}
		line := reader.Text()
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, ".") {
			if handleDotCommand(machine, cfg, trimmed, start) {
				return
			}
			continue
		}
		if trimmed == "" {
			continue
		}

		if err := machine.Interpret(line); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// handleDotCommand executes one REPL dot-command (spec.md §6) and reports
// whether the session should terminate.
func handleDotCommand(machine *vm.VM, cfg config.VMConfig, line string, start time.Time) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ".exit":
		fmt.Printf("Session started %s. Bye.\n", humanize.Time(start))
		return true
	case ".clear":
		fmt.Print("\033[H\033[2J")
	case ".help":
		printHelp()
	case ".globals":
		names := machine.GlobalNames()
		if len(names) == 0 {
			fmt.Println("(no globals defined)")
		}
		for _, name := range names {
			fmt.Println(name)
		}
	case ".file":
		if len(fields) < 2 {
			fmt.Fprintln(os.Stderr, "Usage: .file <path>")
			return false
		}
		src, err := os.ReadFile(fields[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "lox: can't read %q: %s\n", fields[1], err)
			return false
		}
		if err := machine.Interpret(string(src)); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q. Type .help for a list of commands.\n", fields[0])
	}
	return false
}

func printHelp() {
	fmt.Println(`Commands:
  .exit         terminate the session
  .clear        reset the terminal view
  .help         print this help text
  .file <path>  read and interpret a file
  .globals      list currently defined global variables
Anything else is interpreted as a line of Lox source.`)
}
