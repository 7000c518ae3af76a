// Package main provides the botscript CLI.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/botscript-lang/botscript/dsl"
	"github.com/botscript-lang/botscript/internal/config"
	"github.com/botscript-lang/botscript/llm"
	"github.com/botscript-lang/botscript/store"
)

var (
	version = "dev"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "run":
		runCmd(args)
	case "check":
		checkCmd(args)
	case "version":
		fmt.Printf("botscript %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`BotScript - conversational bot scripting

Usage:
  botscript <command> [options]

Commands:
  run       Run a .bot script interactively
  check     Check a .bot script for errors
  version   Print version information
  help      Show this help message

Examples:
  botscript run support.bot
  botscript run support.bot --llm --debug
  botscript check support.bot --ast

Run 'botscript <command> --help' for more information on a command.`)
}

// runCmd loads a script and drives an interactive conversation.
func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	useLLM := fs.Bool("llm", false, "Use the remote model for intent recognition")
	debug := fs.Bool("debug", false, "Print recognized intent and confidence per turn")
	configPath := fs.String("config", config.DefaultPath, "Config file path")
	transcript := fs.String("transcript", "", "Record the conversation to a SQLite transcript")

	fs.Usage = func() {
		fmt.Println(`Usage: botscript run <file.bot> [options]

Run a bot script as an interactive conversation.

Options:`)
		fs.PrintDefaults()
		fmt.Println(`
Slash commands inside the conversation:
  /state    show the current dialogue state
  /vars     show script variables
  /reload   re-parse the script and restart the conversation
  /help     show slash commands
  /quit     leave the conversation`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: no .bot file specified")
		fs.Usage()
		os.Exit(1)
	}
	file := fs.Arg(0)

	if *debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}

	recognizer := buildRecognizer(*useLLM, cfg)

	var transcriptStore store.Store
	if *transcript != "" {
		s, err := store.Open(*transcript)
		if err != nil {
			fatal(err)
		}
		defer s.Close()
		transcriptStore = s
	}

	interp, err := loadScript(file, recognizer)
	if err != nil {
		fatal(err)
	}

	var session *store.Session
	if transcriptStore != nil {
		session, err = transcriptStore.BeginSession(interp.BotName(), file)
		if err != nil {
			fatal(err)
		}
	}

	fmt.Printf("%s (state: %s) - /help for commands\n", interp.BotName(), interp.CurrentState())
	if err := interp.Start(); err != nil {
		fatal(err)
	}

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	seq := 0
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			switch line {
			case "/quit", "/exit":
				return
			case "/state":
				fmt.Printf("state: %s (finished: %v)\n", interp.CurrentState(), interp.Finished())
				continue
			case "/vars":
				printVars(interp)
				continue
			case "/reload":
				reloaded, err := loadScript(file, recognizer)
				if err != nil {
					fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
					continue
				}
				interp = reloaded
				if err := interp.Start(); err != nil {
					fmt.Fprintf(os.Stderr, "restart failed: %v\n", err)
				}
				fmt.Println("script reloaded")
				continue
			case "/help":
				fmt.Println("/state /vars /reload /help /quit")
				continue
			default:
				fmt.Printf("unknown command %s, try /help\n", line)
				continue
			}
		}

		stateBefore := interp.CurrentState()
		response, cont, err := interp.ProcessInput(ctx, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		if *debug {
			if result := interp.LastResult(); result != nil {
				slog.Debug("intent recognized",
					"intent", result.Intent,
					"confidence", result.Confidence,
					"reasoning", result.Reasoning)
			}
		}

		if response != "" {
			fmt.Println(response)
		}

		if transcriptStore != nil && session != nil {
			seq++
			turn := store.Turn{
				SessionID:   session.ID,
				Seq:         seq,
				Utterance:   line,
				StateBefore: stateBefore,
				StateAfter:  interp.CurrentState(),
				Response:    response,
			}
			if result := interp.LastResult(); result != nil {
				turn.Intent = result.Intent
				turn.Confidence = result.Confidence
			}
			if err := transcriptStore.RecordTurn(turn); err != nil {
				slog.Warn("failed to record turn", "error", err)
			}
		}

		if !cont {
			return
		}
	}
}

// checkCmd parses and validates a script without running it.
func checkCmd(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	showAST := fs.Bool("ast", false, "Print the parsed syntax tree")

	fs.Usage = func() {
		fmt.Println(`Usage: botscript check <file.bot> [options]

Parse and validate a bot script, reporting errors with line numbers.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: no .bot file specified")
		fs.Usage()
		os.Exit(1)
	}
	file := fs.Arg(0)

	src, err := os.ReadFile(file)
	if err != nil {
		fatal(err)
	}

	program, lexErrs, err := dsl.Parse(string(src))
	for _, le := range lexErrs {
		fmt.Fprintf(os.Stderr, "%s:%v\n", file, le)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
		os.Exit(1)
	}

	if err := dsl.Validate(program); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
		os.Exit(1)
	}

	if *showAST {
		dsl.Fprint(os.Stdout, program)
	}

	if len(lexErrs) > 0 {
		os.Exit(1)
	}
	fmt.Printf("%s: OK\n", file)
}

func buildRecognizer(useLLM bool, cfg *config.Config) llm.Recognizer {
	if !useLLM {
		return llm.Local{}
	}
	opts := []llm.Option{}
	if cfg.Recognizer.APIKey != "" {
		opts = append(opts, llm.WithAPIKey(cfg.Recognizer.APIKey))
	}
	if cfg.Recognizer.BaseURL != "" {
		opts = append(opts, llm.WithBaseURL(cfg.Recognizer.BaseURL))
	}
	if cfg.Recognizer.Model != "" {
		opts = append(opts, llm.WithModel(cfg.Recognizer.Model))
	}
	if cfg.Recognizer.Timeout > 0 {
		opts = append(opts, llm.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Recognizer.Timeout),
		}))
	}
	return llm.NewClient(opts...)
}

func loadScript(file string, recognizer llm.Recognizer) (*dsl.Interpreter, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	program, lexErrs, err := dsl.Parse(string(src))
	for _, le := range lexErrs {
		fmt.Fprintf(os.Stderr, "%s:%v\n", file, le)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	if err := dsl.Validate(program); err != nil {
		return nil, err
	}

	interp := dsl.NewInterpreter(
		dsl.WithRecognizer(recognizer),
		dsl.WithOutput(func(msg string) { fmt.Println(msg) }),
		dsl.WithInput(func(prompt string) (string, error) {
			fmt.Printf("%s ", prompt)
			reader := bufio.NewReader(os.Stdin)
			line, err := reader.ReadString('\n')
			if err != nil {
				return "", err
			}
			return strings.TrimSpace(line), nil
		}),
	)
	if err := interp.Load(program); err != nil {
		return nil, err
	}
	return interp, nil
}

func printVars(interp *dsl.Interpreter) {
	vars := interp.Variables()
	if len(vars) == 0 {
		fmt.Println("(no variables)")
		return
	}
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s = %s\n", name, vars[name].Text())
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
