package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"higress-chat/internal/application/port/input"
	"higress-chat/internal/application/port/output"
	"higress-chat/internal/di"
	"higress-chat/internal/domain/entity"
	"higress-chat/internal/infrastructure/env"
	"higress-chat/internal/infrastructure/llm/scripted"
	"higress-chat/internal/infrastructure/userinteraction"

	"github.com/spf13/pflag"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run owns every deferred cleanup so a failed chat still closes the
// container and flushes the session log before the process exits.
func run() error {
	flags := pflag.NewFlagSet("chat", pflag.ExitOnError)
	flags.String("model", "", "model name (MODEL)")
	flags.Float32("temperature", 0.5, "sampling temperature in [0, 2]")
	flags.Int("max-tokens", 0, "completion token limit, 0 for the vendor default")
	flags.String("system-prompt", "", "system prompt, the built-in one when empty")
	flags.Bool("enable-thinking", false, "ask the model to stream its reasoning")
	flags.Bool("enable-search", false, "let the model search the web")
	flags.String("search-strategy", "", "search strategy (turbo, max)")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("log-dir", "", "write a JSON log file per session into this directory")
	tools := flags.StringSlice("tools", []string{"add", "multiply", "getCurrentTime", "getSystemInfo"}, "tools offered to the model")
	stream := flags.Bool("stream", true, "print events as they arrive")
	includeThinking := flags.Bool("include-thinking", false, "show reasoning in non-streaming mode")
	offline := flags.Bool("offline", false, "echo the prompt through a scripted model instead of calling the API")
	flags.Parse(os.Args[1:])

	if _, err := env.LoadDotenv("."); err != nil {
		log.Printf("Warning: %v", err)
	}
	cfg, err := env.Load(flags)
	if err != nil {
		log.Printf("Config error: %v", err)
		return err
	}

	prompt, err := readPrompt(flags.Args(), os.Stdin)
	if err != nil {
		log.Printf("Failed to read prompt: %v", err)
		return err
	}

	var llm output.LLMPort
	if *offline {
		llm = echoModel(prompt)
	}

	container, err := di.NewContainer(cfg, di.Options{Session: prompt, LLM: llm})
	if err != nil {
		log.Printf("Initialization failed: %v", err)
		return err
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := userinteraction.NewConsole()
	req := input.Prompt{User: prompt, Tools: *tools, IncludeThinking: *includeThinking}

	container.Logger.Info("Chat started", "stream", *stream, "tools", len(req.Tools))

	if err := converse(ctx, container.Chat, console, req, *stream); err != nil {
		console.ShowError(err)
		container.Logger.Error("Chat failed", "error", err)
		return err
	}

	container.LogToolUsage()
	return nil
}

// converse renders one exchange and returns the first error it meets.
func converse(ctx context.Context, client input.ChatClient, console *userinteraction.Console, req input.Prompt, stream bool) error {
	if !stream {
		resp, err := client.Call(ctx, req)
		if err != nil {
			return err
		}
		console.ShowFinal(resp)
		return nil
	}

	for ev, err := range client.Stream(ctx, req) {
		if err != nil {
			return err
		}
		console.Render(ev)
	}
	return nil
}

// readPrompt joins the positional arguments, or reads stdin when there are
// none.
func readPrompt(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}

	fmt.Fprintln(os.Stderr, "Enter a prompt:")
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("empty prompt")
	}
	return line, nil
}

func echoModel(prompt string) *scripted.LLM {
	return scripted.New(scripted.Round{Chunks: []entity.StreamChunk{
		entity.ReasoningChunk("offline mode, echoing the prompt"),
		entity.TextChunk(prompt),
	}})
}
