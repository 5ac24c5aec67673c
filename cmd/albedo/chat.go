package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to the PM agent",
	Long: `Start an interactive chat session with the PM agent.

The agent manages projects and tasks, routes work to the right dev-agent
worker, runs batches, checks fleet health, and remembers decisions across
sessions. Conversation history persists for the duration of the session.

With a message argument, sends that one message and exits:

  albedo chat "create a task to add dark mode to the settings page"
  albedo chat                  # interactive session`,
	Args: cobra.ArbitraryArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	dim := color.New(color.Faint)
	pm, _, err := app.buildAgent(func(line string) {
		dim.Printf("  %s\n", line)
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One-shot mode: the whole argument list is the message.
	if len(args) > 0 {
		reply, err := pm.Chat(ctx, strings.Join(args, " "))
		if reply != "" {
			fmt.Println(reply)
		}
		return err
	}

	fmt.Println("Albedo PM agent. Type your request, or 'exit' to quit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		reply, err := pm.Chat(ctx, line)
		if reply != "" {
			fmt.Printf("\nalbedo> %s\n\n", reply)
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(os.Stderr, "error: %v\n\n", err)
		}
	}
}
