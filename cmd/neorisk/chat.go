package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neorisk-server/internal/conversation"
)

const cliChatID = "cli"

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Run the assessment conversation in the terminal",
		Long:  "Starts the step-by-step conversation on stdin/stdout. Type /help for the batch format and quit to leave.",
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, _ []string) error {
	assessor, logger, err := loadAssessor(cmd)
	if err != nil {
		return err
	}
	shell := conversation.NewShell(assessor, conversation.NewMemorySessionStore(1, 0), logger)

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	reply, err := shell.HandleMessage(ctx, cliChatID, conversation.CommandStart)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, reply.Text)

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit":
			return nil
		}

		reply, err := shell.HandleMessage(ctx, cliChatID, line)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, reply.Text)
	}
}
