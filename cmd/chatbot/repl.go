package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/zhouzirui/pawshop/internal/model/chat"
	"github.com/zhouzirui/pawshop/internal/service/chatbot"
)

const (
	prompt   = "you> "
	greeting = "Ask about pets, supplies or adoption. /history shows the conversation, /clear starts over, /quit exits."
)

// runREPL reads questions line by line until EOF or /quit.
func runREPL(ctx context.Context, m *chatbot.Manager, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, greeting)
	if n := len(m.Messages()); n > 0 {
		fmt.Fprintf(out, "(resuming a conversation with %d messages)\n", n)
	}

	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, prompt)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/quit", "/exit":
			return nil
		case "/clear":
			m.ClearChat()
			fmt.Fprintln(out, "Conversation cleared.")
		case "/history":
			printTranscript(out, m.State())
		default:
			m.SendMessage(ctx, line)
			printReply(out, m.State())
		}

		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(out, prompt)
	}
	return scanner.Err()
}

func printReply(out io.Writer, state chatbot.State) {
	if state.Error != "" {
		fmt.Fprintf(out, "! %s\n", state.Error)
		return
	}
	if n := len(state.Messages); n > 0 && state.Messages[n-1].Role == chat.RoleAssistant {
		fmt.Fprintf(out, "bot> %s\n", state.Messages[n-1].Content)
	}
}

func printTranscript(out io.Writer, state chatbot.State) {
	if len(state.Messages) == 0 {
		fmt.Fprintln(out, "No messages yet.")
		return
	}
	if state.SessionID != "" {
		fmt.Fprintf(out, "session %s\n", state.SessionID)
	}
	for _, msg := range state.Messages {
		who := "you"
		if msg.Role == chat.RoleAssistant {
			who = "bot"
		}
		fmt.Fprintf(out, "[%s] %s> %s\n", shortTime(msg.Timestamp), who, msg.Content)
	}
}

func shortTime(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("15:04")
}
