// Cueso is the interactive terminal client for the cuesod backend. It opens a
// websocket chat connection, streams the assistant's tool activity while a
// request is processed, and renders answers as markdown. When the assistant
// finds content on multiple streaming services the client shows an interactive
// picker and sends the choice back as the next message.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
)

func main() {
	backendURL := flag.String("backend", "http://localhost:8483", "cuesod base URL")
	sessionID := flag.String("session", "", "session id to join (default: a new session)")
	flag.Parse()

	if err := run(*backendURL, *sessionID); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(backendURL, sessionID string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	initMarkdownRenderer()

	c := newClient(backendURL)
	if err := c.Connect(ctx); err != nil {
		return fmt.Errorf("connect to backend at %s: %w", backendURL, err)
	}
	defer c.Close()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	fmt.Printf("%scueso%s — voice/text Roku control (session %s)\n", ansiBold, ansiReset, sessionID)
	fmt.Printf("Type %s/help%s for commands, %s/quit%s to exit.\n\n", ansiDim, ansiReset, ansiDim, ansiReset)

	return chatLoop(ctx, c, sessionID)
}

// chatLoop reads user input line by line and dispatches it: slash commands go
// to the admin API, everything else becomes a chat message. A paused turn
// (content found, service not chosen) triggers the service picker.
func chatLoop(ctx context.Context, c *client, sessionID string) error {
	in := bufio.NewReader(os.Stdin)

	for {
		fmt.Printf("%syou>%s ", ansiGreen+ansiBold, ansiReset)
		line, err := in.ReadString('\n')
		if err != nil {
			fmt.Println()
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, switched := handleCommand(ctx, c, sessionID, input)
			if quit {
				return nil
			}
			if switched != "" {
				sessionID = switched
			}
			continue
		}

		if err := sendTurn(ctx, c, sessionID, input); err != nil {
			if ctx.Err() != nil {
				fmt.Printf("\n%sInterrupted%s\n", ansiDim, ansiReset)
				return nil
			}
			fmt.Fprintf(os.Stderr, "%serror: %v%s\n", ansiRed, err, ansiReset)
		}

		fmt.Println()
	}
}

// sendTurn runs one chat turn and, when the turn pauses on find_content
// results, lets the user pick a service and plays the choice back as the
// follow-up message.
func sendTurn(ctx context.Context, c *client, sessionID, input string) error {
	r := newRenderer()

	final, err := c.Send(ctx, sessionID, input, r.printEvent)
	if err != nil {
		return err
	}

	if !final.Paused || len(r.lastMatches) == 0 {
		return nil
	}

	choice, err := pickService(r.lastMatches)
	if err != nil || choice == "" {
		return err
	}

	fmt.Printf("%syou>%s Play it on %s\n", ansiGreen+ansiBold, ansiReset, choice)
	return sendTurn(ctx, c, sessionID, "Play it on "+choice)
}

// handleCommand runs a slash command. It returns whether to quit and, for
// /session, the id to switch to.
func handleCommand(ctx context.Context, c *client, sessionID, input string) (quit bool, switched string) {
	parts := strings.Fields(input)
	cmd, args := parts[0], parts[1:]

	switch cmd {
	case "/quit", "/exit":
		fmt.Println("Goodbye!")
		return true, ""

	case "/help":
		printHelp()

	case "/list":
		ids, err := c.ListSessions(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%serror: %v%s\n", ansiRed, err, ansiReset)
			return false, ""
		}
		if len(ids) == 0 {
			fmt.Println("No active sessions.")
			return false, ""
		}
		fmt.Printf("Active sessions (%d):\n", len(ids))
		for i, id := range ids {
			marker := "   "
			if id == sessionID {
				marker = " → "
			}
			fmt.Printf("%s%d. %s\n", marker, i+1, id)
		}

	case "/session":
		id := uuid.NewString()
		if len(args) > 0 {
			id = args[0]
		}
		fmt.Printf("%sSwitched to session %s%s\n", ansiDim, id, ansiReset)
		return false, id

	case "/reset":
		id := sessionID
		if len(args) > 0 {
			id = args[0]
		}
		msg, err := c.ResetSession(ctx, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%serror: %v%s\n", ansiRed, err, ansiReset)
			return false, ""
		}
		fmt.Println(msg)

	case "/delete":
		if len(args) == 0 {
			fmt.Println("Usage: /delete <session_id>")
			return false, ""
		}
		msg, err := c.DeleteSession(ctx, args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%serror: %v%s\n", ansiRed, err, ansiReset)
			return false, ""
		}
		fmt.Println(msg)

	default:
		fmt.Printf("Unknown command: %s\n", cmd)
		printHelp()
	}

	return false, ""
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /help           Show this help message")
	fmt.Println("  /list           List active sessions on the backend")
	fmt.Println("  /session [id]   Switch to a session (or create a new one)")
	fmt.Println("  /reset [id]     Reset a session's conversation (default: current)")
	fmt.Println("  /delete <id>    Delete a session")
	fmt.Println("  /quit           Exit")
}
