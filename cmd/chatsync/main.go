// Package main is the entrypoint for the chatsync terminal client.
// It connects to the chat service, keeps the local conversation state in
// sync, and exposes a minimal line-based command interface.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openforum/chatsync/internal/domain"
	"github.com/openforum/chatsync/internal/session"
)

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	return session.Run(ctx, session.Params{
		Name:        "chatsync",
		UserID:      os.Getenv("CHAT_USER_ID"),
		AccessToken: os.Getenv("CHAT_ACCESS_TOKEN"),
		Interact:    interact,
	})
}

// interact drives the session from stdin. One command per line:
//
//	/open <userID>     select a conversation and mark it read
//	/typing <on|off>   send a typing indicator for the open conversation
//	/who               print the online users
//	/quit              disconnect and exit
//	<anything else>    send it as a message to the open conversation
func interact(ctx context.Context, s *session.Session) error {
	// Re-render on every store change so remote events show up between
	// keystrokes.
	unsubscribe := s.Store.Subscribe(func(snap *domain.Snapshot) {
		render(snap)
	})
	defer unsubscribe()

	render(s.Store.Snapshot())

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if done, err := dispatch(s, line); done || err != nil {
				return err
			}
		}
	}
}

// dispatch handles a single input line. Returns done=true when the user
// asked to exit.
func dispatch(s *session.Session, line string) (done bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}

	snap := s.Store.Snapshot()

	switch {
	case line == "/quit":
		s.Engine.Disconnect()
		return true, nil

	case line == "/who":
		render(snap)
		return false, nil

	case strings.HasPrefix(line, "/open "):
		counterpartID := strings.TrimSpace(strings.TrimPrefix(line, "/open "))
		s.Store.Select(counterpartID)
		if conv := snap.Conversation(counterpartID); conv != nil && conv.UnreadCount > 0 {
			if err := s.Engine.NotifySelection(conv.ChatUUID, counterpartID); err != nil {
				s.Logger.Warn("failed to send read receipt", "error", err)
			}
		}
		return false, nil

	case strings.HasPrefix(line, "/typing "):
		conv := snap.Conversation(snap.SelectedUserID)
		if conv == nil {
			fmt.Println("no conversation open, use /open <userID> first")
			return false, nil
		}
		isTyping := strings.TrimSpace(strings.TrimPrefix(line, "/typing ")) == "on"
		if err := s.Engine.NotifyTyping(conv.ChatUUID, conv.CounterpartID, isTyping); err != nil {
			s.Logger.Warn("failed to send typing status", "error", err)
		}
		return false, nil

	default:
		conv := snap.Conversation(snap.SelectedUserID)
		if conv == nil {
			fmt.Println("no conversation open, use /open <userID> first")
			return false, nil
		}
		if err := s.Engine.SendChatMessage(conv.ChatUUID, conv.CounterpartID, line); err != nil {
			s.Logger.Warn("failed to send message", "error", err)
		}
		return false, nil
	}
}

// render prints a compact view of the current conversation state.
func render(snap *domain.Snapshot) {
	fmt.Printf("-- online: %d, conversations: %d\n", len(snap.Online), len(snap.Conversations))
	for _, conv := range snap.Conversations {
		marker := " "
		if conv.CounterpartID == snap.SelectedUserID {
			marker = "*"
		}
		status := "offline"
		if snap.IsOnline(conv.CounterpartID) {
			status = "online"
		}
		if snap.IsTyping(conv.CounterpartID) {
			status += ", typing"
		}
		fmt.Printf("%s %s [%s] unread=%d\n", marker, conv.CounterpartID, status, conv.UnreadCount)
		if n := len(conv.Messages); n > 0 {
			last := conv.Messages[n-1]
			fmt.Printf("    %s: %s\n", last.SenderID, last.Content)
		}
	}
}
