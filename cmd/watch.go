package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/chips-fries/st-llm-search-engine-backend/internal/domain"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print the thread events of a session",
		RunE:  runWatch,
	}

	cmd.Flags().String("addr", "ws://localhost:8080/api/ws", "Websocket endpoint")
	cmd.Flags().String("session", "", "Session to watch")
	cmd.Flags().String("thread", "", "Restrict events to one thread")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

// watchURL appends the session and thread query to addr.
func watchURL(addr, sessionID, threadID string) (string, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("invalid addr: %w", err)
	}
	q := u.Query()
	q.Set("session_id", sessionID)
	if threadID != "" {
		q.Set("thread_id", threadID)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func runWatch(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	sessionID, _ := cmd.Flags().GetString("session")
	threadID, _ := cmd.Flags().GetString("thread")

	target, err := watchURL(addr, sessionID, threadID)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
	}()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Watching session %s\n", sessionID)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var event domain.ThreadEvent
		if err := json.Unmarshal(data, &event); err != nil {
			fmt.Fprintf(out, "unreadable event: %s\n", data)
			continue
		}
		formatted, _ := json.MarshalIndent(event, "", "  ")
		fmt.Fprintf(out, "\n[%s] %s\n%s\n", event.Type, event.ThreadID, formatted)
	}
}
