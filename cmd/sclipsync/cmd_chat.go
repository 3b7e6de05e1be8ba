package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/sclipsync/internal/conn"
	"github.com/user/sclipsync/internal/record"
	"github.com/user/sclipsync/internal/store"
	"github.com/user/sclipsync/internal/types"
)

var chatSession string

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatSession, "session", "", "session id to join (default: a new session)")
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Connect to an agent session and chat interactively",
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	sessionID := types.SessionID(chatSession)
	if sessionID == "" {
		sessionID = types.NewSessionID()
	}

	st := store.New()
	renderer := newRenderer(st, time.Duration(cfg.Typing.SpeedMs)*time.Millisecond,
		time.Duration(cfg.Typing.CursorBlinkMs)*time.Millisecond)

	var rec *record.Recorder
	if cfg.Record {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		rec = record.New(cfg.DataDir)
	}

	backoff := &conn.Backoff{
		InitialDelay: time.Duration(cfg.Reconnect.InitialDelayMs) * time.Millisecond,
		Multiplier:   cfg.Reconnect.Multiplier,
		MaxDelay:     time.Duration(cfg.Reconnect.MaxDelayMs) * time.Millisecond,
		MaxAttempts:  cfg.Reconnect.MaxAttempts,
		Jitter:       cfg.Reconnect.Jitter,
	}

	handler := func(msg types.Message) {
		if rec != nil {
			if err := rec.Append(sessionID, msg); err != nil {
				slog.Warn("record frame", "error", err)
			}
		}
		st.Dispatch(msg)
		renderer.Render(msg)
	}

	mgr := conn.New(cfg.ServerURL, handler,
		conn.WithBackoff(backoff),
		conn.WithQueueSize(cfg.Outbound.QueueSize),
		conn.WithStatusFunc(st.SetConnectionStatus),
		conn.WithErrorFunc(func(err error) { st.SetError(err.Error()) }),
		conn.WithResume(func() types.MessageID { return st.Snapshot().LastMessageID }),
	)
	defer mgr.Close()

	if err := mgr.Connect(sessionID); err != nil {
		slog.Warn("initial connect failed, retrying in background", "error", err)
	}

	fmt.Printf("session %s: type a prompt, /state for a summary, /skip to finish an animation, /quit to exit\n", sessionID)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Println("\nbye")
		mgr.Close()
		renderer.Stop()
		os.Exit(0)
	}()

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			break
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		switch {
		case line == "/quit" || line == "/exit":
			renderer.Stop()
			return nil
		case line == "/skip":
			renderer.Skip()
			continue
		case line == "/state":
			printStateSummary(os.Stdout, st.Snapshot())
			continue
		}

		out := types.NewUserMessage(line)
		if uc := st.Snapshot().UserContext; len(uc.Preferences) > 0 || uc.Style != "" || uc.Tone != "" || uc.Length != "" {
			out.FrontendState = &types.FrontendState{UserContext: uc}
		}
		if err := mgr.Send(out); err != nil {
			fmt.Fprintf(os.Stderr, "send failed: %v\n", err)
		}
	}

	renderer.Stop()
	return nil
}
