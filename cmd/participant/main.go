package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"interviewhub/backend/internal/client"
	"interviewhub/backend/internal/config"
	"interviewhub/backend/internal/logging"
	"interviewhub/backend/internal/models"

	"go.uber.org/zap"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "gateway websocket endpoint")
	token := flag.String("token", os.Getenv("INTERVIEWHUB_TOKEN"), "connection token")
	interviewID := flag.String("interview", "", "interview to join")
	level := flag.String("log-level", "warn", "log level")
	flag.Parse()

	if *token == "" || *interviewID == "" {
		fmt.Fprintln(os.Stderr, "Usage: participant -token <token> -interview <interview_id> [-url ws://host/ws]")
		os.Exit(1)
	}

	logger, err := logging.New(config.LogConfig{Level: *level, Format: "console"})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	session := client.NewSession(client.Options{URL: *url, Token: *token, Logger: logger})
	register(session)

	if err := session.Connect(ctx); err != nil {
		logger.Fatal("connect failed", zap.Error(err))
	}
	defer session.Disconnect()

	joined, err := session.JoinInterview(ctx, *interviewID)
	if err != nil {
		logger.Fatal("join failed", zap.String("interview_id", *interviewID), zap.Error(err))
	}
	fmt.Printf("joined %q (%s), status %s\n", joined.Interview.Title, joined.Interview.RoleTitle, joined.Interview.Status)
	for _, m := range joined.Messages {
		printMessage(m)
	}
	for _, p := range joined.ConnectedUsers {
		fmt.Printf("  online: %s (%s)\n", p.UserID, p.Role)
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			handleLine(session, *interviewID, strings.TrimSpace(line))
		}
	}
}

// handleLine sends a message, or runs a slash command.
func handleLine(s *client.Session, interviewID, line string) {
	var err error
	switch line {
	case "":
		return
	case "/start":
		err = s.StartInterview(interviewID)
	case "/complete":
		err = s.CompleteInterview(interviewID)
	case "/reconnect":
		err = s.Reconnect(context.Background())
	case "/outbox":
		for _, m := range s.Outbox().List() {
			fmt.Printf("  [%s] %s %s\n", m.Status, m.Content, m.Reason)
		}
	default:
		_, err = s.SendMessage(line)
	}
	if err != nil {
		fmt.Printf("! %v\n", err)
	}
}

func register(s *client.Session) {
	s.OnStateChange(func(st client.State) {
		fmt.Printf("* %s\n", st)
		if st == client.StateGivenUp {
			fmt.Println("* type /reconnect to retry")
		}
	})
	s.On(models.EventNewMessage, func(env models.Envelope) {
		var m models.MessagePayload
		if env.Decode(&m) == nil {
			printMessage(m)
		}
	})
	s.On(models.EventAITyping, func(env models.Envelope) {
		var p models.AITypingPayload
		if env.Decode(&p) == nil && p.IsTyping {
			fmt.Println("  AI is typing...")
		}
	})
	s.On(models.EventUserTyping, func(env models.Envelope) {
		var p models.UserTypingPayload
		if env.Decode(&p) == nil && p.IsTyping {
			fmt.Printf("  %s is typing...\n", p.UserID)
		}
	})
	s.On(models.EventUserJoined, func(env models.Envelope) {
		var p models.UserJoinedPayload
		if env.Decode(&p) == nil {
			fmt.Printf("* %s (%s) joined\n", p.UserID, p.UserRole)
		}
	})
	s.On(models.EventUserLeft, func(env models.Envelope) {
		var p models.UserLeftPayload
		if env.Decode(&p) == nil {
			fmt.Printf("* %s left\n", p.UserID)
		}
	})
	s.On(models.EventInterviewStarted, func(models.Envelope) { fmt.Println("* interview started") })
	s.On(models.EventInterviewCompleted, func(models.Envelope) { fmt.Println("* interview completed") })
	s.On(models.EventProfileUpdated, func(env models.Envelope) {
		var p models.ProfileUpdatedPayload
		if env.Decode(&p) == nil {
			fmt.Printf("  profile: %+v skills=%v\n", p.Profile, p.ExtractedSkills)
		}
	})
	s.On(models.EventError, func(env models.Envelope) {
		var p models.ErrorPayload
		if env.Decode(&p) == nil {
			fmt.Printf("! %s: %s\n", p.Code, p.Message)
		}
	})
}

func printMessage(m models.MessagePayload) {
	fmt.Printf("[%s] %s: %s\n", m.Timestamp.Local().Format("15:04:05"), m.Sender, m.Content)
}
