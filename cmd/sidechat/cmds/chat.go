package cmds

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/sidechat/pkg/background"
	"github.com/go-go-golems/sidechat/pkg/bus"
	"github.com/go-go-golems/sidechat/pkg/conversation"
	"github.com/go-go-golems/sidechat/pkg/gateway"
	"github.com/go-go-golems/sidechat/pkg/pagectx"
	"github.com/go-go-golems/sidechat/pkg/settings"
)

func newChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the model in the active conversation",
		RunE:  runChat,
	}

	cmd.Flags().String("page-url", "", "URL of the page to attach as first-turn context")
	cmd.Flags().String("page-title", "", "Title of the page to attach as first-turn context")
	cmd.Flags().String("page-file", "", "File with the page text to attach as first-turn context")

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	s, repo, manager, err := openManager(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	cfg, err := settings.Load(s)
	if err != nil {
		return err
	}
	if _, err := cfg.APIKey(); err != nil {
		return errors.Wrap(err, "run `sidechat configure` first")
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	b := bus.New()
	defer func() { _ = b.Close() }()

	coordinator := background.NewCoordinator(b)
	go func() {
		_ = coordinator.Run(ctx)
	}()
	<-coordinator.Running()

	provider, err := pageProvider(cmd)
	if err != nil {
		return err
	}

	client := bus.NewClient(b)
	gw := gateway.NewGateway(manager, repo, client, cfg,
		gateway.WithPageProvider(provider))

	notifications, err := client.Notifications(ctx)
	if err != nil {
		return err
	}

	renderConversation(manager.GetCurrentConversation())

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		drainNotifications(notifications, manager)
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/quit":
			return nil
		case line == "/new":
			if _, err := manager.CreateNewConversation(); err != nil {
				return err
			}
			fmt.Println("started a new conversation")
		default:
			result, err := gw.SendMessage(ctx, line, manager.GetCurrentConversation().ID)
			if err != nil {
				fmt.Printf("error: %s\n", err)
			} else {
				fmt.Printf("assistant: %s\n", result.Response)
			}
		}
		fmt.Print("> ")
	}
	return scanner.Err()
}

// drainNotifications applies pending state-sync notifications before the next
// user turn. The manager is only ever touched from this loop's goroutine.
func drainNotifications(notifications <-chan bus.Envelope, manager conversation.Manager) {
	for {
		select {
		case env, ok := <-notifications:
			if !ok {
				return
			}
			switch env.Type {
			case bus.TypeNewPageDetected:
				var payload bus.NewPageDetected
				if err := json.Unmarshal(env.Payload, &payload); err == nil {
					fmt.Printf("(new page detected: %s)\n", payload.Title)
				}
			case bus.TypeResetFirstMessage:
				manager.ResetFirstMessage()
			case bus.TypeUpdateConversationID:
				var payload bus.UpdateConversationID
				if err := json.Unmarshal(env.Payload, &payload); err == nil {
					_ = manager.LoadConversation(payload.ConversationID)
				}
			}
		default:
			return
		}
	}
}

func pageProvider(cmd *cobra.Command) (pagectx.Provider, error) {
	pageURL, _ := cmd.Flags().GetString("page-url")
	pageTitle, _ := cmd.Flags().GetString("page-title")
	pageFile, _ := cmd.Flags().GetString("page-file")

	if pageURL == "" && pageTitle == "" && pageFile == "" {
		return pagectx.NopProvider{}, nil
	}

	content := ""
	if pageFile != "" {
		b, err := os.ReadFile(pageFile)
		if err != nil {
			return nil, errors.Wrap(err, "read page file")
		}
		content = string(b)
	}

	return pagectx.NewStaticProvider(&pagectx.PageContent{
		URL:     pageURL,
		Title:   pageTitle,
		Content: content,
	}), nil
}

func renderConversation(snap conversation.Snapshot) {
	for _, msg := range snap.Messages {
		fmt.Printf("%s: %s\n", msg.Role, msg.Content)
	}
}
