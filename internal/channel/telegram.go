package channel

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/arifsetiawan/gambot/internal/logger"
	"github.com/arifsetiawan/gambot/internal/router"
)

type telegram struct {
	api    *tgbotapi.BotAPI
	router *router.Router
}

func newTelegram(token string, r *router.Router) (Channel, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return &telegram{api: api, router: r}, nil
}

func (t *telegram) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.api.GetUpdatesChan(u)

	logger.Info("telegram channel started", "bot", t.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil {
				continue
			}

			go t.handleMessage(ctx, update.Message)
		}
	}
}

func (t *telegram) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := fmt.Sprintf("telegram:%d", msg.Chat.ID)

	if msg.IsCommand() {
		t.handleCommand(ctx, userID, msg)
		return
	}

	ev := router.Event{UserID: userID, Text: msg.Text}

	if len(msg.Photo) > 0 {
		// highest-resolution rendition is last
		photo := msg.Photo[len(msg.Photo)-1]

		url, err := t.fileURL(photo.FileID)
		if err != nil {
			logger.Error("failed to resolve photo url", "error", err)
			t.sendText(msg.Chat.ID, msg.MessageID, "Sorry, I couldn't read that image.")
			return
		}

		ev.Media = &router.Attachment{Locator: url}
		ev.Text = msg.Caption
		logger.Info("photo received", "user", userID, "caption", truncate(msg.Caption, 50))
	} else {
		logger.Info("message received", "user", userID, "text", truncate(msg.Text, 50))
	}

	t.sendTyping(msg.Chat.ID)

	reply := t.router.Handle(ctx, ev)
	t.sendReply(msg.Chat.ID, msg.MessageID, reply)
}

func (t *telegram) handleCommand(ctx context.Context, userID string, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		t.sendText(msg.Chat.ID, 0, welcomeText)
	case "status":
		t.sendText(msg.Chat.ID, 0, buildStatus(t.router))
	case "generate":
		args := msg.CommandArguments()
		if args == "" {
			t.sendText(msg.Chat.ID, msg.MessageID, generateUsage)
			return
		}

		t.sendTyping(msg.Chat.ID)

		reply := t.router.Handle(ctx, router.Event{UserID: userID, Text: "generate image " + args})
		t.sendReply(msg.Chat.ID, msg.MessageID, reply)
	default:
		t.sendText(msg.Chat.ID, msg.MessageID, "Unknown command. Try /start.")
	}
}

func (t *telegram) sendReply(chatID int64, replyTo int, reply router.Reply) {
	if reply.Empty() {
		return
	}

	if len(reply.MediaBytes) > 0 {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "image.png", Bytes: reply.MediaBytes})
		photo.Caption = reply.MediaCaption
		if _, err := t.api.Send(photo); err != nil {
			logger.Error("send photo failed", "error", err, "chatID", chatID)
		} else {
			logger.Info("photo sent", "chatID", chatID, "caption", truncate(reply.MediaCaption, 50))
		}
		return
	}

	t.sendText(chatID, replyTo, reply.Text)
}

func (t *telegram) sendText(chatID int64, replyTo int, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if replyTo != 0 {
		msg.ReplyToMessageID = replyTo
	}

	if _, err := t.api.Send(msg); err != nil {
		logger.Error("send failed", "error", err, "chatID", chatID)
	} else {
		logger.Info("reply sent", "chatID", chatID, "chars", len(text))
	}
}

func (t *telegram) sendTyping(chatID int64) {
	if _, err := t.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		logger.Debug("typing action failed", "error", err)
	}
}

// fileURL resolves a Telegram file ID to a direct download URL so the
// locator stays resolvable after this update is gone.
func (t *telegram) fileURL(fileID string) (string, error) {
	file, err := t.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", err
	}

	return file.Link(t.api.Token), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max] + "..."
}
