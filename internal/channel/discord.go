package channel

import (
	"bytes"
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/arifsetiawan/gambot/internal/logger"
	"github.com/arifsetiawan/gambot/internal/router"
)

type discord struct {
	session *discordgo.Session
	router  *router.Router
	ctx     context.Context
}

func newDiscord(token string, r *router.Router) (Channel, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}

	d := &discord{session: session, router: r}
	session.AddHandler(d.handleMessage)

	return d, nil
}

func (d *discord) Start(ctx context.Context) error {
	d.ctx = ctx

	if err := d.session.Open(); err != nil {
		return err
	}

	logger.Info("discord channel started")

	<-ctx.Done()
	return d.session.Close()
}

func (d *discord) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.ID == s.State.User.ID {
		return
	}

	userID := "discord:" + m.Author.ID

	if m.Content == "/start" {
		d.sendText(m.ChannelID, welcomeText)
		return
	}
	if m.Content == "/status" {
		d.sendText(m.ChannelID, buildStatus(d.router))
		return
	}

	ev := router.Event{UserID: userID, Text: m.Content}

	if len(m.Attachments) > 0 {
		ev.Media = &router.Attachment{Locator: m.Attachments[0].URL}
		logger.Info("attachment received", "user", userID)
	} else {
		logger.Info("message received", "user", userID, "text", truncate(m.Content, 50))
	}

	reply := d.router.Handle(d.ctx, ev)
	d.sendReply(m.ChannelID, reply)
}

func (d *discord) sendReply(channelID string, reply router.Reply) {
	if reply.Empty() {
		return
	}

	if len(reply.MediaBytes) > 0 {
		_, err := d.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
			Content: reply.MediaCaption,
			Files: []*discordgo.File{
				{Name: "image.png", Reader: bytes.NewReader(reply.MediaBytes)},
			},
		})
		if err != nil {
			logger.Error("discord send photo failed", "error", err, "channelID", channelID)
		} else {
			logger.Info("discord photo sent", "channelID", channelID)
		}
		return
	}

	d.sendText(channelID, reply.Text)
}

func (d *discord) sendText(channelID, text string) {
	if _, err := d.session.ChannelMessageSend(channelID, text); err != nil {
		logger.Error("discord send failed", "error", err, "channelID", channelID)
	} else {
		logger.Info("discord message sent", "channelID", channelID, "chars", len(text))
	}
}
