package telegram

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Options struct {
	Token      string
	ChatID     int64
	HTTPClient *http.Client
	Logger     *slog.Logger
	Debug      bool
}

// Deliverer pushes exported strips to a configured Telegram chat. It is an
// optional side channel: the booth works without it.
type Deliverer struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

func New(opts Options) (*Deliverer, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if opts.ChatID == 0 {
		return nil, errors.New("delivery chat id is empty")
	}
	if opts.HTTPClient == nil {
		return nil, errors.New("http client is nil")
	}

	bot, err := tgbotapi.NewBotAPIWithClient(opts.Token, tgbotapi.APIEndpoint, opts.HTTPClient)
	if err != nil {
		return nil, err
	}
	bot.Debug = opts.Debug

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Deliverer{
		bot:    bot,
		chatID: opts.ChatID,
		logger: logger,
	}, nil
}

// SendStrip delivers one exported strip as a photo message.
func (d *Deliverer) SendStrip(name string, data []byte, caption string) error {
	photo := tgbotapi.NewPhoto(d.chatID, tgbotapi.FileBytes{
		Name:  name,
		Bytes: data,
	})
	if caption != "" {
		photo.Caption = truncateByBytes(caption, 1024)
	}

	if _, err := d.bot.Send(photo); err != nil {
		return err
	}
	d.logger.Info("strip delivered", "name", name, "bytes", len(data))
	return nil
}

func truncateByBytes(text string, maxBytes int) string {
	if len(text) <= maxBytes || maxBytes <= 0 {
		return text
	}

	var buf strings.Builder
	buf.Grow(maxBytes)
	for _, r := range text {
		if buf.Len()+len(string(r)) > maxBytes {
			break
		}
		buf.WriteRune(r)
	}
	return buf.String()
}
