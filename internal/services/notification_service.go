package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"service-dispatch/pkg/mailer"
	"service-dispatch/pkg/telegram"

	"go.uber.org/zap"
)

// Notifier delivers an office notification. An empty to means the
// implementation's default recipients.
type Notifier interface {
	Send(ctx context.Context, to []string, subject, htmlBody string) error
}

type EmailNotifier struct {
	sender    mailer.Sender
	defaultTo []string
}

func NewEmailNotifier(sender mailer.Sender, defaultTo ...string) *EmailNotifier {
	return &EmailNotifier{sender: sender, defaultTo: defaultTo}
}

func (n *EmailNotifier) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if len(to) == 0 {
		to = n.defaultTo
	}
	return n.sender.Send(ctx, to, subject, htmlBody)
}

// TelegramNotifier posts to a single chat. Telegram accepts only a handful of
// HTML tags, so the body is flattened to text under a bold subject line.
type TelegramNotifier struct {
	bot    telegram.ServiceInterface
	chatID int64
}

func NewTelegramNotifier(bot telegram.ServiceInterface, chatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, chatID: chatID}
}

var (
	htmlBreakRegexp = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</h[1-6]>|</li>|<hr\s*/?>`)
	htmlTagRegexp   = regexp.MustCompile(`<[^>]*>`)
	blankLineRegexp = regexp.MustCompile(`\n{3,}`)
)

func (n *TelegramNotifier) Send(ctx context.Context, _ []string, subject, htmlBody string) error {
	text := "<b>" + html.EscapeString(subject) + "</b>\n\n" + FlattenHTML(htmlBody)
	return n.bot.SendMessageEx(ctx, n.chatID, text, telegram.WithHTML(), telegram.WithoutPreview())
}

// FlattenHTML turns block tags into line breaks and drops the rest. Entities
// are kept, which Telegram's HTML mode understands.
func FlattenHTML(body string) string {
	out := htmlBreakRegexp.ReplaceAllString(body, "\n")
	out = htmlTagRegexp.ReplaceAllString(out, "")
	lines := strings.Split(out, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	out = blankLineRegexp.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(out)
}

// LogNotifier writes notifications to the log; used when no channel is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(_ context.Context, to []string, subject, htmlBody string) error {
	n.logger.Info("notification",
		zap.Strings("to", to),
		zap.String("subject", subject),
		zap.String("body", FlattenHTML(htmlBody)),
	)
	return nil
}

// MultiNotifier fans out to every channel and succeeds if at least one did.
type MultiNotifier struct {
	channels []Notifier
	logger   *zap.Logger
}

func NewMultiNotifier(logger *zap.Logger, channels ...Notifier) *MultiNotifier {
	return &MultiNotifier{channels: channels, logger: logger}
}

func (n *MultiNotifier) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if len(n.channels) == 0 {
		return errors.New("no notification channels configured")
	}
	var errs []error
	for i, ch := range n.channels {
		if err := ch.Send(ctx, to, subject, htmlBody); err != nil {
			n.logger.Warn("notification channel failed", zap.Int("channel", i), zap.String("type", fmt.Sprintf("%T", ch)), zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) == len(n.channels) {
		return fmt.Errorf("all notification channels failed: %w", errors.Join(errs...))
	}
	return nil
}
