// Package telegram — тонкая обёртка над Bot API для отправки уведомлений.
package telegram

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client отправляет сообщения пользователям от имени бота.
type Client struct {
	api         *tgbotapi.BotAPI
	paymentLink string
	log         *slog.Logger
}

// New авторизует бота по токену.
func New(token, paymentLink string, log *slog.Logger) (*Client, error) {
	const op = "telegram.New"

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Info("telegram bot authorized", slog.String("username", api.Self.UserName))

	return &Client{
		api:         api,
		paymentLink: paymentLink,
		log:         log,
	}, nil
}

// SendMessage отправляет текстовое сообщение с HTML-разметкой.
func (c *Client) SendMessage(chatID int64, text string) error {
	const op = "telegram.SendMessage"

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SendMessageWithPaymentButton отправляет сообщение с кнопкой оплаты подписки.
func (c *Client) SendMessageWithPaymentButton(chatID int64, text string) error {
	const op = "telegram.SendMessageWithPaymentButton"

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("Оформить подписку", c.paymentLink),
		),
	)
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
