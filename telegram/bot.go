package telegram

import (
	"context"
	"evroam/entity"
	"evroam/event"
	"evroam/internal"
	"evroam/models"
	"evroam/utility"
	"fmt"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

type Database interface {
	GetSubscriptions() ([]models.UserSubscription, error)
	AddSubscription(subscription *models.UserSubscription) error
	DeleteSubscription(subscription *models.UserSubscription) error
}

type OperatorSource interface {
	Operators() []*entity.Operator
}

// TgBot notifies subscribed chats about operator status changes.
type TgBot struct {
	api       *tgbotapi.BotAPI
	database  Database
	operators OperatorSource
	log       internal.LogHandler

	mu            sync.RWMutex
	subscriptions map[int]models.UserSubscription
	event         chan MessageContent
	send          chan MessageContent
}

type MessageContent struct {
	ChatID     int64
	OperatorId string
	Text       string
}

func NewBot(apiKey string, log internal.LogHandler) (*TgBot, error) {
	api, err := tgbotapi.NewBotAPI(apiKey)
	if err != nil {
		return nil, err
	}
	tgBot := newBot(log)
	tgBot.api = api
	return tgBot, nil
}

func newBot(log internal.LogHandler) *TgBot {
	return &TgBot{
		log:           log,
		subscriptions: make(map[int]models.UserSubscription),
		event:         make(chan MessageContent, 100),
		send:          make(chan MessageContent, 100),
	}
}

// SetDatabase attach database service
func (b *TgBot) SetDatabase(database Database) {
	b.database = database
}

func (b *TgBot) SetOperators(operators OperatorSource) {
	b.operators = operators
}

func (b *TgBot) Name() string {
	return "telegram"
}

// Start loads stored subscriptions and serves the bot until ctx ends.
func (b *TgBot) Start(ctx context.Context) {
	if b.database != nil {
		subscriptions, err := b.database.GetSubscriptions()
		if err != nil {
			b.log.Error("bot: getting subscriptions", err)
		} else {
			b.mu.Lock()
			for _, subscription := range subscriptions {
				b.subscriptions[subscription.UserID] = subscription
			}
			b.mu.Unlock()
		}
	}
	go b.sendPump(ctx)
	go b.eventPump(ctx)
	go b.updatesPump(ctx)
}

func (b *TgBot) updatesPump(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates, err := b.api.GetUpdatesChan(u)
	if err != nil {
		b.log.Error("bot: getting updates", err)
		return
	}
	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()
	for update := range updates {
		if update.Message == nil || !update.Message.IsCommand() {
			continue
		}
		text := b.command(update.Message.From.ID, update.Message.From.UserName, update.Message.Command(), update.Message.CommandArguments())
		if text == "" {
			continue
		}
		select {
		case b.send <- MessageContent{ChatID: update.Message.Chat.ID, Text: text}:
		case <-ctx.Done():
			return
		}
	}
}

// command runs a chat command and returns the reply.
func (b *TgBot) command(userId int, userName, command, args string) string {
	switch command {
	case "start":
		subscription := models.UserSubscription{
			UserID:           userId,
			User:             userName,
			SubscriptionType: "status",
			OperatorId:       strings.TrimSpace(args),
		}
		b.mu.Lock()
		b.subscriptions[userId] = subscription
		b.mu.Unlock()
		if b.database != nil {
			if err := b.database.AddSubscription(&subscription); err != nil {
				b.log.Error("bot: adding subscription", err)
				return fmt.Sprintf("Error adding subscription:\n `%v`", sanitize(err.Error()))
			}
		}
		if subscription.OperatorId != "" {
			return fmt.Sprintf("Hello *%v*, you are now subscribed to updates of `%v`", sanitize(userName), sanitize(subscription.OperatorId))
		}
		return fmt.Sprintf("Hello *%v*, you are now subscribed to updates", sanitize(userName))
	case "stop":
		b.mu.Lock()
		delete(b.subscriptions, userId)
		b.mu.Unlock()
		if b.database != nil {
			if err := b.database.DeleteSubscription(&models.UserSubscription{UserID: userId}); err != nil {
				b.log.Error("bot: deleting subscription", err)
			}
		}
		return "Your subscription has been removed"
	case "status":
		return b.composeStatusMessage()
	}
	return ""
}

func (b *TgBot) eventPump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-b.event:
			for _, chatId := range b.recipients(event.OperatorId) {
				b.sendMessage(chatId, event.Text)
			}
		}
	}
}

func (b *TgBot) recipients(operatorId string) []int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var ids []int64
	for _, subscription := range b.subscriptions {
		if subscription.OperatorId == "" || subscription.OperatorId == operatorId {
			ids = append(ids, int64(subscription.UserID))
		}
	}
	return ids
}

func (b *TgBot) sendPump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-b.send:
			b.sendMessage(event.ChatID, event.Text)
		}
	}
}

// sendMessage common routine to send a message via bot API
func (b *TgBot) sendMessage(id int64, text string) {
	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = "MarkdownV2"
	_, err := b.api.Send(msg)
	if err != nil {
		// maybe error was while parsing, so we can send a message about this error
		msg = tgbotapi.NewMessage(id, fmt.Sprintf("Error: %v", err))
		_, err = b.api.Send(msg)
		if err != nil {
			b.log.Error("bot: sending message", err)
		}
	}
}

// Handle queues a notification for admin and operational status changes.
func (b *TgBot) Handle(ctx context.Context, ev event.Event) error {
	text := composeEventMessage(ev)
	if text == "" {
		return nil
	}
	select {
	case b.event <- MessageContent{OperatorId: string(ev.EntityRef()), Text: text}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func composeEventMessage(ev event.Event) string {
	switch e := ev.(type) {
	case event.AdminStatusChanged:
		return fmt.Sprintf("*%v*: admin status `%v` \\-\\> `%v`\n", sanitize(string(e.Entity)), e.Old.Value(), e.New.Value())
	case event.StatusChanged:
		return fmt.Sprintf("*%v*: status `%v` \\-\\> `%v`\n", sanitize(string(e.Entity)), e.Old.Value(), e.New.Value())
	}
	return ""
}

func (b *TgBot) composeStatusMessage() string {
	msg := "Status info:\n"
	msg += "\n"
	if b.operators != nil {
		now := time.Now()
		for _, op := range b.operators.Operators() {
			admin, status := op.AdminStatus(), op.Status()
			msg += fmt.Sprintf("*%v*: `%v` %v\n", sanitize(string(op.ID())), admin.Value(), sanitize(utility.TimeAgo(admin.AsOf(), now)))
			msg += fmt.Sprintf("`%v` %v\n", status.Value(), sanitize(utility.TimeAgo(status.AsOf(), now)))
			msg += "\n"
		}
	}
	b.mu.RLock()
	msg += fmt.Sprintf("Active subscriptions: %v", len(b.subscriptions))
	b.mu.RUnlock()
	return msg
}

func sanitize(input string) string {
	reservedChars := "\\`*_{}[]()#+-.!|>=~"
	var sanitized strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sanitized.WriteRune('\\')
		}
		sanitized.WriteRune(char)
	}
	return sanitized.String()
}
