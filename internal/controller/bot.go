package controller

import (
	"context"

	"github.com/deskbot-io/deskbot/internal/config"
	"github.com/deskbot-io/deskbot/internal/model"
	"github.com/deskbot-io/deskbot/internal/service"
	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// BotController wires the Telegram transport to the services. It renders
// report strings only; all decisions live in the service layer.
type BotController struct {
	bot      *bot.Bot
	store    service.UserStore
	sessions *service.SessionService
	actions  *service.ActionService
	appCfg   config.AppConfig
	logger   *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	store service.UserStore,
	sessions *service.SessionService,
	actions *service.ActionService,
	appCfg config.AppConfig,
	logger *zap.Logger,
) *BotController {
	return &BotController{
		bot:      botInstance,
		store:    store,
		sessions: sessions,
		actions:  actions,
		appCfg:   appCfg,
		logger:   logger,
	}
}

// RegisterHandlers registers all command handlers.
func (c *BotController) RegisterHandlers() {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.HandleHelp)

	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/connect", bot.MatchTypePrefix, c.HandleConnect)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/code", bot.MatchTypePrefix, c.HandleCode)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/disconnect", bot.MatchTypeExact, c.HandleDisconnect)

	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypeExact, c.intentHandler(model.IntentStatusQuery))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/home", bot.MatchTypeExact, c.intentHandler(model.IntentMarkHome))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/office", bot.MatchTypeExact, c.intentHandler(model.IntentMarkOffice))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/extern", bot.MatchTypeExact, c.intentHandler(model.IntentMarkExternal))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/clear", bot.MatchTypeExact, c.intentHandler(model.IntentMarkNotWorking))

	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/list", bot.MatchTypeExact, c.HandleList)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/remind", bot.MatchTypePrefix, c.HandleRemind)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/timezone", bot.MatchTypePrefix, c.HandleTimezone)
}

// Start runs the long-polling loop until the context is cancelled.
func (c *BotController) Start(ctx context.Context) {
	c.logger.Info("Starting Telegram bot")
	c.bot.Start(ctx)
}

// Send delivers a plain message to the user's chat. Used by the notifier.
func (c *BotController) Send(ctx context.Context, user *model.User, text string) error {
	_, err := c.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: user.ChatID,
		Text:   text,
	})
	return err
}
