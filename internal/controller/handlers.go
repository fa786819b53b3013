package controller

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/deskbot-io/deskbot/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

var weekdayNames = map[string]time.Weekday{
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
}

// resolveUser upserts the user record for the incoming message and applies
// the whitelist. Returns nil when the message should be ignored.
func (c *BotController) resolveUser(ctx context.Context, b *bot.Bot, update *models.Update) *model.User {
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	chatID := update.Message.Chat.ID
	if !c.appCfg.Whitelisted(chatID) {
		c.reply(ctx, b, chatID, "Sorry, you are not on the list for this bot.")
		return nil
	}

	user, err := c.store.GetByChatID(ctx, chatID)
	if err != nil {
		c.logger.Error("Failed to load user", zap.Int64("chat_id", chatID), zap.Error(err))
		c.reply(ctx, b, chatID, "Something went wrong, please try again later.")
		return nil
	}

	if user == nil {
		from := update.Message.From
		user = &model.User{
			ChatID:   chatID,
			Name:     from.FirstName,
			Locale:   from.LanguageCode,
			Timezone: c.appCfg.DefaultTimezone,
		}
		if user.Locale == "" {
			user.Locale = "en"
		}
		if err := c.store.Create(ctx, user); err != nil {
			c.logger.Error("Failed to create user", zap.Int64("chat_id", chatID), zap.Error(err))
			c.reply(ctx, b, chatID, "Something went wrong, please try again later.")
			return nil
		}
		c.logger.Info("New user registered", zap.Int64("user_id", user.ID), zap.Int64("chat_id", chatID))
	}

	return user
}

func (c *BotController) reply(ctx context.Context, b *bot.Bot, chatID int64, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		c.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// HandleStart greets the user and makes sure the record exists.
func (c *BotController) HandleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	user := c.resolveUser(ctx, b, update)
	if user == nil {
		return
	}

	text := fmt.Sprintf(
		"Hi %s! I'm an unofficial bot for BookMyDesk. I can book, check in and "+
			"clear your desk reservations, and remind you of your daily status.\n\n"+
			"Connect your booking account with /connect <email>, then see /help.",
		user.Name,
	)
	c.reply(ctx, b, user.ChatID, text)
}

// HandleHelp lists the available commands.
func (c *BotController) HandleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	user := c.resolveUser(ctx, b, update)
	if user == nil {
		return
	}

	text := "Commands:\n" +
		"/connect <email> - request a login code for your booking account\n" +
		"/code <code> - finish connecting with the emailed code\n" +
		"/disconnect - drop the link to your booking account\n" +
		"/status - your reservations for today\n" +
		"/home - book a home spot for today\n" +
		"/office - check in for your office reservation\n" +
		"/extern - book an external spot and check in\n" +
		"/clear - not working today: check out and clear reservations\n" +
		"/list - upcoming reservations for the next week\n" +
		"/remind <mon..fri> <HH:MM> - set a daily reminder (off to unset)\n" +
		"/timezone <IANA name> - set your timezone"
	c.reply(ctx, b, user.ChatID, text)
}

// HandleConnect requests a one-time login code for the given email.
func (c *BotController) HandleConnect(ctx context.Context, b *bot.Bot, update *models.Update) {
	user := c.resolveUser(ctx, b, update)
	if user == nil {
		return
	}

	args := commandArgs(update.Message.Text)
	if len(args) != 1 || !strings.Contains(args[0], "@") {
		c.reply(ctx, b, user.ChatID, "Usage: /connect <email>")
		return
	}

	if err := c.sessions.RequestLoginCode(ctx, user, args[0]); err != nil {
		c.logger.Warn("Login code request failed", zap.Int64("user_id", user.ID), zap.Error(err))
		c.reply(ctx, b, user.ChatID, "Failed to request a login code. Check the email address and try again.")
		return
	}

	c.reply(ctx, b, user.ChatID, "Check your mailbox for a login code, then send /code <code>.")
}

// HandleCode exchanges the emailed one-time code for a session.
func (c *BotController) HandleCode(ctx context.Context, b *bot.Bot, update *models.Update) {
	user := c.resolveUser(ctx, b, update)
	if user == nil {
		return
	}

	args := commandArgs(update.Message.Text)
	if len(args) != 1 {
		c.reply(ctx, b, user.ChatID, "Usage: /code <code>")
		return
	}

	if _, err := c.sessions.Login(ctx, user, args[0]); err != nil {
		c.logger.Warn("Login failed", zap.Int64("user_id", user.ID), zap.Error(err))
		c.reply(ctx, b, user.ChatID, "That code did not work. Request a fresh one with /connect <email>.")
		return
	}

	c.reply(ctx, b, user.ChatID, "Connected! Try /status, or set reminders with /remind.")
}

// HandleDisconnect logs the user out. Always succeeds locally.
func (c *BotController) HandleDisconnect(ctx context.Context, b *bot.Bot, update *models.Update) {
	user := c.resolveUser(ctx, b, update)
	if user == nil {
		return
	}

	if err := c.sessions.Logout(ctx, user); err != nil {
		c.logger.Error("Logout failed", zap.Int64("user_id", user.ID), zap.Error(err))
		c.reply(ctx, b, user.ChatID, "Something went wrong, please try again later.")
		return
	}

	c.reply(ctx, b, user.ChatID, "Disconnected. Your preferences are kept for when you return.")
}

// intentHandler builds a handler that resolves a fixed intent.
func (c *BotController) intentHandler(intent model.Intent) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		user := c.resolveUser(ctx, b, update)
		if user == nil {
			return
		}

		outcome, err := c.actions.Handle(ctx, user, intent)
		if err != nil {
			c.logger.Error("Intent handling failed",
				zap.Int64("user_id", user.ID),
				zap.String("intent", intent.String()),
				zap.Error(err),
			)
			c.reply(ctx, b, user.ChatID, "Something went wrong, please try again later.")
			return
		}
		if outcome.Empty() {
			return
		}
		c.reply(ctx, b, user.ChatID, outcome.Report())
	}
}

// HandleList shows the upcoming week of reservations.
func (c *BotController) HandleList(ctx context.Context, b *bot.Bot, update *models.Update) {
	user := c.resolveUser(ctx, b, update)
	if user == nil {
		return
	}

	outcome, err := c.actions.ListUpcoming(ctx, user)
	if err != nil {
		c.logger.Error("Listing reservations failed", zap.Int64("user_id", user.ID), zap.Error(err))
		c.reply(ctx, b, user.ChatID, "Something went wrong, please try again later.")
		return
	}
	c.reply(ctx, b, user.ChatID, outcome.Report())
}

// HandleRemind manages the per-weekday reminder times.
func (c *BotController) HandleRemind(ctx context.Context, b *bot.Bot, update *models.Update) {
	user := c.resolveUser(ctx, b, update)
	if user == nil {
		return
	}

	args := commandArgs(update.Message.Text)
	switch {
	case len(args) == 0:
		c.reply(ctx, b, user.ChatID, remindersText(user))
		return

	case len(args) == 2 && strings.EqualFold(args[0], "off"):
		weekday, ok := weekdayNames[strings.ToLower(args[1])]
		if !ok {
			c.reply(ctx, b, user.ChatID, "Usage: /remind off <mon|tue|wed|thu|fri>")
			return
		}
		user.SetReminder(weekday, nil)

	case len(args) == 2:
		weekday, ok := weekdayNames[strings.ToLower(args[0])]
		if !ok {
			c.reply(ctx, b, user.ChatID, "Usage: /remind <mon|tue|wed|thu|fri> <HH:MM>")
			return
		}
		at, err := model.ParseDayTime(args[1])
		if err != nil {
			c.reply(ctx, b, user.ChatID, "That doesn't look like a time. Use HH:MM, e.g. 08:30.")
			return
		}
		user.SetReminder(weekday, &at)

	default:
		c.reply(ctx, b, user.ChatID, "Usage: /remind <mon|tue|wed|thu|fri> <HH:MM>, or /remind off <day>")
		return
	}

	if err := c.store.UpdateReminders(ctx, user); err != nil {
		c.logger.Error("Failed to store reminders", zap.Int64("user_id", user.ID), zap.Error(err))
		c.reply(ctx, b, user.ChatID, "Something went wrong, please try again later.")
		return
	}
	c.reply(ctx, b, user.ChatID, remindersText(user))
}

// HandleTimezone sets the user's IANA timezone.
func (c *BotController) HandleTimezone(ctx context.Context, b *bot.Bot, update *models.Update) {
	user := c.resolveUser(ctx, b, update)
	if user == nil {
		return
	}

	args := commandArgs(update.Message.Text)
	if len(args) != 1 {
		c.reply(ctx, b, user.ChatID, fmt.Sprintf("Your timezone is %s. Change it with /timezone <IANA name>, e.g. /timezone Europe/Amsterdam", user.Timezone))
		return
	}

	if _, err := time.LoadLocation(args[0]); err != nil {
		c.reply(ctx, b, user.ChatID, "Unknown timezone. Use an IANA name like Europe/Amsterdam.")
		return
	}

	user.Timezone = args[0]
	if err := c.store.UpdateProfile(ctx, user); err != nil {
		c.logger.Error("Failed to store timezone", zap.Int64("user_id", user.ID), zap.Error(err))
		c.reply(ctx, b, user.ChatID, "Something went wrong, please try again later.")
		return
	}
	c.reply(ctx, b, user.ChatID, fmt.Sprintf("Timezone set to %s.", user.Timezone))
}

func remindersText(user *model.User) string {
	format := func(d *model.DayTime) string {
		if d == nil {
			return "off"
		}
		return d.String()
	}
	return fmt.Sprintf(
		"Reminders (local time %s):\nMon %s\nTue %s\nWed %s\nThu %s\nFri %s",
		user.Timezone,
		format(user.ReminderMonday),
		format(user.ReminderTuesday),
		format(user.ReminderWednesday),
		format(user.ReminderThursday),
		format(user.ReminderFriday),
	)
}

func commandArgs(text string) []string {
	fields := strings.Fields(text)
	if len(fields) <= 1 {
		return nil
	}
	return fields[1:]
}
