// Package telegram exposes the tracker as a single-user Telegram bot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"calorie-tracker/internal/advisor"
	"calorie-tracker/internal/app"
	"calorie-tracker/internal/food"
	"calorie-tracker/internal/imagehost"
	"calorie-tracker/internal/logging"
	"calorie-tracker/internal/metrics"
	"calorie-tracker/internal/recognition"
	"calorie-tracker/internal/report"

	"cloud.google.com/go/civil"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	sessionTTL      = 2 * time.Hour
	cleanupInterval = 10 * time.Minute
	pollTimeout     = 30
	usageDays       = 7
)

// API is the subset of tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot routes updates from the allowed user to the tracker, the assistant
// and the photo pipeline.
type Bot struct {
	api         API
	app         *app.App
	allowUserID int64
	logger      *zap.Logger
	httpClient  *http.Client
	sessions    *SessionStore
}

// NewBot authorizes against the Bot API.
func NewBot(a *app.App, logger *zap.Logger) (*Bot, error) {
	cfg := a.Config()
	if err := cfg.RequireTelegram(); err != nil {
		return nil, err
	}
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger = logging.OrNop(logger)
	logger.Info("authorized on account", zap.String("username", api.Self.UserName))
	return NewWithAPI(api, a, logger), nil
}

// NewWithAPI builds a Bot around an existing API client.
func NewWithAPI(api API, a *app.App, logger *zap.Logger) *Bot {
	logger = logging.OrNop(logger)
	cfg := a.Config()
	return &Bot{
		api:         api,
		app:         a,
		allowUserID: cfg.TelegramAllowUserID,
		logger:      logger,
		httpClient:  &http.Client{Timeout: cfg.HTTPTimeout},
		sessions:    NewSessionStore(sessionTTL),
	}
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	cleanup := time.NewTicker(cleanupInterval)
	defer cleanup.Stop()

	b.logger.Info("listening for updates")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-cleanup.C:
			if n := b.sessions.CleanupExpired(); n > 0 {
				b.logger.Debug("expired idle sessions", zap.Int("count", n))
			}
		case update, ok := <-updates:
			if !ok {
				return errors.New("update channel closed")
			}
			go b.HandleUpdate(ctx, update)
		}
	}
}

// HandleUpdate processes a single update. Updates from anyone other than the
// allowed user are dropped.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		if !b.allowed(update.CallbackQuery.From) {
			return
		}
		b.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}

	msg := update.Message
	if msg == nil {
		return
	}
	if !b.allowed(msg.From) {
		return
	}

	switch {
	case msg.IsCommand():
		b.handleCommand(ctx, msg)
	case len(msg.Photo) > 0:
		largest := msg.Photo[len(msg.Photo)-1]
		b.handlePhoto(ctx, msg, largest.FileID, int64(largest.FileSize), "photo.jpg")
	case msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/"):
		b.handlePhoto(ctx, msg, msg.Document.FileID, int64(msg.Document.FileSize), msg.Document.FileName)
	case strings.TrimSpace(msg.Text) != "":
		b.handleChat(ctx, msg)
	}
}

func (b *Bot) allowed(from *tgbotapi.User) bool {
	if from == nil {
		return false
	}
	if from.ID != b.allowUserID {
		b.logger.Warn("unauthorized access attempt", zap.Int64("user_id", from.ID), zap.String("username", from.UserName))
		return false
	}
	return true
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())
	t := b.app.Tracker()

	switch msg.Command() {
	case "start", "help":
		b.reply(chatID, helpText, nil)
	case "today":
		b.reply(chatID, formatDashboard(t.Stats()), nil)
	case "week":
		b.reply(chatID, formatWeek(t.Stats()), nil)
	case "add":
		entry, err := parseAddArgs(args, t.Today(), b.app.Config().DefaultMeal)
		if err != nil {
			b.reply(chatID, "❌ "+escape(err.Error()), nil)
			return
		}
		added, err := t.Add(ctx, entry)
		if err != nil && added.ID == 0 {
			b.reply(chatID, "❌ "+escape(err.Error()), nil)
			return
		}
		if err != nil {
			b.logger.Error("entry added but not saved", zap.Error(err))
		}
		b.reply(chatID, formatAdded(added)+"\n"+"_"+b.todayLine()+"_", nil)
	case "delete":
		id, err := strconv.ParseInt(strings.TrimPrefix(args, "#"), 10, 64)
		if err != nil {
			b.reply(chatID, "Usage: /delete id", nil)
			return
		}
		removed, err := t.Remove(ctx, id)
		switch {
		case err != nil:
			b.reply(chatID, "⚠️ Entry removed but could not be saved.", nil)
		case !removed:
			b.reply(chatID, fmt.Sprintf("No entry with id %d.", id), nil)
		default:
			b.reply(chatID, fmt.Sprintf("🗑 Deleted entry `#%d`.", id), nil)
		}
	case "history":
		date := t.Today()
		if args != "" {
			d, err := civil.ParseDate(args)
			if err != nil {
				b.reply(chatID, "Usage: /history [YYYY-MM-DD]", nil)
				return
			}
			date = d
		}
		b.reply(chatID, formatEntries(date, t.ListForDate(date)), nil)
	case "goal":
		if args == "" {
			b.reply(chatID, fmt.Sprintf("🎯 Daily goal: *%d* calories", t.Goal()), nil)
			return
		}
		goal, err := strconv.Atoi(args)
		if err == nil {
			err = t.SetGoal(ctx, goal)
		}
		if err != nil {
			b.reply(chatID, "❌ The goal must be a positive whole number of calories.", nil)
			return
		}
		b.reply(chatID, fmt.Sprintf("🎯 Daily goal set to *%d* calories.", goal), nil)
	case "foods":
		b.reply(chatID, formatFoods(food.CommonFoods()), nil)
	case "usage", "metrics":
		usage, err := b.app.Usage(ctx, usageDays)
		if err != nil {
			b.logger.Error("failed to fetch usage", zap.Error(err))
			b.reply(chatID, "❌ Error fetching metrics.", nil)
			return
		}
		b.reply(chatID, formatUsage(usage, metrics.ReadHealth(b.app.DataPath())), nil)
	default:
		b.reply(chatID, "Unknown command. Send /start for help.", nil)
	}
}

func (b *Bot) todayLine() string {
	s := b.app.Tracker().Stats()
	return fmt.Sprintf("Today: %d / %d calories. %s", report.Round(s.TodayTotal), s.Goal, report.GoalStatus(s))
}

func (b *Bot) handleChat(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	sess := b.sessions.Get(chatID)

	sess.mu.Lock()
	if sess.conversation == nil {
		adv, err := b.app.Advisor(ctx)
		if err != nil {
			sess.mu.Unlock()
			b.logger.Warn("assistant unavailable", zap.Error(err))
			b.reply(chatID, "💬 The nutrition assistant is not configured.", nil)
			return
		}
		sess.conversation = advisor.NewConversation(adv)
	}
	conv := sess.conversation
	sess.mu.Unlock()

	_, _ = b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	reply, err := conv.Send(ctx, msg.Text, b.app.Snapshot())
	if err != nil {
		b.reply(chatID, "⏳ Still thinking about your last question...", nil)
		return
	}
	// Model replies are free text; send them without a parse mode.
	b.send(tgbotapi.NewMessage(chatID, reply.Text))
}

func (b *Bot) pipeline(ctx context.Context, chatID int64) (*recognition.Pipeline, error) {
	sess := b.sessions.Get(chatID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.pipeline == nil {
		p, err := b.app.NewPipeline(ctx)
		if err != nil {
			return nil, err
		}
		sess.pipeline = p
	}
	return sess.pipeline, nil
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message, fileID string, fileSize int64, name string) {
	chatID := msg.Chat.ID
	p, err := b.pipeline(ctx, chatID)
	if err != nil {
		b.logger.Warn("photo analysis unavailable", zap.Error(err))
		b.reply(chatID, "📷 Photo analysis is not configured.", nil)
		return
	}
	if fileSize > recognition.MaxImageSize {
		b.reply(chatID, "❌ "+recognition.ErrTooLarge.Error(), nil)
		return
	}

	statusID, err := b.reply(chatID, "🔍 *Analyzing photo...*\n(Uploading and asking the AI)", nil)
	if err != nil {
		return
	}

	img, err := b.download(ctx, fileID, name)
	if err != nil {
		b.logger.Error("failed to download photo", zap.Error(err))
		b.edit(chatID, statusID, "❌ Could not download the photo from Telegram.", nil)
		return
	}

	// A caption naming a meal ("dinner") decides where confirmed items go.
	meal, err := food.ParseMealType(strings.TrimSpace(msg.Caption))
	if err != nil {
		meal = ""
	}
	b.sessions.Get(chatID).setMeal(meal)

	items, err := p.Analyze(ctx, img)
	switch {
	case errors.Is(err, recognition.ErrBusy):
		b.edit(chatID, statusID, "⏳ Still analyzing your previous photo.", nil)
		return
	case err != nil:
		b.edit(chatID, statusID, "❌ "+escape(err.Error()), nil)
		return
	}

	if len(items) == 0 {
		_ = p.Reset()
		b.edit(chatID, statusID, formatDetected(items), nil)
		return
	}
	snap := p.Snapshot()
	keyboard := detectedKeyboard(snap.Items, snap.Revision)
	b.edit(chatID, statusID, formatDetected(snap.Items), &keyboard)
}

func (b *Bot) download(ctx context.Context, fileID, name string) (imagehost.Image, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return imagehost.Image{}, fmt.Errorf("failed to resolve file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return imagehost.Image{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return imagehost.Image{}, fmt.Errorf("failed to download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return imagehost.Image{}, fmt.Errorf("failed to download file: status %d", resp.StatusCode)
	}
	// One byte past the limit is enough for the size check to reject it.
	data, err := io.ReadAll(io.LimitReader(resp.Body, recognition.MaxImageSize+1))
	if err != nil {
		return imagehost.Image{}, fmt.Errorf("failed to read file: %w", err)
	}
	return imagehost.FromBytes(name, data), nil
}

// Callback data: "all", "add|<index>", "discard".
// maxButtonLabel is the longest item button label, in characters.
const maxButtonLabel = 60

// staleNotice answers a button whose detected list has since changed.
const staleNotice = "This button is out of date."

// detectedKeyboard offers the detected items as buttons. Callback data
// carries the list revision so a late or repeated tap is refused.
func detectedKeyboard(items []recognition.DetectedItem, revision uint64) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Add all", fmt.Sprintf("all|%d", revision)),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Discard", fmt.Sprintf("discard|%d", revision)),
		),
	}
	for i, it := range items {
		label := truncate(fmt.Sprintf("➕ %s (%d)", it.Name, report.Round(it.TotalCalories)), maxButtonLabel)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("add|%d|%d", revision, i)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// parseCallback splits "action|revision[|index]".
func parseCallback(data string) (action string, revision uint64, index int, ok bool) {
	action, rest, found := strings.Cut(data, "|")
	if !found {
		return "", 0, 0, false
	}
	revText, indexText, hasIndex := strings.Cut(rest, "|")
	revision, err := strconv.ParseUint(revText, 10, 64)
	if err != nil {
		return "", 0, 0, false
	}
	if action != "add" {
		return action, revision, 0, !hasIndex
	}
	if !hasIndex {
		return "", 0, 0, false
	}
	index, err = strconv.Atoi(indexText)
	if err != nil {
		return "", 0, 0, false
	}
	return action, revision, index, true
}

func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// Answer callback to remove spinner
	var notice string
	defer func() { _, _ = b.api.Request(tgbotapi.NewCallback(query.ID, notice)) }()
	if query.Message == nil {
		return
	}
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	action, revision, index, ok := parseCallback(query.Data)
	if !ok {
		notice = staleNotice
		return
	}

	sess := b.sessions.Get(chatID)
	sess.mu.Lock()
	p := sess.pipeline
	meal := sess.meal
	sess.mu.Unlock()
	if p == nil {
		b.edit(chatID, messageID, "This photo has expired. Send it again.", nil)
		return
	}
	if meal == "" {
		meal = b.app.Config().DefaultMeal
	}
	t := b.app.Tracker()
	today := t.Today()

	switch action {
	case "all":
		added, err := p.ConfirmAll(ctx, t, revision, meal, today)
		if errors.Is(err, recognition.ErrStale) {
			notice = staleNotice
			return
		}
		if err != nil {
			b.edit(chatID, messageID, "❌ "+escape(err.Error()), nil)
			return
		}
		b.edit(chatID, messageID, fmt.Sprintf("✅ Added %d items to %s.\n_%s_", len(added), meal.Title(), b.todayLine()), nil)
	case "add":
		added, err := p.ConfirmItem(ctx, t, revision, index, meal, today)
		if errors.Is(err, recognition.ErrStale) {
			notice = staleNotice
			return
		}
		if err != nil {
			b.edit(chatID, messageID, "❌ "+escape(err.Error()), nil)
			return
		}
		snap := p.Snapshot()
		text := formatAdded(added)
		if len(snap.Items) == 0 {
			b.edit(chatID, messageID, text, nil)
			return
		}
		keyboard := detectedKeyboard(snap.Items, snap.Revision)
		b.edit(chatID, messageID, text+"\n\n"+formatDetected(snap.Items), &keyboard)
	case "discard":
		if err := p.Discard(revision); errors.Is(err, recognition.ErrStale) {
			notice = staleNotice
			return
		}
		b.edit(chatID, messageID, "🗑 Discarded detected items.", nil)
	}
}

func (b *Bot) reply(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	return b.send(msg)
}

func (b *Bot) edit(chatID int64, messageID int, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	edit.ReplyMarkup = keyboard
	b.send(edit)
}

func (b *Bot) send(c tgbotapi.Chattable) (int, error) {
	sent, err := b.api.Send(c)
	if err != nil {
		b.logger.Error("failed to send message", zap.Error(err))
		return 0, err
	}
	return sent.MessageID, nil
}
