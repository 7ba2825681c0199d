package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"macro-meal-planner/internal/analysis"
	"macro-meal-planner/internal/catalog"
	"macro-meal-planner/internal/config"
	"macro-meal-planner/internal/metrics"
	"macro-meal-planner/internal/planner"
	"macro-meal-planner/internal/shared"
	"macro-meal-planner/internal/shopping"
)

const (
	defaultMeals   = 3
	maxPhotoBytes  = 10 << 20
	requestTimeout = 2 * time.Minute
	metricsDays    = 7
)

const usageText = "🥗 *Macro Meal Planner*\n\n" +
	"`/plan <kcal> [meals] [r1,r2,...]` builds a daily plan, e.g. `/plan 2000 3 0.3,0.4,0.3`\n" +
	"`/last` shows your most recent plan\n" +
	"Send a photo of a meal to estimate its nutrients."

// botAPI is the subset of *tgbotapi.BotAPI the bot relies on.
type botAPI interface {
	HandleUpdate(r *http.Request) (*tgbotapi.Update, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// PlanStore persists generated plans per user.
type PlanStore interface {
	Save(ctx context.Context, userID string, plan *planner.Plan) (string, error)
	Latest(ctx context.Context, userID string) (*planner.StoredPlan, error)
}

// ShoppingStore persists the shopping list of a saved plan.
type ShoppingStore interface {
	Save(ctx context.Context, list *shopping.ShoppingList) (int64, error)
}

// MealAnalyzer estimates nutrients from a meal photo.
type MealAnalyzer interface {
	Analyze(ctx context.Context, image []byte) (*analysis.Result, error)
}

// MetricsStore records and reports execution metrics.
type MetricsStore interface {
	RecordMeta(meta shared.AgentMeta) error
	GetDailyUsage(days int) ([]metrics.DailyUsage, error)
}

// Deps groups the services the bot talks to. Analyzer and Shopping may be nil.
type Deps struct {
	Planner   *planner.Planner
	Plans     PlanStore
	Shopping  ShoppingStore
	Analyzer  MealAnalyzer
	Metrics   MetricsStore
	Slots     *config.SlotTemplates
	DataPaths []string
	Logger    *zap.SugaredLogger
}

// Bot answers Telegram messages with meal plans and photo analyses.
type Bot struct {
	api        botAPI
	deps       Deps
	cfg        *config.Config
	httpClient *http.Client
	logger     *zap.SugaredLogger
	wg         sync.WaitGroup
}

// NewBot initializes the Telegram Bot and sets the Webhook.
func NewBot(cfg *config.Config, deps Deps) (*Bot, error) {
	if err := cfg.RequireTelegram(); err != nil {
		return nil, err
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	b := newBot(api, cfg, deps)
	b.logger.Infow("Authorized on Telegram", "account", api.Self.UserName)

	wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
	}
	b.logger.Infow("Webhook set", "url", cfg.TelegramWebhookURL, "response", resp.Description)

	return b, nil
}

func newBot(api botAPI, cfg *config.Config, deps Deps) *Bot {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Bot{
		api:        api,
		deps:       deps,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Minute},
		logger:     logger,
	}
}

// HandleWebhook accepts an update from Telegram and processes it in the background.
func (b *Bot) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.logger.Warnw("Error parsing update", "error", err)
		http.Error(w, "bad update", http.StatusBadRequest)
		return
	}

	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	if !b.isAllowed(msg.From.ID) {
		b.logger.Warnw("Unauthorized access attempt", "user_id", msg.From.ID, "username", msg.From.UserName)
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		b.processMessage(ctx, msg)
	}()
}

// Wait blocks until every in-flight message has been answered.
func (b *Bot) Wait() {
	b.wg.Wait()
}

func (b *Bot) isAllowed(userID int64) bool {
	if userID == b.cfg.AdminTelegramID && userID != 0 {
		return true
	}
	for _, id := range b.cfg.TelegramAllowedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg)
		return
	}

	command, args := parseCommand(msg.Text)
	switch command {
	case "plan":
		b.handlePlan(ctx, msg, args)
	case "last":
		b.handleLast(ctx, msg)
	case "metrics":
		b.handleMetricsRequest(msg)
	default:
		b.reply(msg.Chat.ID, usageText)
	}
}

// parseCommand splits "/plan@bot 2000 3" into ("plan", ["2000", "3"]).
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	command := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(command, '@'); at >= 0 {
		command = command[:at]
	}
	return strings.ToLower(command), fields[1:]
}

// parsePlanArgs reads "<kcal> [meals] [r1,r2,...]" into a plan request.
func parsePlanArgs(args []string) (planner.Request, error) {
	req := planner.Request{NumMeals: defaultMeals}
	if len(args) == 0 || len(args) > 3 {
		return req, errors.New("usage: /plan <kcal> [meals] [r1,r2,...]")
	}

	kcal, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return req, fmt.Errorf("invalid calorie target %q", args[0])
	}
	req.DailyCalories = kcal

	if len(args) > 1 {
		meals, err := strconv.Atoi(args[1])
		if err != nil {
			return req, fmt.Errorf("invalid meal count %q", args[1])
		}
		req.NumMeals = meals
	}

	if len(args) > 2 {
		for _, part := range strings.Split(args[2], ",") {
			r, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
			if err != nil {
				return req, fmt.Errorf("invalid ratio %q", part)
			}
			req.CalorieRatios = append(req.CalorieRatios, r)
		}
	}
	return req, nil
}

func (b *Bot) handlePlan(ctx context.Context, msg *tgbotapi.Message, args []string) {
	req, err := parsePlanArgs(args)
	if err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("❌ %s", escapeMarkdown(err.Error())))
		return
	}

	if b.deps.Planner == nil {
		b.reply(msg.Chat.ID, planErrorText(catalog.ErrDataUnavailable))
		return
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	b.logger.Infow("Generating plan", "user_id", userID, "kcal", req.DailyCalories, "meals", req.NumMeals)

	plan, meta, err := b.deps.Planner.GeneratePlanWithMeta(ctx, req)
	b.recordMeta(meta)
	if err != nil {
		b.logger.Warnw("Error generating plan", "user_id", userID, "error", err)
		b.reply(msg.Chat.ID, planErrorText(err))
		if !errors.Is(err, planner.ErrInvalidConfiguration) {
			b.sendAdminAlert(fmt.Sprintf("⚠️ *Planner Failure*\nUser: %s\nError: %s", userID, escapeMarkdown(err.Error())))
		}
		return
	}

	b.savePlan(ctx, userID, plan)

	planText, shoppingText := formatPlanMarkdownParts(plan, b.deps.Slots)
	b.reply(msg.Chat.ID, planText)
	b.reply(msg.Chat.ID, shoppingText)
}

func (b *Bot) savePlan(ctx context.Context, userID string, plan *planner.Plan) {
	if b.deps.Plans == nil {
		return
	}
	planID, err := b.deps.Plans.Save(ctx, userID, plan)
	if err != nil {
		b.logger.Warnw("Failed to save meal plan", "user_id", userID, "error", err)
		return
	}
	if b.deps.Shopping == nil {
		return
	}
	list := &shopping.ShoppingList{UserID: userID, MealPlanID: planID, Items: shopping.FromPlan(plan)}
	if _, err := b.deps.Shopping.Save(ctx, list); err != nil {
		b.logger.Warnw("Failed to save shopping list", "user_id", userID, "plan_id", planID, "error", err)
	}
}

func planErrorText(err error) string {
	var insufficient *planner.InsufficientCatalogError
	switch {
	case errors.Is(err, planner.ErrInvalidConfiguration):
		return fmt.Sprintf("❌ *Invalid request:* %s", escapeMarkdown(err.Error()))
	case errors.As(err, &insufficient):
		return fmt.Sprintf("❌ *Not enough dishes:* only %d of %d meals could be filled.", insufficient.Filled, insufficient.Requested)
	case errors.Is(err, catalog.ErrDataUnavailable):
		return "❌ *Catalog unavailable.* Try again after the next import."
	default:
		safeErr := strings.ReplaceAll(err.Error(), "`", "'")
		return fmt.Sprintf("❌ *Error generating plan:*\n```\n%v\n```", safeErr)
	}
}

func (b *Bot) handleLast(ctx context.Context, msg *tgbotapi.Message) {
	if b.deps.Plans == nil {
		b.reply(msg.Chat.ID, "Plan history is not enabled.")
		return
	}
	userID := strconv.FormatInt(msg.From.ID, 10)
	stored, err := b.deps.Plans.Latest(ctx, userID)
	if errors.Is(err, planner.ErrPlanNotFound) {
		b.reply(msg.Chat.ID, "You have no saved plans yet. Try `/plan 2000`.")
		return
	}
	if err != nil {
		b.logger.Warnw("Failed to load latest plan", "user_id", userID, "error", err)
		b.reply(msg.Chat.ID, "❌ Error loading your last plan.")
		return
	}

	planText, shoppingText := formatPlanMarkdownParts(&stored.Plan, b.deps.Slots)
	b.reply(msg.Chat.ID, fmt.Sprintf("🕘 _Saved %s_\n\n%s", stored.CreatedAt.Format("2006-01-02 15:04"), planText))
	b.reply(msg.Chat.ID, shoppingText)
}

func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	if b.deps.Analyzer == nil {
		b.reply(msg.Chat.ID, "📷 Photo analysis is not enabled.")
		return
	}

	sent, err := b.api.Send(markdownMessage(msg.Chat.ID, "🔎 *Analyzing your meal...*"))
	if err != nil {
		b.logger.Warnw("Failed to send initial reply", "error", err)
		return
	}

	// Telegram lists photo sizes smallest first.
	photo := msg.Photo[len(msg.Photo)-1]
	image, err := b.downloadFile(ctx, photo.FileID)
	var text string
	if err == nil {
		var res *analysis.Result
		res, err = b.deps.Analyzer.Analyze(ctx, image)
		if err == nil {
			text = formatAnalysisMarkdown(res)
		}
	}
	if err != nil {
		b.logger.Warnw("Error analyzing photo", "user_id", msg.From.ID, "error", err)
		safeErr := strings.ReplaceAll(err.Error(), "`", "'")
		text = fmt.Sprintf("❌ *Error analyzing photo:*\n```\n%v\n```", safeErr)
	}

	edit := tgbotapi.NewEditMessageText(msg.Chat.ID, sent.MessageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Warnw("Failed to edit reply", "error", err)
	}
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve file %s: %w", fileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download photo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download photo: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read photo: %w", err)
	}
	return data, nil
}

func (b *Bot) handleMetricsRequest(msg *tgbotapi.Message) {
	if b.cfg.AdminTelegramID == 0 || msg.From.ID != b.cfg.AdminTelegramID {
		b.reply(msg.Chat.ID, "⛔ *Access Denied*: Admin only.")
		return
	}
	if b.deps.Metrics == nil {
		b.reply(msg.Chat.ID, "Metrics are not enabled.")
		return
	}

	usage, err := b.deps.Metrics.GetDailyUsage(metricsDays)
	if err != nil {
		b.logger.Warnw("Error fetching metrics", "error", err)
		b.reply(msg.Chat.ID, "❌ Error fetching metrics.")
		return
	}
	b.reply(msg.Chat.ID, formatMetricsReport(usage, metrics.GetSysHealth(b.deps.DataPaths...)))
}

func (b *Bot) recordMeta(meta shared.AgentMeta) {
	if b.deps.Metrics == nil {
		return
	}
	if err := b.deps.Metrics.RecordMeta(meta); err != nil {
		b.logger.Warnw("Failed to record metrics", "agent", meta.AgentName, "error", err)
	}
}

func (b *Bot) sendAdminAlert(text string) {
	if b.cfg.AdminTelegramID == 0 {
		return
	}
	b.reply(b.cfg.AdminTelegramID, text)
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(markdownMessage(chatID, text)); err != nil {
		b.logger.Warnw("Failed to send message", "chat_id", chatID, "error", err)
	}
}

func markdownMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}
