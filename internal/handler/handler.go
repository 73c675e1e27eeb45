package handler

import (
	"context"

	"warnbot/config"
	"warnbot/internal/domain"
	"warnbot/internal/repository"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Callback commands. Payloads are "<command> <args...>"; wizard commands
// carry the context id so a stale keyboard cannot act on a newer wizard.
const (
	cmdSubLocation  = "sub_loc"
	cmdSubCategory  = "sub_cat"
	cmdSubLevel     = "sub_lvl"
	cmdSubDelete    = "sub_del"
	cmdWizardCancel = "wiz_cancel"
	cmdAutoWarn     = "autowarn"
	cmdCancel       = "cancel"
)

// maxLevel is the highest selectable severity threshold.
const maxLevel = 5

// Sender is the slice of the chat transport the handlers need. *bot.Bot
// satisfies it through botSender; tests use an in-memory fake.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	SendChatAction(ctx context.Context, chatID int64) error
	AnswerCallback(ctx context.Context, callbackID string) error
}

// WarningSource is the part of the NINA client the handlers consume.
type WarningSource interface {
	FetchWarnings(ctx context.Context, category domain.WarningCategory) ([]domain.Warning, error)
}

// WizardStore keeps per-chat wizard progress. *repository.SessionRepository
// is the production implementation.
type WizardStore interface {
	SaveWizard(ctx context.Context, chatID int64, w *domain.WizardContext) error
	GetWizard(ctx context.Context, chatID int64) (*domain.WizardContext, error)
	DeleteWizard(ctx context.Context, chatID int64) error
}

// PlaceResolver turns shared coordinates into a location name. Resolution is
// an external collaborator; a nil resolver degrades to asking for text input.
type PlaceResolver interface {
	ResolveCoordinates(ctx context.Context, lat, lon float64) (string, error)
}

type Handler struct {
	logger   *zap.Logger
	cfg      *config.Config
	sender   Sender
	userRepo *repository.UserRepository
	sessions WizardStore
	source   WarningSource
	resolver PlaceResolver
}

func NewHandler(logger *zap.Logger, cfg *config.Config, userRepo *repository.UserRepository, sessions WizardStore, source WarningSource, resolver PlaceResolver) *Handler {
	return &Handler{
		logger:   logger,
		cfg:      cfg,
		userRepo: userRepo,
		sessions: sessions,
		source:   source,
		resolver: resolver,
	}
}

// SetSender wires the transport once the bot exists.
func (h *Handler) SetSender(s Sender) { h.sender = s }

// botSender adapts *bot.Bot to the Sender interface.
type botSender struct {
	b *bot.Bot
}

func NewBotSender(b *bot.Bot) Sender { return &botSender{b: b} }

func (s *botSender) SendMessage(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) (int, error) {
	msg, err := s.b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	})
	if err != nil {
		return 0, err
	}
	return msg.ID, nil
}

func (s *botSender) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	_, err := s.b.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    chatID,
		MessageID: messageID,
	})
	return err
}

func (s *botSender) AnswerCallback(ctx context.Context, callbackID string) error {
	_, err := s.b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
	})
	return err
}

func (s *botSender) SendChatAction(ctx context.Context, chatID int64) error {
	_, err := s.b.SendChatAction(ctx, &bot.SendChatActionParams{
		ChatID: chatID,
		Action: models.ChatActionTyping,
	})
	return err
}

// DefaultHandler receives every update from the bot.
func (h *Handler) DefaultHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	switch {
	case update.CallbackQuery != nil:
		h.HandleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		h.HandleMessage(ctx, update.Message)
	}
}

// HandleMessage routes a plain message through the conversation state machine.
func (h *Handler) HandleMessage(ctx context.Context, msg *models.Message) {
	chatID := msg.Chat.ID

	if msg.Text == "/start" {
		h.start(ctx, chatID)
		return
	}
	if msg.Text == btnBackToMain {
		h.backToMain(ctx, chatID)
		return
	}

	user, err := h.userRepo.GetUser(ctx, chatID)
	if err != nil {
		h.logger.Error("failed to load user", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}

	if !user.State.Valid() {
		// Stored garbage is a data error, not user input. Fail safe to idle.
		h.logger.Error("unknown conversation state, resetting to idle",
			zap.Int64("chat_id", chatID),
			zap.Int("state", int(user.State)),
		)
		h.backToMain(ctx, chatID)
		return
	}

	if msg.Location != nil {
		h.handleLocationShare(ctx, chatID, user.State, msg.Location)
		return
	}

	switch user.State {
	case domain.StateIdle:
		h.handleMainMenu(ctx, chatID, msg.Text)
	case domain.StateSettings:
		h.handleSettingsMenu(ctx, chatID, msg.Text)
	case domain.StateWarnings:
		h.handleWarningsMenu(ctx, chatID, msg.Text)
	case domain.StateSubscriptionsMenu:
		h.handleSubscriptionsMenu(ctx, chatID, msg.Text)
	case domain.StateAwaitSuggestion:
		h.addRecommendation(ctx, chatID, msg.Text)
	case domain.StateAwaitSubLocation:
		h.wizardLocationInput(ctx, chatID, msg.Text)
	case domain.StateTips, domain.StateHelp:
		// tips and help show the main keyboard, so inputs are main-menu inputs
		h.handleMainMenu(ctx, chatID, msg.Text)
	default:
		h.notImplemented(ctx, chatID)
	}
}

func (h *Handler) start(ctx context.Context, chatID int64) {
	if err := h.userRepo.SetState(ctx, chatID, domain.StateIdle); err != nil {
		h.logger.Error("failed to reset state", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	h.send(ctx, chatID, textGreeting, mainKeyboard())
}

func (h *Handler) backToMain(ctx context.Context, chatID int64) {
	if err := h.userRepo.SetState(ctx, chatID, domain.StateIdle); err != nil {
		h.logger.Error("failed to reset state", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	h.send(ctx, chatID, textMainMenu, mainKeyboard())
}

func (h *Handler) handleMainMenu(ctx context.Context, chatID int64, text string) {
	switch text {
	case btnSettings:
		h.transition(ctx, chatID, domain.StateSettings, textSettings, settingsKeyboard())
	case btnWarnings:
		h.transition(ctx, chatID, domain.StateWarnings, textWarningsMenu, warningsKeyboard())
	case btnTips:
		h.transition(ctx, chatID, domain.StateTips, textTips, mainKeyboard())
	case btnHelp:
		h.transition(ctx, chatID, domain.StateHelp, textHelp, mainKeyboard())
	default:
		h.notImplemented(ctx, chatID)
	}
}

func (h *Handler) handleSettingsMenu(ctx context.Context, chatID int64, text string) {
	switch text {
	case btnAutoWarning:
		h.send(ctx, chatID, textAskAutoWarning, autoWarningKeyboard())
	case btnSuggestPlace:
		h.transition(ctx, chatID, domain.StateAwaitSuggestion, textAskSuggestion, locationKeyboard())
	case btnSubscriptions:
		h.transition(ctx, chatID, domain.StateSubscriptionsMenu, textSubscriptionMenu, subscriptionsKeyboard())
	default:
		h.notImplemented(ctx, chatID)
	}
}

func (h *Handler) handleWarningsMenu(ctx context.Context, chatID int64, text string) {
	for _, c := range domain.AllCategories() {
		if text == categoryLabel(c) {
			h.listWarnings(ctx, chatID, c)
			return
		}
	}
	h.notImplemented(ctx, chatID)
}

func (h *Handler) handleSubscriptionsMenu(ctx context.Context, chatID int64, text string) {
	switch text {
	case btnShowSubs:
		h.showSubscriptions(ctx, chatID)
	case btnAddSub:
		h.startAddWizard(ctx, chatID)
	case btnDeleteSub:
		h.startDelete(ctx, chatID)
	default:
		h.notImplemented(ctx, chatID)
	}
}

// listWarnings is the manual per-category query from the warnings menu.
func (h *Handler) listWarnings(ctx context.Context, chatID int64, category domain.WarningCategory) {
	if err := h.sender.SendChatAction(ctx, chatID); err != nil {
		h.logger.Debug("failed to send chat action", zap.Error(err))
	}

	warnings, err := h.source.FetchWarnings(ctx, category)
	if err != nil {
		h.logger.Error("manual warning fetch failed",
			zap.String("category", string(category)),
			zap.Error(err),
		)
		h.send(ctx, chatID, textNoActiveWarnings, warningsKeyboard())
		return
	}
	if len(warnings) == 0 {
		h.send(ctx, chatID, textNoActiveWarnings, warningsKeyboard())
		return
	}
	for _, w := range warnings {
		h.send(ctx, chatID, formatWarning(w), nil)
	}
	h.send(ctx, chatID, textWarningsMenu, warningsKeyboard())
}

func (h *Handler) showSubscriptions(ctx context.Context, chatID int64) {
	subs, err := h.userRepo.ListSubscriptions(ctx, chatID)
	if err != nil {
		h.logger.Error("failed to list subscriptions", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	h.send(ctx, chatID, formatSubscriptions(subs), nil)
}

func (h *Handler) addRecommendation(ctx context.Context, chatID int64, location string) {
	ring, err := h.userRepo.PushRecommendation(ctx, chatID, location)
	if err != nil {
		h.logger.Error("failed to push recommendation", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	h.send(ctx, chatID, textRecommendations(ring), nil)
	h.backToMain(ctx, chatID)
}

func (h *Handler) handleLocationShare(ctx context.Context, chatID int64, state domain.State, loc *models.Location) {
	if h.resolver == nil {
		h.send(ctx, chatID, textNoLocationShare, nil)
		return
	}
	name, err := h.resolver.ResolveCoordinates(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		h.logger.Warn("failed to resolve coordinates", zap.Int64("chat_id", chatID), zap.Error(err))
		h.send(ctx, chatID, textNoLocationShare, nil)
		return
	}
	switch state {
	case domain.StateAwaitSuggestion:
		h.addRecommendation(ctx, chatID, name)
	case domain.StateAwaitSubLocation:
		h.wizardLocationInput(ctx, chatID, name)
	default:
		h.notImplemented(ctx, chatID)
	}
}

func (h *Handler) transition(ctx context.Context, chatID int64, next domain.State, text string, markup models.ReplyMarkup) {
	if err := h.userRepo.SetState(ctx, chatID, next); err != nil {
		h.logger.Error("failed to set state", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	h.send(ctx, chatID, text, markup)
}

func (h *Handler) notImplemented(ctx context.Context, chatID int64) {
	h.send(ctx, chatID, textNotImplemented, nil)
}

// send delivers a message. When it carries an inline keyboard the message id
// is tracked and the previously tracked keyboard message is deleted, so the
// user never faces two live keyboards at once.
func (h *Handler) send(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) {
	msgID, err := h.sender.SendMessage(ctx, chatID, text, markup)
	if err != nil {
		h.logger.Error("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}

	if _, ok := markup.(*models.InlineKeyboardMarkup); !ok {
		return
	}
	prev, err := h.userRepo.SetLastMessageID(ctx, chatID, msgID)
	if err != nil {
		h.logger.Error("failed to track message id", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	if prev != nil {
		if err := h.sender.DeleteMessage(ctx, chatID, *prev); err != nil {
			h.logger.Debug("failed to delete stale keyboard", zap.Int64("chat_id", chatID), zap.Error(err))
		}
	}
}
