package handler

import (
	"context"
	"strconv"
	"strings"

	"warnbot/internal/domain"

	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// startAddWizard opens the three-step subscription wizard. The progress lives
// server-side in Redis; the inline payloads only carry the context id plus
// the value picked in that step.
func (h *Handler) startAddWizard(ctx context.Context, chatID int64) {
	wiz := &domain.WizardContext{
		ID:   uuid.NewString(),
		Kind: domain.WizardAddSubscription,
	}
	if err := h.sessions.SaveWizard(ctx, chatID, wiz); err != nil {
		h.logger.Error("failed to save wizard context", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}

	h.transition(ctx, chatID, domain.StateAwaitSubLocation, textAskSubLocation, locationKeyboard())

	ring, err := h.userRepo.GetRecommendations(ctx, chatID)
	if err != nil {
		h.logger.Error("failed to load recommendations", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	if len(ring) > 0 {
		h.send(ctx, chatID, textQuickPicks, recommendationKeyboard(wiz.ID, ring))
	}
}

// wizardLocationInput handles the free-text location for step one. An expired
// context is simply recreated; typing again must always work.
func (h *Handler) wizardLocationInput(ctx context.Context, chatID int64, location string) {
	location = strings.TrimSpace(location)
	if location == "" {
		h.send(ctx, chatID, textAskSubLocation, nil)
		return
	}

	wiz, err := h.sessions.GetWizard(ctx, chatID)
	if err != nil {
		h.logger.Error("failed to load wizard context", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	if wiz == nil {
		wiz = &domain.WizardContext{ID: uuid.NewString(), Kind: domain.WizardAddSubscription}
	}
	wiz.Location = location
	if err := h.sessions.SaveWizard(ctx, chatID, wiz); err != nil {
		h.logger.Error("failed to save wizard context", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}

	if _, err := h.userRepo.PushRecommendation(ctx, chatID, location); err != nil {
		h.logger.Error("failed to push recommendation", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	h.send(ctx, chatID, textAskCategory(location), categoryKeyboard(wiz.ID))
}

// startDelete lists the user's subscriptions as one-tap delete buttons.
func (h *Handler) startDelete(ctx context.Context, chatID int64) {
	subs, err := h.userRepo.ListSubscriptions(ctx, chatID)
	if err != nil {
		h.logger.Error("failed to list subscriptions", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	if len(subs) == 0 {
		h.send(ctx, chatID, textNoSubscriptions, nil)
		return
	}
	h.send(ctx, chatID, textAskDeleteSub, deleteKeyboard(subs))
}

// HandleCallback routes inline keyboard presses.
func (h *Handler) HandleCallback(ctx context.Context, cb *models.CallbackQuery) {
	chatID := cb.From.ID
	if err := h.sender.AnswerCallback(ctx, cb.ID); err != nil {
		h.logger.Debug("failed to answer callback query", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	msgID := 0
	if cb.Message.Message != nil {
		msgID = cb.Message.Message.ID
	}

	cmd, args, _ := strings.Cut(cb.Data, " ")
	switch cmd {
	case cmdCancel:
		h.retireKeyboard(ctx, chatID, msgID)
		h.backToMain(ctx, chatID)
	case cmdAutoWarn:
		h.setAutoWarning(ctx, chatID, msgID, args)
	case cmdWizardCancel:
		h.cancelWizard(ctx, chatID, msgID)
	case cmdSubLocation:
		wizID, location, ok := strings.Cut(args, " ")
		if !ok || location == "" {
			h.send(ctx, chatID, textIncompleteCmd, nil)
			return
		}
		if h.requireWizard(ctx, chatID, wizID) == nil {
			return
		}
		h.wizardLocationInput(ctx, chatID, location)
	case cmdSubCategory:
		h.wizardCategoryPicked(ctx, chatID, args)
	case cmdSubLevel:
		h.wizardLevelPicked(ctx, chatID, msgID, args)
	case cmdSubDelete:
		h.deleteSubscription(ctx, chatID, msgID, args)
	default:
		h.send(ctx, chatID, textNotImplemented, nil)
	}
}

func (h *Handler) setAutoWarning(ctx context.Context, chatID int64, msgID int, args string) {
	var receive bool
	switch args {
	case "on":
		receive = true
	case "off":
		receive = false
	default:
		h.send(ctx, chatID, textIncompleteCmd, nil)
		return
	}

	if err := h.userRepo.SetReceiveWarnings(ctx, chatID, receive); err != nil {
		h.logger.Error("failed to set receive warnings", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	h.retireKeyboard(ctx, chatID, msgID)
	if receive {
		h.send(ctx, chatID, textAutoWarnOn, nil)
	} else {
		h.send(ctx, chatID, textAutoWarnOff, nil)
	}
}

func (h *Handler) cancelWizard(ctx context.Context, chatID int64, msgID int) {
	if err := h.sessions.DeleteWizard(ctx, chatID); err != nil {
		h.logger.Error("failed to delete wizard context", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	h.retireKeyboard(ctx, chatID, msgID)
	h.backToMain(ctx, chatID)
}

func (h *Handler) wizardCategoryPicked(ctx context.Context, chatID int64, args string) {
	wizID, categoryArg, ok := strings.Cut(args, " ")
	if !ok {
		h.send(ctx, chatID, textIncompleteCmd, nil)
		return
	}
	category, ok := domain.ParseCategory(categoryArg)
	if !ok {
		h.send(ctx, chatID, textIncompleteCmd, nil)
		return
	}

	wiz := h.requireWizard(ctx, chatID, wizID)
	if wiz == nil {
		return
	}
	if wiz.Location == "" {
		h.send(ctx, chatID, textIncompleteCmd, nil)
		return
	}

	wiz.Category = category
	if err := h.sessions.SaveWizard(ctx, chatID, wiz); err != nil {
		h.logger.Error("failed to save wizard context", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	h.send(ctx, chatID, textAskLevel(wiz.Location, category), levelKeyboard(wiz.ID))
}

func (h *Handler) wizardLevelPicked(ctx context.Context, chatID int64, msgID int, args string) {
	wizID, levelArg, ok := strings.Cut(args, " ")
	if !ok {
		h.send(ctx, chatID, textIncompleteCmd, nil)
		return
	}
	level, err := strconv.Atoi(levelArg)
	if err != nil || level < 1 || level > maxLevel {
		h.send(ctx, chatID, textIncompleteCmd, nil)
		return
	}

	wiz := h.requireWizard(ctx, chatID, wizID)
	if wiz == nil {
		return
	}
	if wiz.Location == "" || wiz.Category == "" {
		h.send(ctx, chatID, textIncompleteCmd, nil)
		return
	}

	sub := domain.Subscription{Location: wiz.Location, Category: wiz.Category, Level: level}
	if err := h.userRepo.AddSubscription(ctx, chatID, sub); err != nil {
		h.logger.Error("failed to add subscription", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	if err := h.sessions.DeleteWizard(ctx, chatID); err != nil {
		h.logger.Error("failed to delete wizard context", zap.Int64("chat_id", chatID), zap.Error(err))
	}

	h.retireKeyboard(ctx, chatID, msgID)
	h.showSubscriptions(ctx, chatID)
	h.backToMain(ctx, chatID)
}

func (h *Handler) deleteSubscription(ctx context.Context, chatID int64, msgID int, args string) {
	location, categoryArg, ok := strings.Cut(args, "|")
	if !ok || location == "" {
		h.send(ctx, chatID, textIncompleteCmd, nil)
		return
	}
	category, ok := domain.ParseCategory(categoryArg)
	if !ok {
		h.send(ctx, chatID, textIncompleteCmd, nil)
		return
	}

	if err := h.userRepo.DeleteSubscription(ctx, chatID, location, category); err != nil {
		h.logger.Error("failed to delete subscription", zap.Int64("chat_id", chatID), zap.Error(err))
		return
	}
	h.retireKeyboard(ctx, chatID, msgID)
	h.send(ctx, chatID, textSubscriptionDeleted(location, category), nil)
}

// requireWizard loads the chat's wizard context and checks it against the id
// the callback carries. A mismatch means the button belongs to a dead wizard.
func (h *Handler) requireWizard(ctx context.Context, chatID int64, wizardID string) *domain.WizardContext {
	wiz, err := h.sessions.GetWizard(ctx, chatID)
	if err != nil {
		h.logger.Error("failed to load wizard context", zap.Int64("chat_id", chatID), zap.Error(err))
		return nil
	}
	if wiz == nil || wiz.ID != wizardID {
		h.send(ctx, chatID, textWizardExpired, nil)
		return nil
	}
	return wiz
}

func (h *Handler) retireKeyboard(ctx context.Context, chatID int64, msgID int) {
	if msgID == 0 {
		return
	}
	if err := h.sender.DeleteMessage(ctx, chatID, msgID); err != nil {
		h.logger.Debug("failed to delete inline message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
