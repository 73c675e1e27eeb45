package handler

import (
	"fmt"
	"strconv"

	"warnbot/internal/domain"

	"github.com/go-telegram/bot/models"
)

func mainKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: btnSettings}},
			{{Text: btnWarnings}},
			{{Text: btnTips}, {Text: btnHelp}},
		},
		ResizeKeyboard: true,
	}
}

func settingsKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: btnAutoWarning}, {Text: btnSuggestPlace}},
			{{Text: btnSubscriptions}},
			{{Text: btnBackToMain}},
		},
		ResizeKeyboard: true,
	}
}

func warningsKeyboard() *models.ReplyKeyboardMarkup {
	rows := make([][]models.KeyboardButton, 0, len(domain.AllCategories())+1)
	for _, c := range domain.AllCategories() {
		rows = append(rows, []models.KeyboardButton{{Text: categoryLabel(c)}})
	}
	rows = append(rows, []models.KeyboardButton{{Text: btnBackToMain}})
	return &models.ReplyKeyboardMarkup{
		Keyboard:        rows,
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
}

func subscriptionsKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: btnShowSubs}},
			{{Text: btnAddSub}, {Text: btnDeleteSub}},
			{{Text: btnBackToMain}},
		},
		ResizeKeyboard: true,
	}
}

func locationKeyboard() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: btnSendLocation, RequestLocation: true}},
			{{Text: btnBackToMain}},
		},
		ResizeKeyboard: true,
	}
}

// autoWarningKeyboard is the inline yes/no/cancel prompt for the opt-in flag.
func autoWarningKeyboard() *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{
			{
				{Text: btnYes, CallbackData: cmdAutoWarn + " on"},
				{Text: btnNo, CallbackData: cmdAutoWarn + " off"},
			},
			{{Text: btnCancel, CallbackData: cmdCancel}},
		},
	}
}

// recommendationKeyboard offers the MRU locations as quick picks for the
// wizard's location step.
func recommendationKeyboard(wizardID string, ring []string) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(ring)+1)
	for _, loc := range ring {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         loc,
			CallbackData: fmt.Sprintf("%s %s %s", cmdSubLocation, wizardID, loc),
		}})
	}
	rows = append(rows, cancelRow(wizardID))
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func categoryKeyboard(wizardID string) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(domain.AllCategories())+1)
	for _, c := range domain.AllCategories() {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         categoryLabel(c),
			CallbackData: fmt.Sprintf("%s %s %s", cmdSubCategory, wizardID, c),
		}})
	}
	rows = append(rows, cancelRow(wizardID))
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func levelKeyboard(wizardID string) *models.InlineKeyboardMarkup {
	row := make([]models.InlineKeyboardButton, 0, maxLevel)
	for lvl := 1; lvl <= maxLevel; lvl++ {
		row = append(row, models.InlineKeyboardButton{
			Text:         strconv.Itoa(lvl),
			CallbackData: fmt.Sprintf("%s %s %d", cmdSubLevel, wizardID, lvl),
		})
	}
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: [][]models.InlineKeyboardButton{row, cancelRow(wizardID)},
	}
}

// deleteKeyboard lists one button per existing subscription. Locations may
// contain spaces, so the payload separates location and category with '|'.
func deleteKeyboard(subs []domain.Subscription) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(subs)+1)
	for _, s := range subs {
		rows = append(rows, []models.InlineKeyboardButton{{
			Text:         fmt.Sprintf("%s: %s (Stufe %d)", s.Location, categoryLabel(s.Category), s.Level),
			CallbackData: fmt.Sprintf("%s %s|%s", cmdSubDelete, s.Location, s.Category),
		}})
	}
	rows = append(rows, []models.InlineKeyboardButton{{Text: btnCancel, CallbackData: cmdCancel}})
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func cancelRow(wizardID string) []models.InlineKeyboardButton {
	return []models.InlineKeyboardButton{{
		Text:         btnCancel,
		CallbackData: fmt.Sprintf("%s %s", cmdWizardCancel, wizardID),
	}}
}
