package handler

import (
	"fmt"
	"strings"

	"warnbot/internal/domain"
)

// Button labels. The reply keyboards echo these back as plain text, so the
// router matches on them verbatim.
const (
	btnSettings = "Einstellungen"
	btnWarnings = "Warnungen"
	btnTips     = "Notfalltipps"
	btnHelp     = "Hilfe"

	btnAutoWarning   = "Automatische Warnungen"
	btnSuggestPlace  = "Ort vormerken"
	btnSubscriptions = "Abonnements"

	btnShowSubs   = "Aktuelle Abos anzeigen"
	btnAddSub     = "Abo hinzufügen"
	btnDeleteSub  = "Abo löschen"
	btnBackToMain = "Zurück zum Hauptmenü"

	btnSendLocation = "Standort senden"
	btnCancel       = "Abbrechen"
	btnYes          = "Ja"
	btnNo           = "Nein"
)

// categoryLabels maps categories onto their user-facing names.
var categoryLabels = map[domain.WarningCategory]string{
	domain.CategoryWeather: "Wetter (DWD)",
	domain.CategoryFlood:   "Hochwasser",
	domain.CategoryBiwapp:  "BIWAPP",
	domain.CategoryKatwarn: "KATWARN",
	domain.CategoryMowas:   "MoWaS",
	domain.CategoryPolice:  "Polizei",
}

func categoryLabel(c domain.WarningCategory) string {
	if l, ok := categoryLabels[c]; ok {
		return l
	}
	return string(c)
}

const (
	textGreeting = "Willkommen beim Warnbot! Ich benachrichtige dich über aktuelle " +
		"Katastrophenschutz- und Wetterwarnungen. Wähle unten eine Option aus."
	textMainMenu         = "Du bist im Hauptmenü."
	textSettings         = "Einstellungen: Was möchtest du ändern?"
	textWarningsMenu     = "Welche Warnungen möchtest du abrufen?"
	textTips             = "Notfalltipps sind noch in Arbeit."
	textHelp             = "Nutze die Tasten unten, um Warnungen abzurufen oder Abos zu verwalten."
	textSubscriptionMenu = "Was möchtest du tun?"
	textAskAutoWarning   = "Möchtest du automatische Warnungen erhalten?"
	textAutoWarnOn       = "Automatische Warnungen sind jetzt aktiviert."
	textAutoWarnOff      = "Automatische Warnungen sind jetzt deaktiviert."
	textAskSuggestion    = "Gib einen Ort ein oder sende deinen Standort."
	textAskSubLocation   = "Für welchen Ort möchtest du ein Abo anlegen? " +
		"Gib den Ort ein oder wähle einen Vorschlag."
	textQuickPicks       = "Vorschläge:"
	textNoSubscriptions  = "Du hast keine Abonnements."
	textAskDeleteSub     = "Wähle das Abonnement aus, das du entfernen möchtest."
	textNotImplemented   = "Das kenne ich noch nicht. Nutze die Tasten unten."
	textIncompleteCmd    = "Unvollständiger Befehl. Bitte starte den Vorgang neu."
	textWizardExpired    = "Der Vorgang ist abgelaufen. Bitte starte ihn neu."
	textNoActiveWarnings = "Aktuell liegen keine Warnungen vor."
	textNoLocationShare  = "Die Standortauflösung ist gerade nicht verfügbar. Bitte gib den Ort als Text ein."
)

func textAskCategory(location string) string {
	return fmt.Sprintf("Wähle eine Warnungsart für %s aus:", location)
}

func textAskLevel(location string, category domain.WarningCategory) string {
	return fmt.Sprintf("Wähle eine Warnstufe für %s (%s) aus:", location, categoryLabel(category))
}

func textSubscriptionDeleted(location string, category domain.WarningCategory) string {
	return fmt.Sprintf("Für den Ort %s wurde die Warnung %s entfernt.", location, categoryLabel(category))
}

func textRecommendations(ring []string) string {
	lines := make([]string, 0, len(ring)+1)
	lines = append(lines, "Deine vorgemerkten Orte:")
	for i, loc := range ring {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, loc))
	}
	return strings.Join(lines, "\n")
}

func formatSubscriptions(subs []domain.Subscription) string {
	if len(subs) == 0 {
		return textNoSubscriptions
	}
	var b strings.Builder
	b.WriteString("Deine Abonnements:")
	last := ""
	for _, s := range subs {
		if s.Location != last {
			b.WriteString("\n\n" + s.Location + ":")
			last = s.Location
		}
		fmt.Fprintf(&b, "\n%s -> Stufe %d", categoryLabel(s.Category), s.Level)
	}
	return b.String()
}

// formatWarning renders the short form used for manual listings.
func formatWarning(w domain.Warning) string {
	return fmt.Sprintf("%s\nSchweregrad: %s\nBeginn: %s", w.Title, w.Severity, w.StartDate)
}
