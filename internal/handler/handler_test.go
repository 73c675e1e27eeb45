package handler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"warnbot/config"
	"warnbot/internal/domain"
	"warnbot/internal/repository"
	"warnbot/traits/database"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type sentMessage struct {
	chatID int64
	text   string
	markup models.ReplyMarkup
}

type fakeSender struct {
	sent    []sentMessage
	deleted []int
	nextID  int
}

func (f *fakeSender) SendMessage(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) (int, error) {
	f.nextID++
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text, markup: markup})
	return f.nextID, nil
}

func (f *fakeSender) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	f.deleted = append(f.deleted, messageID)
	return nil
}

func (f *fakeSender) SendChatAction(ctx context.Context, chatID int64) error { return nil }

func (f *fakeSender) AnswerCallback(ctx context.Context, callbackID string) error { return nil }

func (f *fakeSender) lastText(t *testing.T) string {
	t.Helper()
	if len(f.sent) == 0 {
		t.Fatal("no message sent")
	}
	return f.sent[len(f.sent)-1].text
}

type memWizardStore struct {
	wizards map[int64]*domain.WizardContext
}

var _ WizardStore = (*memWizardStore)(nil)

func newMemWizardStore() *memWizardStore {
	return &memWizardStore{wizards: map[int64]*domain.WizardContext{}}
}

func (m *memWizardStore) SaveWizard(ctx context.Context, chatID int64, w *domain.WizardContext) error {
	c := *w
	m.wizards[chatID] = &c
	return nil
}

func (m *memWizardStore) GetWizard(ctx context.Context, chatID int64) (*domain.WizardContext, error) {
	if w, ok := m.wizards[chatID]; ok {
		c := *w
		return &c, nil
	}
	return nil, nil
}

func (m *memWizardStore) DeleteWizard(ctx context.Context, chatID int64) error {
	delete(m.wizards, chatID)
	return nil
}

type fakeWarningSource struct {
	warnings []domain.Warning
	err      error
}

func (f *fakeWarningSource) FetchWarnings(ctx context.Context, category domain.WarningCategory) ([]domain.Warning, error) {
	return f.warnings, f.err
}

type testEnv struct {
	handler *Handler
	sender  *fakeSender
	users   *repository.UserRepository
	wizards *memWizardStore
	source  *fakeWarningSource
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.InitDatabase(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("init database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		sender:  &fakeSender{},
		users:   repository.NewUserRepository(db),
		wizards: newMemWizardStore(),
		source:  &fakeWarningSource{},
	}
	env.handler = NewHandler(zap.NewNop(), &config.Config{}, env.users, env.wizards, env.source, nil)
	env.handler.SetSender(env.sender)
	return env
}

func (e *testEnv) message(chatID int64, text string) {
	e.handler.HandleMessage(context.Background(), &models.Message{
		ID:   1,
		Chat: models.Chat{ID: chatID},
		Text: text,
	})
}

func (e *testEnv) callback(chatID int64, data string) {
	e.handler.HandleCallback(context.Background(), &models.CallbackQuery{
		ID:   "cb1",
		From: models.User{ID: chatID},
		Data: data,
		Message: models.MaybeInaccessibleMessage{
			Message: &models.Message{ID: 500, Chat: models.Chat{ID: chatID}},
		},
	})
}

func (e *testEnv) state(t *testing.T, chatID int64) domain.State {
	t.Helper()
	u, err := e.users.GetUser(context.Background(), chatID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	return u.State
}

func TestStartResetsToMainMenu(t *testing.T) {
	env := newTestEnv(t)
	const chatID = 1

	if err := env.users.SetState(context.Background(), chatID, domain.StateAwaitSubLocation); err != nil {
		t.Fatalf("set state: %v", err)
	}
	env.message(chatID, "/start")

	if got := env.state(t, chatID); got != domain.StateIdle {
		t.Fatalf("state = %d, want idle", got)
	}
	if !strings.Contains(env.sender.lastText(t), "Willkommen") {
		t.Fatalf("expected greeting, got %q", env.sender.lastText(t))
	}
}

func TestMenuNavigation(t *testing.T) {
	env := newTestEnv(t)
	const chatID = 1

	env.message(chatID, btnSettings)
	if got := env.state(t, chatID); got != domain.StateSettings {
		t.Fatalf("state = %d, want settings", got)
	}

	env.message(chatID, btnSubscriptions)
	if got := env.state(t, chatID); got != domain.StateSubscriptionsMenu {
		t.Fatalf("state = %d, want subscriptions menu", got)
	}

	env.message(chatID, btnBackToMain)
	if got := env.state(t, chatID); got != domain.StateIdle {
		t.Fatalf("state = %d, want idle", got)
	}
}

func TestUnknownInputKeepsState(t *testing.T) {
	env := newTestEnv(t)
	const chatID = 1

	env.message(chatID, btnSettings)
	env.message(chatID, "quatsch")

	if got := env.state(t, chatID); got != domain.StateSettings {
		t.Fatalf("state = %d, want settings", got)
	}
	if env.sender.lastText(t) != textNotImplemented {
		t.Fatalf("expected fallback reply, got %q", env.sender.lastText(t))
	}
}

func TestTipsScreenActsAsMainMenu(t *testing.T) {
	env := newTestEnv(t)
	const chatID = 1

	env.message(chatID, btnTips)
	if got := env.state(t, chatID); got != domain.StateTips {
		t.Fatalf("state = %d, want tips", got)
	}

	// unrecognized text replies but must not move the state
	env.message(chatID, "quatsch")
	if env.sender.lastText(t) != textNotImplemented {
		t.Fatalf("expected fallback reply, got %q", env.sender.lastText(t))
	}
	if got := env.state(t, chatID); got != domain.StateTips {
		t.Fatalf("state = %d, want tips unchanged", got)
	}

	// the main keyboard is on screen, so its buttons work directly
	env.message(chatID, btnSettings)
	if got := env.state(t, chatID); got != domain.StateSettings {
		t.Fatalf("state = %d, want settings", got)
	}
}

func TestInvalidStoredStateResets(t *testing.T) {
	env := newTestEnv(t)
	const chatID = 1

	if err := env.users.SetState(context.Background(), chatID, domain.State(99)); err != nil {
		t.Fatalf("set state: %v", err)
	}
	env.message(chatID, "hallo")

	if got := env.state(t, chatID); got != domain.StateIdle {
		t.Fatalf("state = %d, want idle after reset", got)
	}
}

func TestAddSubscriptionWizard(t *testing.T) {
	env := newTestEnv(t)
	const chatID = 1
	ctx := context.Background()

	env.message(chatID, btnSettings)
	env.message(chatID, btnSubscriptions)
	env.message(chatID, btnAddSub)

	if got := env.state(t, chatID); got != domain.StateAwaitSubLocation {
		t.Fatalf("state = %d, want await sub location", got)
	}
	wiz := env.wizards.wizards[chatID]
	if wiz == nil {
		t.Fatal("wizard context not created")
	}

	env.message(chatID, "Bad Homburg")
	wiz = env.wizards.wizards[chatID]
	if wiz.Location != "Bad Homburg" {
		t.Fatalf("location = %q", wiz.Location)
	}
	ring, _ := env.users.GetRecommendations(ctx, chatID)
	if len(ring) != 1 || ring[0] != "Bad Homburg" {
		t.Fatalf("ring = %v", ring)
	}

	env.callback(chatID, cmdSubCategory+" "+wiz.ID+" weather")
	env.callback(chatID, cmdSubLevel+" "+wiz.ID+" 2")

	set, err := env.users.GetSubscriptions(ctx, chatID)
	if err != nil {
		t.Fatalf("get subscriptions: %v", err)
	}
	if set["Bad Homburg"][domain.CategoryWeather] != 2 {
		t.Fatalf("subscriptions = %v", set)
	}
	if env.wizards.wizards[chatID] != nil {
		t.Fatal("wizard context should be gone after commit")
	}
	if got := env.state(t, chatID); got != domain.StateIdle {
		t.Fatalf("state = %d, want idle after commit", got)
	}
}

func TestWizardQuickPickLocation(t *testing.T) {
	env := newTestEnv(t)
	const chatID = 1
	ctx := context.Background()

	if _, err := env.users.PushRecommendation(ctx, chatID, "Berlin"); err != nil {
		t.Fatalf("push recommendation: %v", err)
	}

	env.message(chatID, btnSettings)
	env.message(chatID, btnSubscriptions)
	env.message(chatID, btnAddSub)

	wiz := env.wizards.wizards[chatID]
	env.callback(chatID, cmdSubLocation+" "+wiz.ID+" Berlin")

	wiz = env.wizards.wizards[chatID]
	if wiz.Location != "Berlin" {
		t.Fatalf("location = %q, want Berlin", wiz.Location)
	}
}

func TestStaleWizardCallbackRejected(t *testing.T) {
	env := newTestEnv(t)
	const chatID = 1

	env.message(chatID, btnSettings)
	env.message(chatID, btnSubscriptions)
	env.message(chatID, btnAddSub)
	env.message(chatID, "Berlin")

	env.callback(chatID, cmdSubCategory+" dead-wizard-id weather")

	if env.sender.lastText(t) != textWizardExpired {
		t.Fatalf("expected expiry notice, got %q", env.sender.lastText(t))
	}
	subs, _ := env.users.ListSubscriptions(context.Background(), chatID)
	if len(subs) != 0 {
		t.Fatalf("no subscription should exist, got %v", subs)
	}
}

func TestMalformedCallbackPayload(t *testing.T) {
	env := newTestEnv(t)
	const chatID = 1

	for _, data := range []string{cmdSubLevel, cmdSubCategory + " onlyid", cmdSubDelete + " nopipe", cmdAutoWarn + " maybe"} {
		env.callback(chatID, data)
		if env.sender.lastText(t) != textIncompleteCmd {
			t.Fatalf("payload %q: expected incomplete command reply, got %q", data, env.sender.lastText(t))
		}
	}
}

func TestWizardOutOfOrderLevel(t *testing.T) {
	env := newTestEnv(t)
	const chatID = 1

	env.message(chatID, btnSettings)
	env.message(chatID, btnSubscriptions)
	env.message(chatID, btnAddSub)

	// level arrives before any location was picked
	wiz := env.wizards.wizards[chatID]
	env.callback(chatID, cmdSubLevel+" "+wiz.ID+" 2")

	if env.sender.lastText(t) != textIncompleteCmd {
		t.Fatalf("expected incomplete command reply, got %q", env.sender.lastText(t))
	}
	subs, _ := env.users.ListSubscriptions(context.Background(), chatID)
	if len(subs) != 0 {
		t.Fatalf("no subscription should exist, got %v", subs)
	}
}

func TestWizardCancel(t *testing.T) {
	env := newTestEnv(t)
	const chatID = 1

	env.message(chatID, btnSettings)
	env.message(chatID, btnSubscriptions)
	env.message(chatID, btnAddSub)
	wiz := env.wizards.wizards[chatID]

	env.callback(chatID, cmdWizardCancel+" "+wiz.ID)

	if env.wizards.wizards[chatID] != nil {
		t.Fatal("wizard context should be gone after cancel")
	}
	if got := env.state(t, chatID); got != domain.StateIdle {
		t.Fatalf("state = %d, want idle", got)
	}
}

func TestAutoWarningToggle(t *testing.T) {
	env := newTestEnv(t)
	const chatID = 1
	ctx := context.Background()

	env.callback(chatID, cmdAutoWarn+" off")
	u, _ := env.users.GetUser(ctx, chatID)
	if u.ReceiveWarnings {
		t.Fatal("warnings should be disabled")
	}
	if env.sender.lastText(t) != textAutoWarnOff {
		t.Fatalf("got %q", env.sender.lastText(t))
	}

	env.callback(chatID, cmdAutoWarn+" on")
	u, _ = env.users.GetUser(ctx, chatID)
	if !u.ReceiveWarnings {
		t.Fatal("warnings should be enabled")
	}
}

func TestDeleteSubscriptionCallback(t *testing.T) {
	env := newTestEnv(t)
	const chatID = 1
	ctx := context.Background()

	sub := domain.Subscription{Location: "Bad Homburg", Category: domain.CategoryWeather, Level: 2}
	if err := env.users.AddSubscription(ctx, chatID, sub); err != nil {
		t.Fatalf("add subscription: %v", err)
	}

	env.callback(chatID, cmdSubDelete+" Bad Homburg|weather")

	subs, _ := env.users.ListSubscriptions(ctx, chatID)
	if len(subs) != 0 {
		t.Fatalf("subscription still present: %v", subs)
	}
	if !strings.Contains(env.sender.lastText(t), "entfernt") {
		t.Fatalf("expected confirmation, got %q", env.sender.lastText(t))
	}
}

func TestStaleKeyboardRetired(t *testing.T) {
	env := newTestEnv(t)
	const chatID = 1

	env.message(chatID, btnSettings)
	env.message(chatID, btnAutoWarning)
	first := env.sender.nextID
	env.message(chatID, btnAutoWarning)

	found := false
	for _, id := range env.sender.deleted {
		if id == first {
			found = true
		}
	}
	if !found {
		t.Fatalf("first keyboard message %d was not retired, deleted: %v", first, env.sender.deleted)
	}
}

func TestListWarningsFallsBackOnError(t *testing.T) {
	env := newTestEnv(t)
	const chatID = 1
	env.source.err = errors.New("upstream down")

	env.message(chatID, btnWarnings)
	env.message(chatID, categoryLabel(domain.CategoryWeather))

	if env.sender.lastText(t) != textNoActiveWarnings {
		t.Fatalf("got %q", env.sender.lastText(t))
	}
}

func TestListWarningsRendersEach(t *testing.T) {
	env := newTestEnv(t)
	const chatID = 1
	env.source.warnings = []domain.Warning{
		{ID: "dwd.1", Severity: domain.SeveritySevere, Category: domain.CategoryWeather, Title: "Sturmböen", StartDate: "2025-03-01 10:00"},
	}

	env.message(chatID, btnWarnings)
	env.message(chatID, categoryLabel(domain.CategoryWeather))

	var found bool
	for _, m := range env.sender.sent {
		if strings.Contains(m.text, "Sturmböen") && strings.Contains(m.text, "Severe") {
			found = true
		}
	}
	if !found {
		t.Fatal("warning was not rendered")
	}
}

func TestLocationShareWithoutResolver(t *testing.T) {
	env := newTestEnv(t)
	const chatID = 1

	env.message(chatID, btnSettings)
	env.message(chatID, btnSuggestPlace)

	env.handler.HandleMessage(context.Background(), &models.Message{
		ID:       2,
		Chat:     models.Chat{ID: chatID},
		Location: &models.Location{Latitude: 52.52, Longitude: 13.4},
	})

	if env.sender.lastText(t) != textNoLocationShare {
		t.Fatalf("got %q", env.sender.lastText(t))
	}
}
