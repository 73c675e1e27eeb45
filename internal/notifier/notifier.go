package notifier

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"warnbot/config"
	"warnbot/internal/domain"
	"warnbot/internal/repository"

	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// fetchCooldown is how long a failing category feed is skipped before the
// poller tries it again.
const fetchCooldown = 10 * time.Minute

// messagesPerSecond caps the fan-out rate; Telegram throttles bots that
// broadcast faster than ~30 messages per second.
const messagesPerSecond = 30

// Sender delivers one notification message.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) (int, error)
}

// Source is the part of the NINA client the poller consumes.
type Source interface {
	FetchWarnings(ctx context.Context, category domain.WarningCategory) ([]domain.Warning, error)
	FetchDetails(ctx context.Context, warningID, language string) (*domain.DetailedWarning, error)
}

// CooldownStore tracks which category feeds are backing off after a failure.
// *repository.SessionRepository is the production implementation.
type CooldownStore interface {
	StartCooldown(ctx context.Context, category domain.WarningCategory, ttl time.Duration) (bool, error)
	InCooldown(ctx context.Context, category domain.WarningCategory) (bool, error)
}

// Service polls the warning feeds and pushes matching warnings to
// subscribed chats. A warning id is committed as notified only after the
// message went out, so a crash mid-cycle re-sends instead of losing it.
type Service struct {
	logger   *zap.Logger
	cfg      *config.Config
	sender   Sender
	users    *repository.UserRepository
	sessions CooldownStore
	source   Source
	limiter  *rate.Limiter
}

func NewService(logger *zap.Logger, cfg *config.Config, sender Sender, users *repository.UserRepository, sessions CooldownStore, source Source) *Service {
	return &Service{
		logger:   logger,
		cfg:      cfg,
		sender:   sender,
		users:    users,
		sessions: sessions,
		source:   source,
		limiter:  rate.NewLimiter(messagesPerSecond, messagesPerSecond),
	}
}

// Run executes polling cycles until the context is canceled. The first cycle
// starts immediately.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.Cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cycle(ctx)
		}
	}
}

// Cycle runs one poll-match-dispatch pass. Feed failures are isolated: a
// category that errors is put on cooldown and the rest of the cycle proceeds
// with whatever was fetched.
func (s *Service) Cycle(ctx context.Context) {
	start := time.Now()

	warnings := s.fetchAll(ctx)

	receivers, err := s.users.ListReceivers(ctx)
	if err != nil {
		s.logger.Error("failed to list notification receivers", zap.Error(err))
		return
	}
	if len(receivers) == 0 || len(warnings) == 0 {
		s.logger.Info("polling cycle finished",
			zap.Int("warnings", len(warnings)),
			zap.Int("receivers", len(receivers)),
			zap.Duration("took", time.Since(start)),
		)
		return
	}

	var sent, failed atomic.Int64

	// resolve who gets what before touching the detail endpoint; a cycle
	// where everything is deduped or unsubscribed costs no detail fetches
	pending := make(map[int64][]domain.Warning)
	needed := make(map[string]domain.Warning)
	for _, chatID := range receivers {
		ws, err := s.pendingFor(ctx, chatID, warnings)
		if err != nil {
			s.logger.Error("failed to collect pending warnings",
				zap.Int64("chat_id", chatID), zap.Error(err))
			failed.Add(1)
			continue
		}
		if len(ws) == 0 {
			continue
		}
		pending[chatID] = ws
		for _, w := range ws {
			needed[w.ID] = w
		}
	}

	texts := s.renderAll(ctx, needed)

	var wg sync.WaitGroup
	for chatID, ws := range pending {
		for _, w := range ws {
			wg.Add(1)
			go func(chatID int64, w domain.Warning) {
				defer wg.Done()
				if err := s.dispatch(ctx, chatID, w, texts[w.ID]); err != nil {
					s.logger.Error("failed to deliver warning",
						zap.Int64("chat_id", chatID),
						zap.String("warning_id", w.ID),
						zap.Error(err),
					)
					failed.Add(1)
					return
				}
				sent.Add(1)
			}(chatID, w)
		}
	}
	wg.Wait()

	s.logger.Info("polling cycle finished",
		zap.Int("warnings", len(warnings)),
		zap.Int("receivers", len(receivers)),
		zap.Int64("sent", sent.Load()),
		zap.Int64("failed", failed.Load()),
		zap.Duration("took", time.Since(start)),
	)
}

// fetchAll pulls every category feed concurrently. Categories on cooldown are
// skipped; a fresh failure starts one.
func (s *Service) fetchAll(ctx context.Context) []domain.Warning {
	var mu sync.Mutex
	var warnings []domain.Warning

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(3)
	for _, category := range domain.AllCategories() {
		category := category
		g.Go(func() error {
			cooling, err := s.sessions.InCooldown(ctx, category)
			if err != nil {
				s.logger.Warn("cooldown lookup failed", zap.String("category", string(category)), zap.Error(err))
			} else if cooling {
				s.logger.Debug("category on cooldown", zap.String("category", string(category)))
				return nil
			}

			ws, err := s.source.FetchWarnings(ctx, category)
			if err != nil {
				s.logger.Error("failed to fetch category feed",
					zap.String("category", string(category)), zap.Error(err))
				if _, cerr := s.sessions.StartCooldown(ctx, category, fetchCooldown); cerr != nil {
					s.logger.Warn("failed to start cooldown", zap.String("category", string(category)), zap.Error(cerr))
				}
				return nil
			}

			mu.Lock()
			warnings = append(warnings, ws...)
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	return warnings
}

// renderAll resolves the message text once per pending warning, not once per
// receiver. Detail fetch failures fall back to the short form.
func (s *Service) renderAll(ctx context.Context, warnings map[string]domain.Warning) map[string]string {
	texts := make(map[string]string, len(warnings))
	for id, w := range warnings {
		detail, err := s.source.FetchDetails(ctx, id, "de")
		if err != nil {
			s.logger.Warn("failed to fetch warning details",
				zap.String("warning_id", id), zap.Error(err))
			detail = nil
		}
		texts[id] = formatNotification(w, detail)
	}
	return texts
}

// pendingFor filters the cycle's warnings down to those the chat subscribed
// to and has not been notified about yet.
func (s *Service) pendingFor(ctx context.Context, chatID int64, warnings []domain.Warning) ([]domain.Warning, error) {
	subs, err := s.users.GetSubscriptions(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}
	notified, err := s.users.NotifiedSet(ctx, chatID)
	if err != nil {
		return nil, err
	}

	var pending []domain.Warning
	for _, w := range warnings {
		if _, seen := notified[w.ID]; seen {
			continue
		}
		if Matches(subs, w) {
			pending = append(pending, w)
		}
	}
	return pending, nil
}

func (s *Service) dispatch(ctx context.Context, chatID int64, w domain.Warning, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := s.sender.SendMessage(ctx, chatID, text, nil); err != nil {
		return err
	}
	// mark only after the send succeeded, a failed chat gets retried next cycle
	return s.users.MarkNotified(ctx, chatID, w.ID)
}

// formatNotification renders the push message. Missing detail fields simply
// drop out of the body.
func formatNotification(w domain.Warning, d *domain.DetailedWarning) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ Warnung: %s\n", w.Title)
	fmt.Fprintf(&b, "Schweregrad: %s\n", w.Severity)
	fmt.Fprintf(&b, "Beginn: %s\n", w.StartDate)
	if d == nil {
		return strings.TrimRight(b.String(), "\n")
	}
	if d.Event != "" {
		fmt.Fprintf(&b, "Ereignis: %s\n", d.Event)
	}
	if d.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", d.Description)
	}
	if len(d.Areas) > 0 {
		names := make([]string, 0, len(d.Areas))
		for _, a := range d.Areas {
			names = append(names, a.Description)
		}
		fmt.Fprintf(&b, "\nBetroffene Gebiete: %s\n", strings.Join(names, ", "))
	}
	if d.WarningURL != "" {
		fmt.Fprintf(&b, "\n%s", d.WarningURL)
	}
	return strings.TrimRight(b.String(), "\n")
}
