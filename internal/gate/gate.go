package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/botads/botads-go/botads"
	"github.com/botads/botads-go/internal/helpers"
	"golang.org/x/time/rate"
)

// DefaultAdInterval is how long an unlock lasts.
const DefaultAdInterval = 5 * time.Minute

// SkipPrefix starts the callback data of the "Skip" button.
const SkipPrefix = "skip:"

// Texts sent to users.
const (
	TextWelcome       = "Hi! This bot shows how to integrate Botads.\nSend /secret to see the gate in action."
	TextAdPrompt      = "To continue, watch a short ad (5 sec) 👇"
	TextWatchAd       = "Watch ad"
	TextSkip          = "Skip"
	TextSecretDone    = "🎉 Secret action performed without an ad."
	TextPreparingLink = "Preparing an ad link…"
	TextDirectLink    = "Click the ad to get access to the bot 👇\n%s"
	TextLinkFailed    = "😞 Could not get a link. Please try again later."
	TextUnlocked      = "✅ Ad confirmed. You can keep using the bot!\n(%s)"
	TextUnknown       = "Command not recognized. Use /secret."

	ReasonRewarded   = "mini app viewed"
	ReasonDirectLink = "direct link clicked"
)

// Messenger delivers messages to a chat.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	// SendAdPrompt sends text with a "watch" URL button and a "skip" callback button.
	SendAdPrompt(ctx context.Context, chatID int64, text, watchURL, skipData string) (int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// CodeIssuer is satisfied by *botads.Client.
type CodeIssuer interface {
	CreateCode(ctx context.Context, botID, userTgID string) (*botads.CodeResponse, error)
}

// Config holds the gate settings.
type Config struct {
	BotID             string
	MiniAppURL        string
	DirectLinkBaseURL string
	AdInterval        time.Duration
}

type Option func(*Gate)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

// Gate implements the ad wall. Operations on the same user are serialised.
type Gate struct {
	cfg       Config
	store     Store
	messenger Messenger
	issuer    CodeIssuer
	logger    *slog.Logger
	now       func() time.Time
	unhandled *rate.Sometimes

	locks sync.Map
}

// New returns a Gate.
func New(cfg Config, store Store, messenger Messenger, issuer CodeIssuer, opts ...Option) *Gate {
	if cfg.AdInterval <= 0 {
		cfg.AdInterval = DefaultAdInterval
	}
	_inst := &Gate{
		cfg:       cfg,
		store:     store,
		messenger: messenger,
		issuer:    issuer,
		now:       time.Now,
		unhandled: helpers.OnceAMinute(),
	}
	for _, opt := range opts {
		opt(_inst)
	}
	if _inst.logger == nil {
		_inst.logger = helpers.NewNoopLogger()
	}
	return _inst
}

func (g *Gate) lock(userID int64) func() {
	m, _ := g.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// state loads the user, creating it when unknown, and tracks chat changes.
func (g *Gate) state(ctx context.Context, userID, chatID int64) (*UserState, error) {
	s, err := g.store.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return &UserState{UserID: userID, ChatID: chatID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading state of user %d: %w", userID, err)
	}
	if chatID != 0 {
		s.ChatID = chatID
	}
	return s, nil
}

// RequiresAd reports whether the user has to view an ad at this moment.
func (g *Gate) RequiresAd(s *UserState) bool {
	return g.now().Sub(s.LastUnlock) >= g.cfg.AdInterval
}

// HandleStart greets the user and runs the protected action.
func (g *Gate) HandleStart(ctx context.Context, userID, chatID int64) error {
	if _, err := g.messenger.SendText(ctx, chatID, TextWelcome); err != nil {
		return err
	}
	return g.HandleProtected(ctx, userID, chatID)
}

// HandleProtected performs the gated action or asks for an ad.
func (g *Gate) HandleProtected(ctx context.Context, userID, chatID int64) error {
	defer g.lock(userID)()
	s, err := g.state(ctx, userID, chatID)
	if err != nil {
		return err
	}
	if !g.RequiresAd(s) {
		_, err = g.messenger.SendText(ctx, s.ChatID, TextSecretDone)
		return err
	}

	msgID, err := g.messenger.SendAdPrompt(ctx, s.ChatID, TextAdPrompt, g.miniAppURL(userID), SkipPrefix+strconv.FormatInt(s.ChatID, 10))
	if err != nil {
		return err
	}
	s.AdMessageIDs = append(s.AdMessageIDs, msgID)
	s.PendingMode = PendingRewarded
	g.logger.Info("requested ad", slog.Int64("userID", userID))
	return g.store.Save(ctx, s)
}

func (g *Gate) miniAppURL(userID int64) string {
	id := strconv.FormatInt(userID, 10)
	u, err := url.Parse(g.cfg.MiniAppURL)
	if err != nil {
		return g.cfg.MiniAppURL + "?user_tg_id=" + id
	}
	q := u.Query()
	q.Set("user_tg_id", id)
	u.RawQuery = q.Encode()
	return u.String()
}

// HandleSkip answers the skip button with a direct link.
func (g *Gate) HandleSkip(ctx context.Context, callbackID string, userID, chatID int64) error {
	if err := g.messenger.AnswerCallback(ctx, callbackID, TextPreparingLink); err != nil {
		g.logger.Warn("failed to answer callback", slog.Any("error", err))
	}

	defer g.lock(userID)()
	s, err := g.state(ctx, userID, chatID)
	if err != nil {
		return err
	}

	code, err := g.issuer.CreateCode(ctx, g.cfg.BotID, strconv.FormatInt(userID, 10))
	if err != nil {
		g.logger.Error("failed to fetch direct link code", slog.Int64("userID", userID), slog.Any("error", err))
		_, sendErr := g.messenger.SendText(ctx, s.ChatID, TextLinkFailed)
		return sendErr
	}

	if s.DirectLinkMessageID != 0 {
		if err = g.messenger.DeleteMessage(ctx, s.ChatID, s.DirectLinkMessageID); err != nil {
			g.logger.Debug("previous direct link already gone", slog.Any("error", err))
		}
		s.forgetMessage(s.DirectLinkMessageID)
	}

	link := g.cfg.DirectLinkBaseURL + code.Code
	msgID, err := g.messenger.SendText(ctx, s.ChatID, fmt.Sprintf(TextDirectLink, link))
	if err != nil {
		return err
	}
	s.DirectLinkMessageID = msgID
	s.AdMessageIDs = append(s.AdMessageIDs, msgID)
	s.PendingMode = PendingDirectLink
	g.logger.Info("sent direct link", slog.Int64("userID", userID), slog.String("url", link))
	return g.store.Save(ctx, s)
}

// Unlock opens the gate for a user. Unknown users are ignored.
func (g *Gate) Unlock(ctx context.Context, userID int64, reason string) error {
	defer g.lock(userID)()
	s, err := g.store.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		g.logger.Warn("webhook for unknown user", slog.Int64("userID", userID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading state of user %d: %w", userID, err)
	}

	s.LastUnlock = g.now()
	s.PendingMode = ""
	for _, id := range s.AdMessageIDs {
		if err = g.messenger.DeleteMessage(ctx, s.ChatID, id); err != nil {
			g.logger.Debug("ad message already gone", slog.Int("messageID", id), slog.Any("error", err))
		}
	}
	s.AdMessageIDs = nil
	s.DirectLinkMessageID = 0
	if err = g.store.Save(ctx, s); err != nil {
		return err
	}
	g.logger.Info("unlocked user", slog.Int64("userID", userID), slog.String("reason", reason))
	_, err = g.messenger.SendText(ctx, s.ChatID, fmt.Sprintf(TextUnlocked, reason))
	return err
}

// HandleEvent unlocks users on rewarded and direct_link webhooks.
func (g *Gate) HandleEvent(ctx context.Context, payload *botads.WebhookPayload) error {
	var reason string
	switch payload.Event {
	case botads.EventRewarded:
		reason = ReasonRewarded
	case botads.EventDirectLink:
		reason = ReasonDirectLink
	default:
		g.logger.Debug("unhandled botads event", slog.String("event", payload.Event))
		g.unhandled.Do(func() {
			g.logger.Info("ignoring botads events without a gate action", slog.String("event", payload.Event), slog.String("userTgID", payload.UserTgID))
		})
		return nil
	}

	userID, err := strconv.ParseInt(payload.UserTgID, 10, 64)
	if err != nil {
		g.logger.Warn("webhook with non-numeric user id", slog.String("userTgID", payload.UserTgID))
		return nil
	}
	return g.Unlock(ctx, userID, reason)
}
