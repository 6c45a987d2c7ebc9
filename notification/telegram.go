package notification

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	tb "gopkg.in/tucnak/telebot.v2"

	"github.com/rodrigo-brito/stockwave"
	"github.com/rodrigo-brito/stockwave/exchange"
	"github.com/rodrigo-brito/stockwave/tools/log"
)

const telegramAnalysisTimeout = 5 * time.Minute

// Analyzer is the part of the analyzer the bot commands use.
type Analyzer interface {
	Analyze(ctx context.Context, req stockwave.Request) (*stockwave.Batch, error)
	Indicators(ctx context.Context, symbol string, start, end time.Time, interval string) (*stockwave.IndicatorReport, error)
}

type sender interface {
	Send(to tb.Recipient, what interface{}, options ...interface{}) (*tb.Message, error)
}

type TelegramSettings struct {
	Token string
	Users []int64
}

type Telegram struct {
	users       []int64
	client      *tb.Bot
	sender      sender
	defaultMenu *tb.ReplyMarkup
	logger      log.Logger
	timeout     time.Duration

	mu       sync.RWMutex
	analyzer Analyzer
}

type TelegramOption func(*Telegram)

func WithTelegramLogger(logger log.Logger) TelegramOption {
	return func(t *Telegram) {
		t.logger = logger
	}
}

// WithAnalysisTimeout bounds the analysis started by a bot command.
func WithAnalysisTimeout(timeout time.Duration) TelegramOption {
	return func(t *Telegram) {
		t.timeout = timeout
	}
}

func NewTelegram(settings TelegramSettings, options ...TelegramOption) (*Telegram, error) {
	menu := &tb.ReplyMarkup{ResizeReplyKeyboard: true}
	poller := &tb.LongPoller{Timeout: 10 * time.Second}

	bot := newTelegram(nil, settings.Users, menu, options...)

	userMiddleware := tb.NewMiddlewarePoller(poller, func(u *tb.Update) bool {
		if u.Message == nil || u.Message.Sender == nil {
			bot.logger.Error("no message, ", u)
			return false
		}
		if bot.allowed(u.Message.Sender.ID) {
			return true
		}
		bot.logger.Error("invalid user, ", u.Message)
		return false
	})

	client, err := tb.NewBot(tb.Settings{
		ParseMode: tb.ModeMarkdown,
		Token:     settings.Token,
		Poller:    userMiddleware,
	})
	if err != nil {
		return nil, err
	}

	var (
		analyzeBtn   = menu.Text("/analyze")
		universesBtn = menu.Text("/universes")
		helpBtn      = menu.Text("/help")
	)

	err = client.SetCommands([]tb.Command{
		{Text: "/help", Description: "Display help instructions"},
		{Text: "/analyze", Description: "Analyze symbols or a universe"},
		{Text: "/indicators", Description: "Latest technical indicators of a symbol"},
		{Text: "/universes", Description: "List the symbol universes"},
	})
	if err != nil {
		return nil, err
	}

	menu.Reply(menu.Row(analyzeBtn, universesBtn, helpBtn))

	bot.client = client
	bot.sender = client

	client.Handle("/help", bot.HelpHandle)
	client.Handle("/analyze", bot.AnalyzeHandle)
	client.Handle("/indicators", bot.IndicatorsHandle)
	client.Handle("/universes", bot.UniversesHandle)

	return bot, nil
}

func newTelegram(s sender, users []int64, menu *tb.ReplyMarkup, options ...TelegramOption) *Telegram {
	bot := &Telegram{
		users:       users,
		sender:      s,
		defaultMenu: menu,
		timeout:     telegramAnalysisTimeout,
	}
	for _, option := range options {
		option(bot)
	}
	bot.logger = log.OrDiscard(bot.logger)
	return bot
}

// Attach sets the analyzer that serves the bot commands. The analyzer
// usually notifies through the bot itself, so it is attached after both
// are built.
func (t *Telegram) Attach(analyzer Analyzer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.analyzer = analyzer
}

func (t *Telegram) currentAnalyzer() Analyzer {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.analyzer
}

func (t *Telegram) allowed(id int64) bool {
	for _, user := range t.users {
		if user == id {
			return true
		}
	}
	return false
}

func (t *Telegram) Start() {
	go t.client.Start()
	for _, id := range t.users {
		_, err := t.sender.Send(&tb.User{ID: id}, "Bot initialized.", t.defaultMenu)
		if err != nil {
			t.logger.Error(err)
		}
	}
}

func (t *Telegram) Notify(text string) {
	for _, user := range t.users {
		_, err := t.sender.Send(&tb.User{ID: user}, text)
		if err != nil {
			t.logger.Error(err)
		}
	}
}

func (t *Telegram) OnError(err error) {
	t.Notify(fmt.Sprintf("🛑 ERROR\n-----\n%s", err))
}

func (t *Telegram) reply(m *tb.Message, text string) {
	_, err := t.sender.Send(m.Sender, text, t.defaultMenu)
	if err != nil {
		t.logger.Error(err)
	}
}

func (t *Telegram) HelpHandle(m *tb.Message) {
	t.reply(m, strings.Join([]string{
		"/analyze AAPL,MSFT - analyze a list of symbols",
		"/analyze dow - analyze every symbol of a universe",
		"/indicators AAPL - latest technical indicators",
		"/universes - list the symbol universes",
	}, "\n"))
}

func (t *Telegram) UniversesHandle(m *tb.Message) {
	lines := make([]string, 0)
	for _, name := range exchange.Universes() {
		symbols, err := exchange.Universe(name)
		if err != nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s: %d symbols", name, len(symbols)))
	}
	t.reply(m, "*UNIVERSES*\n"+strings.Join(lines, "\n"))
}

func (t *Telegram) AnalyzeHandle(m *tb.Message) {
	analyzer := t.currentAnalyzer()
	if analyzer == nil {
		t.reply(m, "Analysis is not available.")
		return
	}

	payload := strings.TrimSpace(m.Payload)
	if payload == "" {
		t.reply(m, "Usage: /analyze AAPL,MSFT or /analyze dow")
		return
	}

	req := stockwave.Request{Symbols: stockwave.ParseSymbols(payload)}
	if _, err := exchange.Universe(payload); err == nil {
		req = stockwave.Request{Universe: payload}
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	batch, err := analyzer.Analyze(ctx, req)
	if err != nil {
		t.reply(m, fmt.Sprintf("Analysis failed: %s", err))
		return
	}
	t.reply(m, batchMessage(batch))
}

func (t *Telegram) IndicatorsHandle(m *tb.Message) {
	analyzer := t.currentAnalyzer()
	if analyzer == nil {
		t.reply(m, "Analysis is not available.")
		return
	}

	symbol := strings.TrimSpace(m.Payload)
	if symbol == "" {
		t.reply(m, "Usage: /indicators AAPL")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	report, err := analyzer.Indicators(ctx, symbol, time.Time{}, time.Time{}, "")
	if err != nil {
		t.reply(m, fmt.Sprintf("Indicators failed: %s", err))
		return
	}

	set := report.Indicators
	t.reply(m, fmt.Sprintf("*%s*\nSMA: %s\nRSI: %s\nMACD: %s (signal %s)\nBands: %s / %s / %s",
		report.Symbol,
		formatValue(set.SMA.Last()),
		formatValue(set.RSI.Last()),
		formatValue(set.MACD.MACD.Last()),
		formatValue(set.MACD.Signal.Last()),
		formatValue(set.Bollinger.Lower.Last()),
		formatValue(set.Bollinger.Middle.Last()),
		formatValue(set.Bollinger.Upper.Last()),
	))
}

func batchMessage(batch *stockwave.Batch) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*BATCH %s*\n", batch.ID)
	for _, symbol := range batch.Symbols() {
		result := batch.Results[symbol]
		fmt.Fprintf(&b, "%s: %d frames, %d links, %d components\n",
			symbol, result.Frames, len(result.Links), result.Components)
	}
	if len(batch.Failures) > 0 {
		fmt.Fprintf(&b, "-----\n%d dropped", len(batch.Failures))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.2f", v)
}
