package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/google/uuid"

	"github.com/abdallemo/solveit-engine/internal/config"
)

// Alerts pushes moderation events to a staff Telegram chat. Optional:
// a nil *Alerts is a no-op, and send failures are logged and swallowed.
type Alerts struct {
	bot    *bot.Bot
	chatID int64
}

func NewAlerts(cfg *config.Config) (*Alerts, error) {
	if cfg.AlertBotToken == "" || cfg.AlertChatID == 0 {
		return nil, nil
	}
	b, err := bot.New(cfg.AlertBotToken)
	if err != nil {
		return nil, fmt.Errorf("create alert bot: %w", err)
	}
	return &Alerts{bot: b, chatID: cfg.AlertChatID}, nil
}

func (a *Alerts) DisputeOpened(taskTitle string, disputeID uuid.UUID) {
	a.send(fmt.Sprintf("⚖️ *New Dispute*\n\n*Task:* %s\n*Dispute:* `%s`\n*Time:* %s",
		taskTitle, disputeID, time.Now().Format("2006-01-02 15:04:05")))
}

func (a *Alerts) SolverEvicted(taskID, solverID uuid.UUID) {
	a.send(fmt.Sprintf("⏰ *Deadline Missed*\n\n*Task:* `%s`\n*Solver blocked:* `%s`",
		taskID, solverID))
}

func (a *Alerts) RefundExecuted(disputeID uuid.UUID, amount string) {
	a.send(fmt.Sprintf("💸 *Refund Executed*\n\n*Dispute:* `%s`\n*Amount:* $%s",
		disputeID, amount))
}

func (a *Alerts) send(message string) {
	if a == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.NotifyTimeout)
	defer cancel()

	_, err := a.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    a.chatID,
		Text:      message,
		ParseMode: "Markdown",
	})
	if err != nil {
		slog.Error("failed to send staff alert", "error", err)
	}
}
