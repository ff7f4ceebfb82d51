package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/lborres/kontak/core"
	"github.com/lborres/kontak/pkg/logging"
)

// EmailRelay sends and lists mail through the signed-in user's mailbox.
// Each call is a single upstream request; nothing is retried.
type EmailRelay struct {
	mail     core.MailClient
	history  core.EmailHistoryStorage
	settings core.SettingsStorage
	pageSize int
	now      func() time.Time
}

var _ core.MailHandler = (*EmailRelay)(nil)

func NewEmailRelay(cfg core.MicrosoftConfig, mail core.MailClient, history core.EmailHistoryStorage, settings core.SettingsStorage) *EmailRelay {
	cfg = cfg.WithDefaults()
	return &EmailRelay{
		mail:     mail,
		history:  history,
		settings: settings,
		pageSize: cfg.MailPageSize,
		now:      time.Now,
	}
}

func cleanAddresses(in []string) []string {
	out := make([]string, 0, len(in))
	for _, addr := range in {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// Send delivers the message and keeps a copy in Sent Items. When the user
// records history, an audit row is written after the send; a failed write
// is logged and does not fail the send.
func (r *EmailRelay) Send(ctx context.Context, accessToken, userID string, input core.SendEmailInput) error {
	input.To = cleanAddresses(input.To)
	input.Cc = cleanAddresses(input.Cc)
	input.Bcc = cleanAddresses(input.Bcc)
	input.Subject = strings.TrimSpace(input.Subject)

	if len(input.To)+len(input.Cc)+len(input.Bcc) == 0 {
		return core.ErrRecipientRequired
	}
	if input.Subject == "" {
		return core.ErrSubjectRequired
	}
	for _, a := range input.Attachments {
		if a.Name == "" {
			return goerr.Wrap(core.ErrValidation, "attachment name is required")
		}
	}

	settings, err := r.Settings(ctx, userID)
	if err != nil {
		return err
	}
	if settings.EmailSignature != nil && *settings.EmailSignature != "" {
		input.Body = appendSignature(input.Body, *settings.EmailSignature, input.IsHTML)
	}

	if err := r.mail.SendMail(ctx, accessToken, &input); err != nil {
		return goerr.Wrap(err, "failed to send email", goerr.V("subject", input.Subject))
	}

	logger := logging.From(ctx).With("user_id", userID)
	logger.Info("email sent", "recipients", len(input.To)+len(input.Cc)+len(input.Bcc))

	if r.history == nil || !settings.RecordEmailHistory || userID == "" {
		return nil
	}
	record := &core.EmailRecord{
		UserID:    userID,
		Direction: core.EmailSent,
		Subject:   input.Subject,
		Body:      input.Body,
		IsHTML:    input.IsHTML,
		To:        input.To,
		Cc:        input.Cc,
		Bcc:       input.Bcc,
		ContactID: input.ContactID,
		CreatedAt: r.now(),
	}
	if err := r.history.CreateEmailRecord(ctx, record); err != nil {
		logger.Warn("failed to record email history", "error", err)
	}
	return nil
}

func appendSignature(body, signature string, html bool) string {
	if html {
		return body + "<br><br>" + strings.ReplaceAll(signature, "\n", "<br>")
	}
	return body + "\n\n" + signature
}

// List returns the most recent messages, newest first.
func (r *EmailRelay) List(ctx context.Context, accessToken string, filter core.EmailFilter) ([]core.EmailMessage, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	switch {
	case filter.Top <= 0:
		filter.Top = r.pageSize
	case filter.Top > core.MaxMailPageSize:
		filter.Top = core.MaxMailPageSize
	}

	messages, err := r.mail.ListMessages(ctx, accessToken, filter)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list messages")
	}

	// Search results come back ranked, not by date.
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].ReceivedDateTime.After(messages[j].ReceivedDateTime)
	})
	if len(messages) > filter.Top {
		messages = messages[:filter.Top]
	}
	return messages, nil
}

func (r *EmailRelay) History(ctx context.Context, userID string, limit int) ([]*core.EmailRecord, error) {
	if r.history == nil {
		return []*core.EmailRecord{}, nil
	}
	if limit <= 0 || limit > core.MaxMailPageSize {
		limit = core.MaxMailPageSize
	}
	return r.history.ListEmailRecords(ctx, userID, limit)
}

// Settings returns the stored settings or the defaults when none exist.
func (r *EmailRelay) Settings(ctx context.Context, userID string) (*core.IntegrationSettings, error) {
	if r.settings == nil || userID == "" {
		return core.DefaultIntegrationSettings(userID), nil
	}
	settings, err := r.settings.GetIntegrationSettings(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return core.DefaultIntegrationSettings(userID), nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load integration settings", goerr.V("user_id", userID))
	}
	return settings, nil
}

func (r *EmailRelay) UpdateSettings(ctx context.Context, settings *core.IntegrationSettings) error {
	if settings == nil || settings.UserID == "" {
		return goerr.Wrap(core.ErrValidation, "user id is required")
	}
	if r.settings == nil {
		return core.ErrNotImplemented
	}
	settings.UpdatedAt = r.now()
	return r.settings.UpsertIntegrationSettings(ctx, settings)
}
