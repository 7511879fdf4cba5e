package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	authutil "github.com/NordCoder/Recipebox/internal/auth"
	"github.com/NordCoder/Recipebox/internal/domain"
	"github.com/NordCoder/Recipebox/internal/domain/notification"
	"github.com/NordCoder/Recipebox/internal/obs"
	"github.com/NordCoder/Recipebox/internal/services/email-notifier/repo"
)

type Handler struct {
	Accounts      repo.AccountReader
	Store         repo.NotificationRepo
	Out           notification.EmailSender
	Clock         notification.Clock
	VerifyBaseURL string
	Log           *zap.Logger
}

// HandleRegistration sends the verification email for a new account. Accounts
// that are gone, already verified or already mailed are skipped.
func (h *Handler) HandleRegistration(ctx context.Context, ev notification.Registration) error {
	log := obs.WithTrace(ctx, h.logger()).With(zap.String("account_id", ev.AccountID.String()))

	acc, err := h.Accounts.GetByID(ctx, ev.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			mSkipped.WithLabelValues("account_gone").Inc()
			log.Info("notifier.skip", zap.String("reason", "account_gone"))
			return nil
		}
		mErrors.Inc()
		return fmt.Errorf("get account: %w", err)
	}
	if acc.IsVerified {
		mSkipped.WithLabelValues("already_verified").Inc()
		return nil
	}

	sent, err := h.Store.AlreadySent(ctx, acc.ID, notification.TypeVerificationEmail)
	if err != nil {
		mErrors.Inc()
		return fmt.Errorf("list notifications: %w", err)
	}
	if sent {
		mSkipped.WithLabelValues("duplicate").Inc()
		log.Info("notifier.skip", zap.String("reason", "duplicate"))
		return nil
	}

	subject, body := renderVerification(authutil.VerifyLink(h.VerifyBaseURL, ev.VerifyToken), ev.At)
	if err := h.Out.Send(ctx, acc.Email, subject, body); err != nil {
		mErrors.Inc()
		return fmt.Errorf("send email: %w", err)
	}
	mSent.Inc()

	if err := h.Store.Create(ctx, &notification.Notification{
		AccountID: acc.ID,
		Type:      notification.TypeVerificationEmail,
		SentAt:    h.Clock.Now().UTC(),
		Payload:   subject,
	}); err != nil {
		// the mail is out; a missing row only risks one duplicate on redelivery
		log.Warn("notifier.record", zap.Error(err))
	}
	log.Info("notifier.sent")
	return nil
}

func (h *Handler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func renderVerification(link string, at time.Time) (subject, body string) {
	subject = "Confirm your email address"
	body = fmt.Sprintf(
		"Hello!\n\nThanks for signing up on %s.\nOpen this link to confirm your address:\n\n%s\n\nIf you did not create an account, ignore this message.\n\nRecipebox",
		at.UTC().Format("2006-01-02"), link,
	)
	return subject, body
}
