package auth

import (
	"context"
	"strings"

	"go.uber.org/zap"

	authutil "github.com/NordCoder/Recipebox/internal/auth"
	"github.com/NordCoder/Recipebox/internal/domain/notification"
	"github.com/NordCoder/Recipebox/internal/obs"
)

var _ notification.RegistrationNotifier = (*LogNotifier)(nil)

// LogNotifier writes the verification link to the log instead of sending mail.
type LogNotifier struct {
	log     *zap.Logger
	baseURL string
}

func NewLogNotifier(log *zap.Logger, verifyBaseURL string) *LogNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogNotifier{log: log, baseURL: strings.TrimRight(verifyBaseURL, "/")}
}

func (n *LogNotifier) NotifyRegistration(ctx context.Context, r notification.Registration) error {
	obs.WithTrace(ctx, n.log).Info("auth.register.verification",
		zap.String("account_id", r.AccountID.String()),
		zap.String("link", authutil.VerifyLink(n.baseURL, r.VerifyToken)))
	return nil
}
