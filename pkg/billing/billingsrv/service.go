package billingsrv

import (
	"context"
	"time"

	"github.com/garagelink/drivescan/pkg/billing"
	"github.com/garagelink/drivescan/pkg/config"
	"github.com/garagelink/drivescan/pkg/kernel"
	"github.com/garagelink/drivescan/pkg/logx"
)

// LowCreditNotifier sends the low-balance warning email.
type LowCreditNotifier interface {
	SendLowCredit(ctx context.Context, email, name string, balance int64) error
}

// BillingService implements credit accounting and monthly usage quotas.
type BillingService struct {
	credits  billing.CreditRepository
	quota    billing.QuotaCounter
	notifier LowCreditNotifier
	cfg      config.BillingConfig
	now      func() time.Time
}

// NewBillingService wires the billing service. Notifier may be nil.
func NewBillingService(
	credits billing.CreditRepository,
	quota billing.QuotaCounter,
	notifier LowCreditNotifier,
	cfg config.BillingConfig,
) *BillingService {
	return &BillingService{
		credits:  credits,
		quota:    quota,
		notifier: notifier,
		cfg:      cfg,
		now:      time.Now,
	}
}

// GrantSignupCredits seeds a freshly registered account with the configured
// starting balance.
func (s *BillingService) GrantSignupCredits(ctx context.Context, userID kernel.UserID) error {
	if err := s.credits.EnsureAccount(ctx, userID); err != nil {
		return err
	}
	if s.cfg.SignupCredits <= 0 {
		return nil
	}
	_, err := s.credits.Grant(ctx, userID, s.cfg.SignupCredits, billing.ReasonSignup, nil)
	return err
}

// ConsumeAnalysisCredit charges one credit for an analysis run after the
// actor's monthly quota admits it. The quota counter increments before the
// debit; when the debit then fails the counter stays bumped, which only makes
// quotas stricter, never looser.
func (s *BillingService) ConsumeAnalysisCredit(ctx context.Context, actor *kernel.Actor, ref string) (*billing.Account, error) {
	period := billing.CurrentPeriod(s.now())

	limit := billing.MonthlyQuota(actor.Plan)
	if limit > 0 {
		used, err := s.quota.Hit(ctx, actor.UserID, period)
		if err != nil {
			return nil, err
		}
		if used > limit {
			return nil, billing.ErrQuotaExceeded()
		}
	}

	account, err := s.credits.Debit(ctx, actor.UserID, 1, billing.ReasonAnalysis, &ref)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil && account.Balance <= s.cfg.LowCreditThreshold {
		if err := s.notifier.SendLowCredit(ctx, actor.Email, actor.Name, account.Balance); err != nil {
			logx.WithError(err).WithField("user_id", actor.UserID.String()).Warn("failed to send low-credit email")
		}
	}

	return account, nil
}

// Balance returns the caller's credit account.
func (s *BillingService) Balance(ctx context.Context, userID kernel.UserID) (*billing.Account, error) {
	return s.credits.Balance(ctx, userID)
}

// Usage reports the caller's current quota window alongside the balance.
func (s *BillingService) Usage(ctx context.Context, actor *kernel.Actor) (*billing.Usage, error) {
	period := billing.CurrentPeriod(s.now())

	used, err := s.quota.Current(ctx, actor.UserID, period)
	if err != nil {
		return nil, err
	}

	account, err := s.credits.Balance(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	return &billing.Usage{
		Period:  period,
		Plan:    actor.Plan,
		Used:    used,
		Limit:   billing.MonthlyQuota(actor.Plan),
		Balance: account.Balance,
	}, nil
}

// History lists the caller's ledger entries.
func (s *BillingService) History(ctx context.Context, userID kernel.UserID, opts kernel.PaginationOptions) (kernel.Paginated[billing.LedgerEntry], error) {
	return s.credits.History(ctx, userID, opts)
}

// Grant adds credits to any account. Superadmin operation.
func (s *BillingService) Grant(ctx context.Context, userID kernel.UserID, amount int64, ref *string) (*billing.Account, error) {
	if err := s.credits.EnsureAccount(ctx, userID); err != nil {
		return nil, err
	}
	return s.credits.Grant(ctx, userID, amount, billing.ReasonGrant, ref)
}
