package subscription

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/apperror"
	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=subscription
type Repository interface {
	CreateSubscription(ctx context.Context, sub *Subscription) error
	GetSubscription(ctx context.Context, id uuid.UUID) (*Subscription, error)
	ListSubscriptions(ctx context.Context, activeOnly bool) ([]*Subscription, error)
	UpdateSubscription(ctx context.Context, sub *Subscription) error
	DeleteSubscription(ctx context.Context, id uuid.UUID) error

	Begin(ctx context.Context) (Tx, error)
}

// Tx is a ledger unit of work that can also touch subscriptions, so a
// payment and its due date move together.
type Tx interface {
	transaction.Tx

	LockSubscription(ctx context.Context, id uuid.UUID) (*Subscription, error)
	AdvanceDueDate(ctx context.Context, id uuid.UUID, next time.Time) error
	// EnsureCategory returns the id of the named category, creating it if
	// absent. Safe under concurrent callers.
	EnsureCategory(ctx context.Context, name string, t transaction.Type) (uuid.UUID, error)
}

type Service struct {
	repo   Repository
	ledger *transaction.Service
	now    func() time.Time
}

type Option func(*Service)

// WithClock overrides the clock used to date payments.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repo Repository, ledger *transaction.Service, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		ledger: ledger,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Subscription, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	next := params.StartDate
	if params.NextDueDate != nil {
		next = *params.NextDueDate
	}

	sub := &Subscription{
		ServiceName:   params.ServiceName,
		Amount:        params.Amount,
		Period:        params.Period,
		StartDate:     params.StartDate,
		NextDueDate:   next,
		PaymentMethod: params.PaymentMethod,
		WalletID:      params.WalletID,
		Note:          params.Note,
		IsActive:      true,
	}

	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return nil, apperror.Store("create subscription", err)
	}

	return sub, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return nil, apperror.Store("get subscription", err)
	}

	return sub, nil
}

func (s *Service) List(ctx context.Context, activeOnly bool) ([]*Subscription, error) {
	subs, err := s.repo.ListSubscriptions(ctx, activeOnly)
	if err != nil {
		return nil, apperror.Store("list subscriptions", err)
	}

	return subs, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Subscription, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return nil, apperror.Store("get subscription", err)
	}

	sub.ServiceName = params.ServiceName
	sub.Amount = params.Amount
	sub.Period = params.Period
	sub.PaymentMethod = params.PaymentMethod
	sub.WalletID = params.WalletID
	sub.Note = params.Note
	sub.IsActive = params.IsActive

	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return nil, apperror.Store("update subscription", err)
	}

	return sub, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return apperror.Store("delete subscription", s.repo.DeleteSubscription(ctx, id))
}

// Upcoming returns active subscriptions due within the given window from
// now, overdue ones included, earliest first.
func (s *Service) Upcoming(ctx context.Context, within time.Duration) ([]*Subscription, error) {
	subs, err := s.repo.ListSubscriptions(ctx, true)
	if err != nil {
		return nil, apperror.Store("list subscriptions", err)
	}

	horizon := s.now().Add(within)

	var due []*Subscription

	for _, sub := range subs {
		if !sub.NextDueDate.After(horizon) {
			due = append(due, sub)
		}
	}

	slices.SortFunc(due, func(a, b *Subscription) int { return a.NextDueDate.Compare(b.NextDueDate) })

	return due, nil
}

// MarkPaid posts one expense for the subscription against its wallet, dated
// now, and advances the due date by one period. Either everything commits or
// nothing does.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID) (*PaymentResult, error) {
	utx, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, apperror.Store("begin payment", err)
	}
	defer utx.Rollback()

	sub, err := utx.LockSubscription(ctx, id)
	if err != nil {
		return nil, apperror.Store("lock subscription", err)
	}

	if !sub.IsActive {
		return nil, apperror.Validation("subscription %q is not active", sub.ServiceName)
	}

	if sub.WalletID == nil {
		return nil, apperror.Validation("subscription %q has no wallet to pay from", sub.ServiceName)
	}

	categoryID, err := utx.EnsureCategory(ctx, category.SubscriptionName, transaction.TypeExpense)
	if err != nil {
		return nil, apperror.Store("ensure subscription category", err)
	}

	tx, balance, err := s.ledger.Post(ctx, utx, transaction.CreateParams{
		Type:       transaction.TypeExpense,
		Amount:     sub.Amount,
		Date:       s.now(),
		Note:       sub.PaymentNote(),
		CategoryID: categoryID,
		WalletID:   *sub.WalletID,
	})
	if err != nil {
		return nil, apperror.Store("post payment", err)
	}

	next := sub.Period.Next(sub.NextDueDate)
	if err := utx.AdvanceDueDate(ctx, sub.ID, next); err != nil {
		return nil, apperror.Store("advance due date", fmt.Errorf("subscription %s: %w", sub.ID, err))
	}

	if err := utx.Commit(); err != nil {
		return nil, apperror.Store("commit payment", err)
	}

	sub.NextDueDate = next

	return &PaymentResult{
		Subscription:  sub,
		Transaction:   tx,
		WalletBalance: balance,
	}, nil
}
