package orchestrators

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"fineclub/internal/application/apperr"
	"fineclub/internal/domain/ledger"

	"connectrpc.com/connect"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RecordPaymentInput carries a payment as submitted by an admin.
// PaidAmount is the decimal text of the amount (JSON numbers are passed through as-is).
type RecordPaymentInput struct {
	WeekID     string `validate:"required"`
	MemberID   string `validate:"required"`
	PaidAmount string
	Method     string
	Note       string
}

// RecordPaymentResult carries the updated balance of the entry.
type RecordPaymentResult struct {
	WeekID   string
	MemberID string
	Fine     decimal.Decimal
	Payment  ledger.Payment
	ledger.Totals
}

// RecordPaymentDeps holds dependencies for RecordPayment.
type RecordPaymentDeps struct {
	LedgerStore LedgerStore
	GenerateID  func() string // optional: defaults to a random UUID
	Now         func() time.Time
	Lock        sync.Locker
	Metrics     PaymentRecorder // optional: nil skips counting
}

// ExecuteRecordPayment appends a payment to an existing ledger entry.
// PRE: weekId and memberId name an existing entry; amount > 0; method non-empty
// POST: Entry gains one payment; returned totals are recomputed from all payments
// INVARIANT: Payments are append-only; fine and deficit never change
func ExecuteRecordPayment(ctx context.Context, input RecordPaymentInput, deps RecordPaymentDeps) (RecordPaymentResult, error) {
	input.WeekID = strings.TrimSpace(input.WeekID)
	input.MemberID = strings.TrimSpace(input.MemberID)
	input.Method = strings.TrimSpace(input.Method)
	input.Note = strings.TrimSpace(input.Note)
	input.PaidAmount = strings.TrimSpace(input.PaidAmount)

	if err := validateIDs(input); err != nil {
		return RecordPaymentResult{}, err
	}
	// Unparseable amounts stay zero and are rejected with the non-positive message.
	amount, _ := decimal.NewFromString(input.PaidAmount)

	id := uuid.NewString
	if deps.GenerateID != nil {
		id = deps.GenerateID
	}
	p := ledger.Payment{
		ID:     id(),
		Amount: amount,
		Method: input.Method,
		Note:   input.Note,
		PaidAt: clock(deps.Now).UTC().Format(time.RFC3339Nano),
	}
	if err := p.Validate(); err != nil {
		return RecordPaymentResult{}, apperr.Wrap(connect.CodeInvalidArgument, err)
	}

	release := acquire(deps.Lock)
	defer release()

	l, err := deps.LedgerStore.Load(ctx)
	if err != nil {
		return RecordPaymentResult{}, apperr.Internal("load ledger", err)
	}
	entry, err := l.AddPayment(input.WeekID, input.MemberID, p)
	if errors.Is(err, ledger.ErrEntryNotFound) {
		return RecordPaymentResult{}, apperr.Wrap(connect.CodeNotFound, err)
	}
	if err != nil {
		return RecordPaymentResult{}, apperr.Internal("add payment", err)
	}
	if err := deps.LedgerStore.Save(ctx, l); err != nil {
		return RecordPaymentResult{}, apperr.Internal("save ledger", err)
	}

	totals := entry.Totals()
	if deps.Metrics != nil {
		deps.Metrics.PaymentRecorded(amount)
	}
	slog.Info("payment_event", "event", "payment_recorded",
		"week_id", input.WeekID, "member_id", input.MemberID, "payment_id", p.ID,
		"amount", amount.String(), "method", p.Method, "outstanding", totals.Outstanding.String())

	return RecordPaymentResult{
		WeekID:   input.WeekID,
		MemberID: input.MemberID,
		Fine:     entry.Fine,
		Payment:  p,
		Totals:   totals,
	}, nil
}

// validateIDs checks that the payment names an entry.
func validateIDs(input RecordPaymentInput) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Internal("validate payment", err)
	}
	return apperr.Invalid("weekId and memberId are required")
}
