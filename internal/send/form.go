package send

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rhystmorgan/zterm/internal/logging"
	"rhystmorgan/zterm/internal/validation"
	"rhystmorgan/zterm/internal/wallet"
)

// ErrNoTransactionID is reported when the backend accepts a send but hands
// back an empty transaction id.
var ErrNoTransactionID = errors.New("transaction submitted but no transaction id was returned")

// Options configures a Form.
type Options struct {
	Fee             decimal.Decimal
	StrictAddresses bool
	Observers       []Observer
}

// Form is the send screen's view-model. It owns a single draft and allows at
// most one submission in flight at a time.
type Form struct {
	backend   wallet.Backend
	validator *validation.DraftValidator
	observers []Observer
	fee       decimal.Decimal

	mu         sync.Mutex
	draft      validation.Draft
	state      State
	inFlight   bool
	lastError  string
	lastTxID   string
	spendable  decimal.Decimal
	hasBalance bool
	current    uint64
	nextID     uint64
	closed     bool
}

func NewForm(backend wallet.Backend, opts Options) *Form {
	fee := opts.Fee
	if fee.IsZero() {
		fee = wallet.DefaultFee
	}

	return &Form{
		backend:   backend,
		validator: validation.NewDraftValidator(opts.StrictAddresses),
		observers: opts.Observers,
		fee:       fee,
		state:     StateIdle,
	}
}

// SetAddress replaces the recipient address.
func (f *Form) SetAddress(address string) {
	f.edit(func(d *validation.Draft) { d.Address = address })
}

// SetAmount replaces the amount text.
func (f *Form) SetAmount(amount string) {
	f.edit(func(d *validation.Draft) { d.Amount = amount })
}

// SetMemo replaces the memo text.
func (f *Form) SetMemo(memo string) {
	f.edit(func(d *validation.Draft) { d.Memo = memo })
}

// FillMax sets the amount to the whole spendable balance minus the fee.
func (f *Form) FillMax() {
	f.mu.Lock()
	amount := validation.MaxSendable(f.fee, f.spendable)
	f.mu.Unlock()

	f.SetAmount(amount.String())
}

func (f *Form) edit(apply func(d *validation.Draft)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || f.inFlight || f.state == StateSucceeded {
		return
	}

	apply(&f.draft)
	f.lastError = ""
	f.state = StateIdle
}

// SetBalance records the latest spendable balance used for validation.
func (f *Form) SetBalance(balance *wallet.Balance) {
	if balance == nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.spendable = balance.Spendable
	f.hasBalance = true
}

// LoadBalance asks the backend for the current balance and records it.
func (f *Form) LoadBalance(ctx context.Context) (*wallet.Balance, error) {
	balance, err := f.backend.GetBalance(ctx)
	if err != nil {
		logging.Warn("Balance refresh failed", zap.Error(err))
		return nil, err
	}

	f.SetBalance(balance)
	return balance, nil
}

// Snapshot returns the form state with validity derived from the current
// draft, fee and balance.
func (f *Form) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	return Snapshot{
		Draft:      f.draft,
		Category:   f.draft.Category(),
		Validation: f.validator.Validate(f.draft, f.fee, f.spendable),
		State:      f.state,
		InFlight:   f.inFlight,
		LastError:  f.lastError,
		LastTxID:   f.lastTxID,
		Fee:        f.fee,
		Spendable:  f.spendable,
		HasBalance: f.hasBalance,
	}
}

// Dispatch validates the draft and, if it passes and nothing is in flight,
// marks the form as submitting. It returns false when the request is ignored.
func (f *Form) Dispatch() (Submission, bool) {
	f.mu.Lock()

	if f.closed || f.inFlight || f.state == StateSucceeded {
		f.mu.Unlock()
		return Submission{}, false
	}

	previous := f.state
	f.state = StateValidating

	result := f.validator.Validate(f.draft, f.fee, f.spendable)
	if !result.IsValid {
		f.state = previous
		f.mu.Unlock()
		logging.Debug("Dispatch rejected by validation", zap.Int("errors", len(result.Errors)))
		return Submission{}, false
	}

	// Validate has already accepted the amount.
	amount, _ := validation.ParseAmount(f.draft.Amount)

	f.nextID++
	sub := Submission{
		ID:           f.nextID,
		Address:      f.draft.Address,
		Category:     f.draft.Category(),
		Amount:       amount,
		Fee:          f.fee,
		Memo:         f.draft.OutgoingMemo(),
		DispatchedAt: time.Now(),
	}

	f.current = sub.ID
	f.inFlight = true
	f.lastError = ""
	f.state = StateSubmitting
	f.mu.Unlock()

	logging.LogSubmission("dispatched",
		zap.Uint64("submission", sub.ID),
		zap.String("category", sub.Category.String()),
		zap.String("amount", sub.Amount.String()),
		zap.Bool("memo", sub.Memo != nil),
	)
	for _, o := range f.observers {
		o.SubmissionDispatched(sub)
	}

	return sub, true
}

// Execute calls the backend for a dispatched submission. It holds no lock
// and imposes no timeout of its own.
func (f *Form) Execute(ctx context.Context, sub Submission) Outcome {
	txID, err := f.backend.SubmitTransaction(ctx, sub.Address, sub.Amount, sub.Memo)
	if err == nil && txID == "" {
		err = ErrNoTransactionID
	}
	return Outcome{TxID: txID, Err: err}
}

// Resolve applies an outcome to the form. Outcomes for a closed form or for
// a submission that is no longer current are dropped and false is returned.
func (f *Form) Resolve(sub Submission, outcome Outcome) bool {
	f.mu.Lock()

	if f.closed || !f.inFlight || sub.ID != f.current {
		f.mu.Unlock()
		logging.Debug("Dropping stale submission outcome", zap.Uint64("submission", sub.ID))
		return false
	}

	f.inFlight = false
	if outcome.Succeeded() {
		f.lastError = ""
		f.lastTxID = outcome.TxID
		f.state = StateSucceeded
	} else {
		f.lastError = FailureMessage(outcome.Err)
		f.lastTxID = ""
		f.state = StateFailed
	}
	f.mu.Unlock()

	if outcome.Succeeded() {
		logging.LogSubmission("succeeded",
			zap.Uint64("submission", sub.ID),
			zap.String("txid", outcome.TxID),
		)
	} else {
		logging.LogSubmission("failed",
			zap.Uint64("submission", sub.ID),
			zap.Error(outcome.Err),
		)
	}
	for _, o := range f.observers {
		o.SubmissionResolved(sub, outcome)
	}

	return true
}

// Acknowledge dismisses a successful result, clearing the draft.
func (f *Form) Acknowledge() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateSucceeded {
		return
	}

	f.draft = validation.Draft{}
	f.lastTxID = ""
	f.lastError = ""
	f.state = StateIdle
}

// Close releases the form. Outcomes arriving afterwards are discarded.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
}

// Closed reports whether Close has been called.
func (f *Form) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

// Submit dispatches, executes and resolves in one call. ok is false when
// the dispatch was ignored.
func (f *Form) Submit(ctx context.Context) (outcome Outcome, ok bool) {
	sub, ok := f.Dispatch()
	if !ok {
		return Outcome{}, false
	}

	outcome = f.Execute(ctx, sub)
	f.Resolve(sub, outcome)
	return outcome, true
}

// FailureMessage turns a submission error into text for the user.
func FailureMessage(err error) string {
	if err == nil {
		return ErrNoTransactionID.Error()
	}

	var walletErr *wallet.WalletError
	if errors.As(err, &walletErr) {
		return walletErr.UserMessage()
	}

	return err.Error()
}
