package photobox

import (
	"errors"
	"strings"
	"sync"

	"ceritanya-photobox/internal/config"
)

var (
	ErrInsufficientTokens = errors.New("not enough tokens")
	ErrNothingSelected    = errors.New("no slots selected")
	ErrInvalidCode        = errors.New("invalid code")
	ErrCodeUsed           = errors.New("code already used")
)

// Vault holds the process-wide voucher pool. Codes are seeded once at start;
// redemption is monotonic and survives session restarts (a spent code never
// comes back).
type Vault struct {
	mu       sync.Mutex
	vouchers map[string]*voucher
}

type voucher struct {
	value  int
	active bool
}

func NewVault(codes []config.VoucherCode) *Vault {
	v := &Vault{vouchers: make(map[string]*voucher, len(codes))}
	for _, c := range codes {
		code := strings.ToUpper(strings.TrimSpace(c.Code))
		if code == "" || c.Value <= 0 {
			continue
		}
		v.vouchers[code] = &voucher{value: c.Value, active: true}
	}
	return v
}

// Redeem normalizes the input (trim, uppercase) and looks the code up by
// exact equality. A hit on an active code returns its value and burns it.
func (v *Vault) Redeem(code string) (int, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	v.mu.Lock()
	defer v.mu.Unlock()

	entry, ok := v.vouchers[code]
	if !ok {
		return 0, ErrInvalidCode
	}
	if !entry.active {
		return 0, ErrCodeUsed
	}

	entry.active = false
	return entry.value, nil
}

// BatchOptions describes one user-triggered regeneration batch for pricing.
// The cost is flat per batch; the selection count only gates whether the
// batch may run at all.
type BatchOptions struct {
	SelectedSlots int
	Partner       bool
	Background    bool
	Style         bool
}

// Ledger tracks one session's spendable balance. It is not self-locking: the
// session store serializes access, and voucher state lives in the shared
// Vault.
type Ledger struct {
	costs   config.TokenCosts
	vault   *Vault
	balance int
}

func NewLedger(costs config.TokenCosts, vault *Vault) *Ledger {
	return &Ledger{costs: costs, vault: vault}
}

func (l *Ledger) Balance() int { return l.balance }

func (l *Ledger) Costs() config.TokenCosts { return l.costs }

// BatchCost computes the additive flat cost of a regeneration batch. Zero
// selections price to zero (and the batch is blocked elsewhere).
func (l *Ledger) BatchCost(opts BatchOptions) int {
	if opts.SelectedSlots == 0 {
		return 0
	}

	cost := l.costs.BaseGeneration
	if opts.Partner {
		cost += l.costs.Partner
	}
	if opts.Background {
		cost += l.costs.Background
	}
	if opts.Style {
		cost += l.costs.Style
	}
	return cost
}

// DebitBatch authorizes and deducts a batch in one step. ErrInsufficientTokens
// means the caller should open the redemption flow, not fail the session.
func (l *Ledger) DebitBatch(opts BatchOptions) (int, error) {
	if opts.SelectedSlots == 0 {
		return 0, ErrNothingSelected
	}

	cost := l.BatchCost(opts)
	if l.balance < cost {
		return 0, ErrInsufficientTokens
	}

	l.balance -= cost
	return cost, nil
}

// DebitEnhance deducts the text-enhancement fee eagerly, before the remote
// call. It is never refunded on remote failure.
func (l *Ledger) DebitEnhance() error {
	if l.balance < l.costs.Enhance {
		return ErrInsufficientTokens
	}
	l.balance -= l.costs.Enhance
	return nil
}

// Redeem applies a voucher to this session's balance.
func (l *Ledger) Redeem(code string) (int, error) {
	value, err := l.vault.Redeem(code)
	if err != nil {
		return 0, err
	}
	l.balance += value
	return value, nil
}

func (l *Ledger) setBalance(v int) {
	if v < 0 {
		v = 0
	}
	l.balance = v
}
