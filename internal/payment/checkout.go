// Package payment drives the credit checkout flow: create an order, hand it
// to the payment gateway, then have the backend verify the result. Failure
// and dismissal are terminal; a new attempt needs a new Start.
package payment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ChamsBouzaiene/issuefix/internal/api"
)

// State is a checkout step.
type State string

const (
	StateIdle            State = "idle"
	StateCreatingOrder   State = "creating_order"
	StateAwaitingPayment State = "awaiting_payment"
	StateVerifying       State = "verifying"
	StateSucceeded       State = "succeeded"
	StateFailed          State = "failed"
)

// Terminal reports whether no further step follows s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

var (
	// ErrDismissed is returned when the user closes the gateway prompt.
	ErrDismissed = errors.New("payment dismissed")
	// ErrInProgress is returned by Start while a checkout is running.
	ErrInProgress = errors.New("checkout already in progress")
)

// Receipt is what the gateway hands back after a completed payment.
type Receipt struct {
	PaymentID string
	Signature string
}

// Gateway collects payment for an order. Implementations return
// ErrDismissed when the user aborts.
type Gateway interface {
	Collect(ctx context.Context, order api.Order, plan api.Plan) (Receipt, error)
}

// OrdersAPI is the slice of the backend checkout needs.
type OrdersAPI interface {
	CreateOrder(ctx context.Context, planID string) (*api.CreateOrderResponse, error)
	VerifyPayment(ctx context.Context, v api.PaymentVerification) (*api.PaymentResult, error)
}

// Error records the step a checkout failed in.
type Error struct {
	Step State
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("payment failed while %s: %v", e.Step, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Checkout runs one checkout at a time.
type Checkout struct {
	api      OrdersAPI
	gateway  Gateway
	onChange func(State)

	mu    sync.Mutex
	state State
	err   error
}

// NewCheckout creates an idle checkout. onChange, if non-nil, is called on
// every state change.
func NewCheckout(a OrdersAPI, g Gateway, onChange func(State)) *Checkout {
	return &Checkout{api: a, gateway: g, onChange: onChange, state: StateIdle}
}

// State returns the current step.
func (c *Checkout) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the terminal error, if the checkout failed.
func (c *Checkout) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Start runs a checkout for planID to completion. Nothing is retried.
func (c *Checkout) Start(ctx context.Context, planID string) (*api.PaymentResult, error) {
	c.mu.Lock()
	if c.state != StateIdle && !c.state.Terminal() {
		c.mu.Unlock()
		return nil, ErrInProgress
	}
	c.err = nil
	c.mu.Unlock()

	c.set(StateCreatingOrder)
	created, err := c.api.CreateOrder(ctx, planID)
	if err != nil {
		return nil, c.fail(StateCreatingOrder, err)
	}

	c.set(StateAwaitingPayment)
	receipt, err := c.gateway.Collect(ctx, created.Order, created.Plan)
	if err != nil {
		return nil, c.fail(StateAwaitingPayment, err)
	}

	c.set(StateVerifying)
	res, err := c.api.VerifyPayment(ctx, api.PaymentVerification{
		OrderID:   created.Order.ID,
		PaymentID: receipt.PaymentID,
		Signature: receipt.Signature,
		PlanID:    planID,
	})
	if err != nil {
		return res, c.fail(StateVerifying, err)
	}

	c.set(StateSucceeded)
	log.Printf("💳 Payment verified for order %s", created.Order.ID)
	return res, nil
}

func (c *Checkout) set(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	if c.onChange != nil {
		c.onChange(s)
	}
}

func (c *Checkout) fail(step State, err error) error {
	perr := &Error{Step: step, Err: err}
	c.mu.Lock()
	c.err = perr
	c.mu.Unlock()
	if errors.Is(err, ErrDismissed) {
		log.Printf("💳 Checkout dismissed by user")
	} else {
		log.Printf("❌ Checkout failed while %s: %v", step, err)
	}
	c.set(StateFailed)
	return perr
}
