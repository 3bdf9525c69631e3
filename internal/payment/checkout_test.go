package payment

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChamsBouzaiene/issuefix/internal/api"
)

type fakeOrders struct {
	createErr error
	verifyErr error
	verified  []api.PaymentVerification
	creates   int
}

func (f *fakeOrders) CreateOrder(ctx context.Context, planID string) (*api.CreateOrderResponse, error) {
	f.creates++
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &api.CreateOrderResponse{
		Order: api.Order{ID: "order_1", Amount: 900, Currency: "USD"},
		Plan:  api.Plan{ID: planID, Name: "Starter"},
	}, nil
}

func (f *fakeOrders) VerifyPayment(ctx context.Context, v api.PaymentVerification) (*api.PaymentResult, error) {
	f.verified = append(f.verified, v)
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &api.PaymentResult{Success: true, Credits: &api.Credits{Remaining: 10}}, nil
}

type fixedGateway struct {
	receipt Receipt
	err     error
}

func (g fixedGateway) Collect(ctx context.Context, order api.Order, plan api.Plan) (Receipt, error) {
	return g.receipt, g.err
}

func TestCheckout_Success(t *testing.T) {
	orders := &fakeOrders{}
	var seen []State
	c := NewCheckout(orders, fixedGateway{receipt: Receipt{PaymentID: "pay_1", Signature: "sig"}}, func(s State) { seen = append(seen, s) })

	res, err := c.Start(context.Background(), "starter")
	require.NoError(t, err)
	assert.Equal(t, 10, res.Credits.Remaining)
	assert.Equal(t, StateSucceeded, c.State())
	assert.Equal(t, []State{StateCreatingOrder, StateAwaitingPayment, StateVerifying, StateSucceeded}, seen)
	require.Len(t, orders.verified, 1)
	assert.Equal(t, api.PaymentVerification{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig", PlanID: "starter"}, orders.verified[0])
}

func TestCheckout_DismissalIsTerminal(t *testing.T) {
	orders := &fakeOrders{}
	c := NewCheckout(orders, fixedGateway{err: ErrDismissed}, nil)

	_, err := c.Start(context.Background(), "pro")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDismissed))
	assert.Equal(t, StateFailed, c.State())
	assert.Empty(t, orders.verified)

	var perr *Error
	require.True(t, errors.As(c.Err(), &perr))
	assert.Equal(t, StateAwaitingPayment, perr.Step)
	assert.Equal(t, 1, orders.creates, "dismissal must not be retried")
}

func TestCheckout_OrderFailureKeepsAPIError(t *testing.T) {
	apiErr := &api.Error{Status: 402, Kind: api.KindAuthorization, Message: "upgrade"}
	c := NewCheckout(&fakeOrders{createErr: apiErr}, fixedGateway{}, nil)

	_, err := c.Start(context.Background(), "pro")
	assert.True(t, api.IsUpgradeRequired(err))
	assert.Equal(t, StateFailed, c.State())
}

func TestCheckout_RestartAfterFailure(t *testing.T) {
	orders := &fakeOrders{verifyErr: errors.New("bad signature")}
	c := NewCheckout(orders, fixedGateway{receipt: Receipt{PaymentID: "p", Signature: "s"}}, nil)

	_, err := c.Start(context.Background(), "starter")
	require.Error(t, err)

	orders.verifyErr = nil
	_, err = c.Start(context.Background(), "starter")
	require.NoError(t, err)
	assert.Nil(t, c.Err())
	assert.Equal(t, 2, orders.creates)
}

func TestPromptGateway(t *testing.T) {
	var out bytes.Buffer
	g := &PromptGateway{In: strings.NewReader("pay_9\nsig_9\n"), Out: &out, CheckoutURL: "https://pay.example.com"}

	r, err := g.Collect(context.Background(), api.Order{ID: "o1", Amount: 3900, Currency: "USD"}, api.Plan{Name: "Pro"})
	require.NoError(t, err)
	assert.Equal(t, Receipt{PaymentID: "pay_9", Signature: "sig_9"}, r)
	assert.Contains(t, out.String(), "39.00 USD")
}

func TestPromptGateway_EmptyDismisses(t *testing.T) {
	g := &PromptGateway{In: strings.NewReader("\n"), Out: &bytes.Buffer{}}
	_, err := g.Collect(context.Background(), api.Order{ID: "o1"}, api.Plan{})
	assert.ErrorIs(t, err, ErrDismissed)

	g = &PromptGateway{In: strings.NewReader(""), Out: &bytes.Buffer{}}
	_, err = g.Collect(context.Background(), api.Order{ID: "o1"}, api.Plan{})
	assert.ErrorIs(t, err, ErrDismissed)
}
