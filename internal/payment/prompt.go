package payment

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ChamsBouzaiene/issuefix/internal/api"
)

// Catalog is the plan list shown on the pricing screen. Prices are in the
// smallest currency unit; the backend's order amount is authoritative.
var Catalog = []api.Plan{
	{ID: "starter", Name: "Starter", Credits: 10, Price: 900, Currency: "USD"},
	{ID: "pro", Name: "Pro", Credits: 50, Price: 3900, Currency: "USD"},
	{ID: "team", Name: "Team", Credits: 200, Price: 12900, Currency: "USD"},
}

// FindPlan looks up a catalog plan by ID.
func FindPlan(id string) (api.Plan, bool) {
	for _, p := range Catalog {
		if p.ID == id {
			return p, true
		}
	}
	return api.Plan{}, false
}

// PromptGateway asks the user to complete the order in the hosted checkout
// and paste back the payment ID and signature. An empty answer dismisses.
type PromptGateway struct {
	In          io.Reader
	Out         io.Writer
	CheckoutURL string
}

// Collect implements Gateway.
func (g *PromptGateway) Collect(ctx context.Context, order api.Order, plan api.Plan) (Receipt, error) {
	fmt.Fprintf(g.Out, "Order %s: %s plan, %s\n", order.ID, plan.Name, FormatAmount(order.Amount, order.Currency))
	if g.CheckoutURL != "" {
		fmt.Fprintf(g.Out, "Complete the payment at %s?order_id=%s\n", g.CheckoutURL, order.ID)
	}

	sc := bufio.NewScanner(g.In)
	ask := func(label string) (string, error) {
		fmt.Fprintf(g.Out, "%s (empty to cancel): ", label)
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return "", err
			}
			return "", ErrDismissed
		}
		v := strings.TrimSpace(sc.Text())
		if v == "" {
			return "", ErrDismissed
		}
		return v, nil
	}

	id, err := ask("Payment ID")
	if err != nil {
		return Receipt{}, err
	}
	sig, err := ask("Signature")
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{PaymentID: id, Signature: sig}, nil
}

// FormatAmount renders an amount in the smallest currency unit.
func FormatAmount(amount int64, currency string) string {
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("%d.%02d %s", amount/100, amount%100, currency)
}
