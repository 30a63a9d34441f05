package cartctl

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/louisbranch/cartstore/internal/services/cart/domain"
	"github.com/louisbranch/cartstore/internal/services/cart/store"
)

// printer renders command results as text or JSON.
type printer struct {
	out  io.Writer
	json bool
}

func newPrinter(out io.Writer, jsonOutput bool) *printer {
	return &printer{out: out, json: jsonOutput}
}

type resultReport struct {
	Success  bool     `json:"success"`
	Found    bool     `json:"found"`
	Degraded bool     `json:"degraded,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

type cartReport struct {
	Cart   *domain.Cart `json:"cart,omitempty"`
	Result resultReport `json:"result"`
}

type listReport struct {
	Carts  []domain.Cart `json:"carts"`
	Result resultReport  `json:"result"`
}

type statsReport struct {
	CacheAvailable bool     `json:"cache_available"`
	PrimaryCount   int      `json:"primary_count"`
	FallbackCount  int      `json:"fallback_count"`
	TotalCarts     int      `json:"total_carts"`
	Errors         []string `json:"errors,omitempty"`
}

type sweepReport struct {
	Cleaned int      `json:"cleaned"`
	Errors  []string `json:"errors,omitempty"`
}

type deleteReport struct {
	CartID string       `json:"cart_id"`
	Result resultReport `json:"result"`
}

func toResultReport(res store.Result) resultReport {
	return resultReport{
		Success:  res.Success,
		Found:    res.Found,
		Degraded: res.Degraded(),
		Errors:   errorStrings(res.Errors),
	}
}

func errorStrings(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			out = append(out, err.Error())
		}
	}
	return out
}

func (p *printer) writeJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(p.out, string(payload))
	return err
}

func (p *printer) warnings(errs []error) {
	for _, msg := range errorStrings(errs) {
		fmt.Fprintf(p.out, "warning: %s\n", msg)
	}
}

func (p *printer) cart(cart domain.Cart, res store.Result) error {
	if p.json {
		return p.writeJSON(cartReport{Cart: &cart, Result: toResultReport(res)})
	}
	p.writeCart(cart)
	p.warnings(res.Errors)
	if !res.Success {
		return fmt.Errorf("cart %s was not persisted", cart.ID)
	}
	return nil
}

// mutation reports a mutation that may target a missing cart or item.
func (p *printer) mutation(id string, cart domain.Cart, res store.Result) error {
	if p.json {
		report := cartReport{Result: toResultReport(res)}
		if cart.ID != "" {
			report.Cart = &cart
		}
		return p.writeJSON(report)
	}
	if cart.ID == "" {
		p.warnings(res.Errors)
		return fmt.Errorf("cart %s not found", id)
	}
	if !res.Found {
		fmt.Fprintln(p.out, "nothing changed")
	}
	p.writeCart(cart)
	p.warnings(res.Errors)
	return nil
}

func (p *printer) missing(id string, res store.Result) error {
	if p.json {
		return p.writeJSON(cartReport{Result: toResultReport(res)})
	}
	p.warnings(res.Errors)
	return fmt.Errorf("cart %s not found", id)
}

func (p *printer) carts(list []domain.Cart, res store.Result) error {
	if list == nil {
		list = []domain.Cart{}
	}
	if p.json {
		return p.writeJSON(listReport{Carts: list, Result: toResultReport(res)})
	}
	for _, cart := range list {
		fmt.Fprintf(p.out, "%s\titems=%d\ttotal=%.2f\tupdated=%s\n",
			cart.ID, cart.ItemCount(), cart.Total, formatTime(cart.UpdatedAt))
	}
	fmt.Fprintf(p.out, "%d cart(s)\n", len(list))
	p.warnings(res.Errors)
	return nil
}

func (p *printer) stats(stats store.Stats) error {
	if p.json {
		return p.writeJSON(statsReport{
			CacheAvailable: stats.CacheAvailable,
			PrimaryCount:   stats.PrimaryCount,
			FallbackCount:  stats.FallbackCount,
			TotalCarts:     stats.TotalCarts,
			Errors:         errorStrings(stats.Errors),
		})
	}
	fmt.Fprintf(p.out, "Cache available: %t\n", stats.CacheAvailable)
	fmt.Fprintf(p.out, "Primary carts: %d\n", stats.PrimaryCount)
	fmt.Fprintf(p.out, "Fallback carts: %d\n", stats.FallbackCount)
	fmt.Fprintf(p.out, "Total carts: %d\n", stats.TotalCarts)
	p.warnings(stats.Errors)
	return nil
}

func (p *printer) sweep(res store.SweepResult) error {
	if p.json {
		return p.writeJSON(sweepReport{Cleaned: res.Cleaned, Errors: errorStrings(res.Errors)})
	}
	fmt.Fprintf(p.out, "Swept %d expired fallback cart(s)\n", res.Cleaned)
	p.warnings(res.Errors)
	return nil
}

func (p *printer) deleted(id string, res store.Result) error {
	if p.json {
		return p.writeJSON(deleteReport{CartID: id, Result: toResultReport(res)})
	}
	if res.Found {
		fmt.Fprintf(p.out, "Deleted cart %s\n", id)
	} else {
		fmt.Fprintf(p.out, "Cart %s did not exist\n", id)
	}
	p.warnings(res.Errors)
	return nil
}

func (p *printer) writeCart(cart domain.Cart) {
	fmt.Fprintf(p.out, "Cart %s (%d item(s), total %.2f)\n", cart.ID, cart.ItemCount(), cart.Total)
	fmt.Fprintf(p.out, "  created %s, updated %s\n", formatTime(cart.CreatedAt), formatTime(cart.UpdatedAt))
	for _, item := range cart.Items {
		fmt.Fprintf(p.out, "  %s\tx%d\t%.2f\t%s\n", item.Key(), item.Quantity, item.Price, item.Name)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
