package enums

// CheckoutOutcome classifies the three-way result of submitting a cart.
type CheckoutOutcome string

const (
	// CheckoutOutcomeCompleted: every line reached the backend and local
	// state was cleared.
	CheckoutOutcomeCompleted CheckoutOutcome = "completed"
	// CheckoutOutcomePartial: some lines failed; the local cart is
	// preserved so the guest can retry.
	CheckoutOutcomePartial CheckoutOutcome = "partial"
	// CheckoutOutcomeRedirect: items submitted, guest must finish at the
	// payment provider.
	CheckoutOutcomeRedirect CheckoutOutcome = "redirect"
)

// String implements fmt.Stringer.
func (c CheckoutOutcome) String() string {
	return string(c)
}
