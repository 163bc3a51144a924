package shared

// PaymentMethod is how money moved, for guest payments and staff-level outflows alike.
type PaymentMethod string

const (
	MethodCash       PaymentMethod = "cash"
	MethodCreditCard PaymentMethod = "credit_card"
	MethodDebitCard  PaymentMethod = "debit_card"
	MethodWompi      PaymentMethod = "wompi"
	MethodTransfer   PaymentMethod = "transfer"
)

// Valid reports whether m is one of the known methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodCreditCard, MethodDebitCard, MethodWompi, MethodTransfer:
		return true
	}
	return false
}
