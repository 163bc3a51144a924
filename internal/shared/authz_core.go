package shared

// Hotel permissions.
const (
	PermBookingsView   = "bookings.view"
	PermBookingsManage = "bookings.manage"

	PermPaymentsRecord = "payments.record"
	PermPaymentsRefund = "payments.refund"

	PermInventoryView   = "inventory.view"
	PermInventoryManage = "inventory.manage"

	PermPurchasesView   = "purchases.view"
	PermPurchasesCreate = "purchases.create"

	PermExpensesView   = "expenses.view"
	PermExpensesCreate = "expenses.create"

	PermRoomsView = "rooms.view"

	PermAuditView = "audit.view"
)

// CoreScopes lists every permission known to the application.
func CoreScopes() []string {
	return []string{
		PermBookingsView,
		PermBookingsManage,
		PermPaymentsRecord,
		PermPaymentsRefund,
		PermInventoryView,
		PermInventoryManage,
		PermPurchasesView,
		PermPurchasesCreate,
		PermExpensesView,
		PermExpensesCreate,
		PermRoomsView,
		PermAuditView,
	}
}
