package tgCallback

// Callbacks buttons prefixes
const (
	ConfirmDeletePrefix string = "confirm_delete:" // wipe events starting from a date
	CancelDelete        string = "cancel_delete"

	ExchangePrefix string = "do_exchange:" // record the exchange suggested by the advisor
)
