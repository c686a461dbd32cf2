package model

type action int

const (
	DefaultAction action = iota
	ExpectingDepositAmount
	ExpectingWithdrawAmount
	ExpectingExchangeInput
	ExpectingReverseExchangeInput
	ExpectingBuyInput
	ExpectingSellInput
	ExpectingDividendInput
	ExpectingRebalanceAmount
	ExpectingDeleteFromDate
)

type Session struct {
	Action action
}
