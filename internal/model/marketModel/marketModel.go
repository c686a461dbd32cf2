package marketModel

import "github.com/shopspring/decimal"

type Quote struct {
	Ticker    string
	Price     decimal.Decimal
	ChangePct decimal.Decimal
}

type RawChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
			} `json:"meta"`
		} `json:"result"`
		Error any `json:"error"`
	} `json:"chart"`
}
