package model

type Profile struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Accounts []Account `json:"accounts"`
}

type Account struct {
	Number         string `json:"account_number"`
	Type           string `json:"type"`
	Classification string `json:"classification"`
	Status         string `json:"status"`
	OptionLevel    int    `json:"option_level"`
	DayTrader      bool   `json:"day_trader"`
}
