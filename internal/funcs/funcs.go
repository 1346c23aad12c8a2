package funcs

import (
	"strconv"
	"text/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var TemplateFuncs = template.FuncMap{
	"formatUSD":   formatUSD,
	"formatCoins": formatCoins,
	"formatTime":  formatTime,
}

var printer = message.NewPrinter(language.English)

// formatUSD renders a decimal string like "1234.5" as "$1,234.50".
func formatUSD(amount string) string {
	value, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return "$" + amount
	}
	return printer.Sprintf("$%.2f", value)
}

func formatCoins(amount int64) string {
	return printer.Sprintf("%d coins", amount)
}

func formatTime(t time.Time) string {
	return t.Format("02 Jan 2006 15:04 MST")
}
