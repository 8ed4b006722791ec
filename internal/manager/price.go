package manager

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ErrInvalidPrice is returned when a price field does not hold a finite number.
var ErrInvalidPrice = errors.New("invalid price")

var pricePrinter = message.NewPrinter(language.English)

// parsePrice converts a price field to a number. Blank text is zero.
func parsePrice(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}
	price, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPrice, text)
	}
	return price, nil
}

// priceText is the shortest decimal text of price, used to seed the edit form.
func priceText(price float64) string {
	return strconv.FormatFloat(price, 'f', -1, 64)
}

// FormatPrice renders a price for display: dollar sign, English digit grouping, at most three decimals.
func FormatPrice(price float64) string {
	return "$" + pricePrinter.Sprint(number.Decimal(price, number.MaxFractionDigits(3)))
}
