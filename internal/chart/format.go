package chart

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var magnitudes = []string{"", "K", "M", "B", "T"}

// HumanFormat compacts a number to 3 significant digits with a K/M/B/T
// suffix: 1234567 -> "1.23M", 1000 -> "1K", 999 -> "999".
func HumanFormat(num float64) string {
	if math.IsNaN(num) || math.IsInf(num, 0) {
		return strconv.FormatFloat(num, 'g', -1, 64)
	}

	// Round first so 999999 becomes 1e6 and moves up a magnitude.
	num, _ = strconv.ParseFloat(strconv.FormatFloat(num, 'g', 3, 64), 64)

	magnitude := 0
	for math.Abs(num) >= 1000 && magnitude < len(magnitudes)-1 {
		magnitude++
		num /= 1000
	}

	s := strconv.FormatFloat(num, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s + magnitudes[magnitude]
}

var thousands = message.NewPrinter(language.English)

// FormatThousands renders a value rounded to an integer with thousands
// separators: 1234567.4 -> "1,234,567".
func FormatThousands(v float64) string {
	return thousands.Sprintf("%d", int64(math.Round(v)))
}
