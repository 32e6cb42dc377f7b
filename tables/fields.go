package tables

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Checked in order; the first pattern yielding a valid calendar date wins.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`),
	regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`),
	regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{4})`),
	regexp.MustCompile(`(\d{4})/(\d{1,2})/(\d{1,2})`),
}

var (
	abbreviatedAmount = regexp.MustCompile(`\d+\.?\d*\s*[MKBmkb]`)
	currencyCodes     = regexp.MustCompile(`(?i)usd|eur|gbp`)
	plainNumber       = regexp.MustCompile(`^\d+(\.\d+)?$`)
	amountNoise       = strings.NewReplacer("$", "", "€", "", "£", "", ",", "", " ", "", "\t", "", "\u00a0", "")
)

// ParseDate finds a date in s and returns it as YYYY-MM-DD.
//
// When the first number has four digits it is the year. Otherwise a first
// number above 12 is the day (day-first) and anything else is read
// month-first. Dates that do not exist on the calendar are rejected.
func ParseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}

	for _, re := range datePatterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}

		var year, month, day int
		if len(m[1]) == 4 {
			year, month, day = atoi(m[1]), atoi(m[2]), atoi(m[3])
		} else {
			first, second := atoi(m[1]), atoi(m[2])
			year = atoi(m[3])
			if first > 12 {
				day, month = first, second
			} else {
				month, day = first, second
			}
		}

		if !validDate(year, month, day) {
			continue
		}
		return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
	}
	return "", false
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func validDate(year, month, day int) bool {
	if year < 1 || month < 1 || month > 12 || day < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

// ParseAmount parses a monetary cell into an exact decimal.
//
// Currency symbols and codes, thousands separators, and whitespace are
// stripped. Parentheses or a leading minus make the value negative.
// Magnitude suffixes (5.5M, 200K, 1B) are rejected rather than guessed.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}
	if abbreviatedAmount.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrAbbreviatedAmount, s)
	}

	negative := false
	if strings.Contains(s, "(") && strings.Contains(s, ")") {
		negative = true
		s = strings.NewReplacer("(", "", ")", "").Replace(s)
	}

	cleaned := amountNoise.Replace(currencyCodes.ReplaceAllString(s, ""))
	if strings.HasPrefix(cleaned, "-") {
		negative = true
		cleaned = cleaned[1:]
	}
	if !plainNumber.MatchString(cleaned) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotAmount, s)
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotAmount, s)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, nil
}

// row pairs normalized headers with the trimmed cells of one data row.
type row struct {
	headers []string
	cells   []string
}

// columns yields the cells whose header contains any keyword, in header order.
func (r row) columns(keywords []string) []string {
	var out []string
	for i, header := range r.headers {
		if i < len(r.cells) && containsAny(header, keywords) {
			out = append(out, r.cells[i])
		}
	}
	return out
}

func (r row) date(k *Keywords) (string, bool) {
	for _, cell := range r.columns(k.Fields.Date) {
		if d, ok := ParseDate(cell); ok {
			return d, true
		}
	}
	for _, cell := range r.cells[:min(3, len(r.cells))] {
		if d, ok := ParseDate(cell); ok {
			return d, true
		}
	}
	return "", false
}

func (r row) amount(k *Keywords) (decimal.Decimal, bool) {
	for _, cell := range r.columns(k.Fields.Amount) {
		if a, err := ParseAmount(cell); err == nil {
			return a, true
		}
	}
	for _, cell := range r.cells {
		if a, err := ParseAmount(cell); err == nil {
			return a, true
		}
	}
	return decimal.Zero, false
}

func (r row) description(k *Keywords) string {
	for _, cell := range r.columns(k.Fields.Description) {
		if cell != "" {
			return cell
		}
	}

	longest := ""
	for _, cell := range r.cells {
		if cell == "" {
			continue
		}
		if _, ok := ParseDate(cell); ok {
			continue
		}
		if _, err := ParseAmount(cell); err == nil {
			continue
		}
		if utf8.RuneCountInString(cell) > utf8.RuneCountInString(longest) {
			longest = cell
		}
	}
	return longest
}

// text returns the first non-empty cell under a header matching keywords,
// or fallback.
func (r row) text(keywords []string, fallback string) string {
	for _, cell := range r.columns(keywords) {
		if cell != "" {
			return cell
		}
	}
	return fallback
}

func (r row) recallable(k *Keywords) bool {
	if cells := r.columns(k.Fields.Recallable); len(cells) > 0 {
		value := strings.ToLower(cells[0])
		for _, truthy := range k.Truthy {
			if value == truthy {
				return true
			}
		}
		return false
	}

	for _, cell := range r.cells {
		if containsAny(strings.ToLower(cell), k.Fields.RecallableText) {
			return true
		}
	}
	return false
}
