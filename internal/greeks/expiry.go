package greeks

import (
	"errors"
	"strings"
	"time"

	"feedenginev1/internal/markethours"
)

// ErrBadExpiry is returned when an expiry string matches none of the
// formats that appear in exchange master files.
var ErrBadExpiry = errors.New("greeks: unparseable expiry date")

// minYears floors time-to-expiry so expiry-day options keep a positive,
// non-degenerate T.
const minYears = 0.0001

// expiryLayouts lists the date shapes seen across NSE and BSE master
// files and the ISO forms used by tooling.
var expiryLayouts = []string{
	"02Jan2006",
	"02-Jan-2006",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"20060102",
	"02/01/2006",
}

// ParseExpiry parses an expiry date in any supported format. The result
// is anchored to IST midnight.
func ParseExpiry(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrBadExpiry
	}
	candidate := normaliseMonthCase(s)
	for _, layout := range expiryLayouts {
		if t, err := time.ParseInLocation(layout, candidate, markethours.IST); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, markethours.IST), nil
		}
	}
	return time.Time{}, ErrBadExpiry
}

// CanonicalExpiry normalises any supported expiry format to the uppercase
// DDMMMYYYY form used throughout the price rows ("26DEC2024").
func CanonicalExpiry(s string) (string, error) {
	t, err := ParseExpiry(s)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(t.Format("02Jan2006")), nil
}

// normaliseMonthCase rewrites an all-caps month abbreviation ("26DEC2024")
// into the title case time.Parse expects.
func normaliseMonthCase(s string) string {
	b := []byte(s)
	inRun := false
	for i := range b {
		isAlpha := (b[i] >= 'A' && b[i] <= 'Z') || (b[i] >= 'a' && b[i] <= 'z')
		switch {
		case !isAlpha:
			inRun = false
		case !inRun:
			inRun = true
			if b[i] >= 'a' && b[i] <= 'z' {
				b[i] -= 'a' - 'A'
			}
		default:
			if b[i] >= 'A' && b[i] <= 'Z' {
				b[i] += 'a' - 'A'
			}
		}
	}
	return string(b)
}

// CalendarYears converts an expiry date to Black-Scholes T using calendar
// days over a 365-day year. Expired dates return the minimum.
func CalendarYears(expiry, now time.Time) float64 {
	days := expiry.Sub(now.In(markethours.IST)).Hours() / 24
	if days < 0 {
		return minYears
	}
	t := days / 365
	if t < minYears {
		return minYears
	}
	return t
}

// TradingYears converts an expiry date to T using NSE trading days over a
// 252-day year, with an intraday fraction for the time remaining until
// the 15:30 IST close.
func TradingYears(expiry, now time.Time) float64 {
	ist := now.In(markethours.IST)
	today := time.Date(ist.Year(), ist.Month(), ist.Day(), 0, 0, 0, 0, markethours.IST)
	if expiry.Before(today) {
		return minYears
	}

	days := markethours.CountTradingDays(ist, expiry)
	intraday := intradayFraction(ist)
	if intraday > 0 && days > 0 {
		days-- // today is covered by the intraday fraction
	}

	t := (float64(days) + intraday) / markethours.TradingDaysPerYear
	if t < minYears {
		return minYears
	}
	return t
}

// intradayFraction returns the remaining part of today's session as a
// fraction of a day; zero after the close.
func intradayFraction(ist time.Time) float64 {
	sessionClose := time.Date(ist.Year(), ist.Month(), ist.Day(),
		markethours.CloseHour, markethours.CloseMinute, 0, 0, markethours.IST)
	remaining := sessionClose.Sub(ist)
	if remaining <= 0 {
		return 0
	}
	return remaining.Seconds() / (24 * 60 * 60)
}

// YearsToExpiry parses an expiry string and returns calendar-day T. The
// zero value on a parse failure keeps the option degenerate, which the
// calculator maps to zero greeks.
func YearsToExpiry(s string, now time.Time) float64 {
	exp, err := ParseExpiry(s)
	if err != nil {
		return 0
	}
	return CalendarYears(exp, now)
}
