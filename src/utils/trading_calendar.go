package utils

import (
	"strings"
	"time"

	"github.com/scmhub/calendar"
)

// defaultMIC is used for symbols without a known exchange suffix.
const defaultMIC = "xnys"

// suffixToMIC maps Yahoo-style ticker suffixes to ISO 10383 MIC codes.
var suffixToMIC = map[string]string{
	".L":  "xlon",
	".PA": "xpar",
	".DE": "xfra",
	".AS": "xams",
	".MI": "xmil",
	".MC": "xmad",
	".ST": "xsto",
	".SW": "xswx",
	".TO": "xtse",
	".T":  "xtks",
	".HK": "xhkg",
	".AX": "xasx",
	".KS": "xkrx",
}

// TradingCalendar answers "is this exchange open right now".
type TradingCalendar struct {
	MIC      string
	Calendar *calendar.Calendar
	Fallback bool
	Timezone *time.Location
}

// -----------------------------------------------------------------------------

// MICForSymbol resolves the exchange of a symbol from its suffix.
func MICForSymbol(symbol string) string {
	if i := strings.LastIndex(symbol, "."); i > 0 {
		if mic, ok := suffixToMIC[strings.ToUpper(symbol[i:])]; ok {
			return mic
		}
	}
	return defaultMIC
}

// LoadCalendar returns the calendar for mic, falling back to NYSE and then
// to a plain Mon-Fri 09:30-16:00 New York session.
func LoadCalendar(mic string) *TradingCalendar {
	cal := calendar.GetCalendar(mic)
	if cal == nil && mic != defaultMIC {
		mic = defaultMIC
		cal = calendar.GetCalendar(mic)
	}

	if cal == nil {
		nyLoc, err := time.LoadLocation("America/New_York")
		if err != nil {
			nyLoc = time.UTC
		}
		return &TradingCalendar{MIC: mic, Fallback: true, Timezone: nyLoc}
	}

	return &TradingCalendar{MIC: mic, Calendar: cal, Timezone: cal.Loc}
}

// -----------------------------------------------------------------------------

// IsOpenAt checks if the market is open at t.
func (tc *TradingCalendar) IsOpenAt(t time.Time) bool {
	if tc.Timezone != nil {
		t = t.In(tc.Timezone)
	}

	if !tc.Fallback {
		return tc.Calendar.IsOpen(t)
	}

	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	minutes := t.Hour()*60 + t.Minute()
	return minutes >= 9*60+30 && minutes < 16*60
}
