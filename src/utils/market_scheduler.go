package utils

import (
	"sync"
	"time"

	"market-streamer/src/logger"
)

// MarketHours filters symbols down to those whose exchange is in session.
// Calendars are loaded lazily per MIC and cached.
type MarketHours struct {
	Logger    *logger.Logger
	calendars map[string]*TradingCalendar
	load      func(mic string) *TradingCalendar
	mu        sync.Mutex
}

// -----------------------------------------------------------------------------

func NewMarketHours(l *logger.Logger) *MarketHours {
	return &MarketHours{
		Logger:    l,
		calendars: make(map[string]*TradingCalendar),
		load:      LoadCalendar,
	}
}

// -----------------------------------------------------------------------------

func (mh *MarketHours) calendarFor(symbol string) *TradingCalendar {
	mic := MICForSymbol(symbol)

	mh.mu.Lock()
	defer mh.mu.Unlock()

	cal, ok := mh.calendars[mic]
	if !ok {
		cal = mh.load(mic)
		mh.calendars[mic] = cal
		if cal.Fallback {
			mh.Logger.Warning("MarketHours: no calendar for %s, using Mon-Fri 09:30-16:00 New York", mic)
		}
	}
	return cal
}

// IsOpen reports whether symbol's exchange is open at t
func (mh *MarketHours) IsOpen(symbol string, t time.Time) bool {
	return mh.calendarFor(symbol).IsOpenAt(t)
}

// FilterOpen keeps the symbols whose exchange is open at t, preserving order
func (mh *MarketHours) FilterOpen(symbols []string, t time.Time) []string {
	open := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if mh.IsOpen(sym, t) {
			open = append(open, sym)
		}
	}
	return open
}
