package services

import (
	"sort"
	"strings"
	"time"

	"github.com/6tail/lunar-go/HolidayUtil"
	"github.com/6tail/lunar-go/calendar"
	"github.com/huangang/mealkiosk/pkg/logger"
	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/au"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/es"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/it"
	"github.com/rickar/cal/v2/jp"
	"github.com/rickar/cal/v2/nl"
	"github.com/rickar/cal/v2/nz"
	"github.com/rickar/cal/v2/us"
)

// CountryNone counts Monday to Friday as working days with no public holidays.
const (
	CountryNone  = "NONE"
	CountryChina = "CN"
)

var holidaySets = map[string]struct {
	name     string
	holidays []*cal.Holiday
}{
	"US": {"United States", us.Holidays},
	"GB": {"United Kingdom", gb.Holidays},
	"DE": {"Germany", de.Holidays},
	"FR": {"France", fr.Holidays},
	"JP": {"Japan", jp.Holidays},
	"AU": {"Australia (NSW)", au.HolidaysNSW},
	"CA": {"Canada", ca.Holidays},
	"NZ": {"New Zealand", nz.Holidays},
	"IT": {"Italy", it.Holidays},
	"ES": {"Spain", es.Holidays},
	"NL": {"Netherlands", nl.Holidays},
}

// WorkdayCalendar decides which dates the canteen is expected to serve.
// China uses the official adjusted working-day schedule from lunar-go; other
// countries use rickar/cal business calendars.
type WorkdayCalendar struct {
	country  string
	business *cal.BusinessCalendar
}

// NewWorkdayCalendar falls back to CountryNone for codes it has no holidays
// for, so Country always names the calendar actually in use.
func NewWorkdayCalendar(country string) *WorkdayCalendar {
	country = strings.ToUpper(strings.TrimSpace(country))
	w := &WorkdayCalendar{country: country}
	set, ok := holidaySets[country]
	switch {
	case ok:
		c := cal.NewBusinessCalendar()
		c.Name = set.name
		c.AddHoliday(set.holidays...)
		w.business = c
	case country == CountryChina, country == CountryNone:
	case country == "":
		w.country = CountryNone
	default:
		logger.Warn().
			Str("holiday_country", country).
			Strs("supported", SupportedCountries()).
			Msg("unsupported holiday country, counting Monday to Friday")
		w.country = CountryNone
	}
	return w
}

func (w *WorkdayCalendar) Country() string {
	return w.country
}

func (w *WorkdayCalendar) IsWorkday(t time.Time) bool {
	if w.country == CountryChina {
		solar := calendar.NewSolarFromDate(t)
		if h := HolidayUtil.GetHolidayByYmd(solar.GetYear(), solar.GetMonth(), solar.GetDay()); h != nil {
			return h.IsWork()
		}
		return !cal.IsWeekend(t)
	}
	if w.business != nil {
		return w.business.IsWorkday(t)
	}
	return !cal.IsWeekend(t)
}

// CountWorkdays counts working days from start to end, both inclusive.
func (w *WorkdayCalendar) CountWorkdays(start, end time.Time) int {
	start = time.Date(start.Year(), start.Month(), start.Day(), 12, 0, 0, 0, start.Location())
	end = time.Date(end.Year(), end.Month(), end.Day(), 12, 0, 0, 0, start.Location())
	n := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if w.IsWorkday(d) {
			n++
		}
	}
	return n
}

// SupportedCountries lists the accepted holiday_country codes.
func SupportedCountries() []string {
	codes := []string{CountryNone, CountryChina}
	for code := range holidaySets {
		codes = append(codes, code)
	}
	sort.Strings(codes[2:])
	return codes
}
