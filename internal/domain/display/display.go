// Package display turns records and statistics into presentation-ready
// values: grouped numbers, rounded averages, localized dates.
package display

import (
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/okian/scorekeep/internal/domain/model"
	"github.com/okian/scorekeep/internal/domain/stats"
)

// DefaultLocale matches the locale the scores were originally presented in.
const DefaultLocale = "es-ES"

// Formatter renders values for one locale. The zero value is not usable;
// create one with New.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
	dateFmt string
}

// New returns a formatter for locale, falling back to DefaultLocale when
// locale does not parse.
func New(locale string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.MustParse(DefaultLocale)
	}
	dateFmt := "02/01/2006"
	if region, _ := tag.Region(); region.String() == "US" {
		dateFmt = "01/02/2006"
	}
	return Formatter{tag: tag, printer: message.NewPrinter(tag), dateFmt: dateFmt}
}

// Locale returns the BCP 47 tag in use.
func (f Formatter) Locale() string { return f.tag.String() }

// Score groups digits the way the locale does.
func (f Formatter) Score(n int) string { return f.printer.Sprintf("%d", n) }

// Total is Score for the int64 sum.
func (f Formatter) Total(n int64) string { return f.printer.Sprintf("%d", n) }

// Average rounds half away from zero. Rounding happens here only; the
// stored statistic keeps full precision.
func (f Formatter) Average(avg float64) string {
	return f.printer.Sprintf("%d", int64(math.Round(avg)))
}

// Date renders a stored YYYY-MM-DD date for the locale. Anything that does
// not parse is returned as is.
func (f Formatter) Date(raw string) string {
	t, err := time.Parse(model.DateLayout, raw)
	if err != nil {
		return raw
	}
	return t.Format(f.dateFmt)
}

// Record is a score record with its rendered fields.
type Record struct {
	model.ScoreRecord
	Meter        float64 `json:"meter"`
	DisplayScore string  `json:"displayScore"`
	DisplayDate  string  `json:"displayDate"`
}

// Summary is Statistics with rendered fields.
type Summary struct {
	model.Statistics
	DisplayTotal   string `json:"displayTotal"`
	DisplayHighest string `json:"displayHighest"`
	DisplayAverage string `json:"displayAverage"`
}

// Records renders every record against the set's highest score.
func (f Formatter) Records(records []model.ScoreRecord, highest int) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = Record{
			ScoreRecord:  r,
			Meter:        stats.Meter(r.Score, highest),
			DisplayScore: f.Score(r.Score),
			DisplayDate:  f.Date(r.Date),
		}
	}
	return out
}

// Statistics renders s.
func (f Formatter) Statistics(s model.Statistics) Summary {
	return Summary{
		Statistics:     s,
		DisplayTotal:   f.Total(s.TotalScore),
		DisplayHighest: f.Score(s.HighestScore),
		DisplayAverage: f.Average(s.AverageScore),
	}
}
