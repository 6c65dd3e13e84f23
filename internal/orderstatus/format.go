package orderstatus

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Jakarta is the wall clock every date on the status page is rendered in.
var Jakarta *time.Location

func init() {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		loc = time.FixedZone("WIB", 7*60*60)
	}
	Jakarta = loc
}

var idPrinter = message.NewPrinter(language.Indonesian)

var (
	dayNames = [...]string{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"}

	monthNames = [...]string{
		"Januari", "Februari", "Maret", "April", "Mei", "Juni",
		"Juli", "Agustus", "September", "Oktober", "November", "Desember",
	}
)

// FormatCurrency renders whole rupiah with Indonesian grouping, e.g.
// 50000 -> "Rp 50.000".
func FormatCurrency(amount int64) string {
	if amount < 0 {
		// negate in uint64 so math.MinInt64 does not overflow
		return "-Rp " + idPrinter.Sprintf("%d", uint64(-(amount+1))+1)
	}
	return "Rp " + idPrinter.Sprintf("%d", amount)
}

// FormatDate renders t as "Rabu, 15 Oktober 2025" in Jakarta time.
func FormatDate(t time.Time) string {
	t = t.In(Jakarta)
	return fmt.Sprintf("%s, %d %s %d", dayNames[t.Weekday()], t.Day(), monthNames[t.Month()-1], t.Year())
}

// FormatTime renders t as "09:17" in Jakarta time.
func FormatTime(t time.Time) string {
	return t.In(Jakarta).Format("15:04")
}
