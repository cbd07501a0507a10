package notify

import (
	"fmt"
	"strings"
)

// Report is the data behind a coil-change production notification.
type Report struct {
	Machine      string
	Lot          string
	OutgoingLot  string
	CoilStatus   string
	Size         string
	FeedValue    float64
	CoilCount    int64
	DailyTotal   int64
	Shift        string
	UpdatedAt    string
}

// Identity returns the fields that make two reports "the same" for
// deduplication: machine, accumulated count, and format.
func (r *Report) Identity() string {
	return fmt.Sprintf("%s:%d:%s", r.Machine, r.CoilCount, r.Size)
}

// FormatProductionReport renders the coil-change report sent to production
// recipients.
func FormatProductionReport(r *Report) BodyVariants {
	var text strings.Builder
	fmt.Fprintf(&text, "PRODUCTION REPORT - %s\n", r.Machine)
	fmt.Fprintf(&text, "Time: %s\n", r.UpdatedAt)
	text.WriteString("==============================================\n")
	fmt.Fprintf(&text, "Current lot: %s\n", orNA(r.Lot))
	fmt.Fprintf(&text, "Closed coil lot: %s\n", orNA(r.OutgoingLot))
	fmt.Fprintf(&text, "Coil status: %s\n", orNA(r.CoilStatus))
	fmt.Fprintf(&text, "Format: %s\n", orNA(r.Size))
	fmt.Fprintf(&text, "Feed rate: %.4f inch\n", r.FeedValue)
	fmt.Fprintf(&text, "Coil production: %d cups\n", r.CoilCount)
	fmt.Fprintf(&text, "Daily total: %d cups\n", r.DailyTotal)
	fmt.Fprintf(&text, "Shift: %s\n", r.Shift)
	text.WriteString("==============================================\n")

	var html strings.Builder
	fmt.Fprintf(&html, "<h2>Production Report - %s</h2>", r.Machine)
	html.WriteString("<table border=\"1\" cellpadding=\"4\" cellspacing=\"0\">")
	row := func(k, v string) { fmt.Fprintf(&html, "<tr><td><b>%s</b></td><td>%s</td></tr>", k, v) }
	row("Time", r.UpdatedAt)
	row("Current lot", orNA(r.Lot))
	row("Closed coil lot", orNA(r.OutgoingLot))
	row("Coil status", orNA(r.CoilStatus))
	row("Format", orNA(r.Size))
	row("Feed rate", fmt.Sprintf("%.4f inch", r.FeedValue))
	row("Coil production", fmt.Sprintf("%d cups", r.CoilCount))
	row("Daily total", fmt.Sprintf("%d cups", r.DailyTotal))
	row("Shift", r.Shift)
	html.WriteString("</table>")

	return BodyVariants{Text: text.String(), HTML: html.String()}
}

// FormatSourceError renders a counter-source or reconciliation fault alert.
func FormatSourceError(machine, detail string) BodyVariants {
	text := fmt.Sprintf("ALERT - %s\n\n%s\n", machine, detail)
	html := fmt.Sprintf("<h2>Alert - %s</h2><p>%s</p>", machine, detail)
	return BodyVariants{Text: text, HTML: html}
}

// FormatStaleLotAlert renders the delayed "lot was not advanced after a coil
// change" alert.
func FormatStaleLotAlert(machine, lot string, scheduledAt string) BodyVariants {
	text := fmt.Sprintf("STALE LOT - %s\n\nLot %q is still active since the coil change at %s.\nPlease confirm the operator submitted the new lot.\n",
		machine, lot, scheduledAt)
	html := fmt.Sprintf("<h2>Stale lot - %s</h2><p>Lot <b>%s</b> is still active since the coil change at %s.</p><p>Please confirm the operator submitted the new lot.</p>",
		machine, lot, scheduledAt)
	return BodyVariants{Text: text, HTML: html}
}

// FormatLotAccepted renders the confirmation sent when an operator submits a
// new lot.
func FormatLotAccepted(machine, lot, coilType string) BodyVariants {
	text := fmt.Sprintf("Lot %s accepted for %s (coil type %s).\n", lot, machine, orNA(coilType))
	html := fmt.Sprintf("<p>Lot <b>%s</b> accepted for <b>%s</b> (coil type %s).</p>", lot, machine, orNA(coilType))
	return BodyVariants{Text: text, HTML: html}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
