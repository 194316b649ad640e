package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/joseph-ayodele/ecoscore/constants"
)

var (
	reDateRange   = regexp.MustCompile(`(?i)\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})\s*(?:to|-|through|thru|–|—)\s*\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`)
	rePeriodHint  = regexp.MustCompile(`(?i)(billing|service)\s*(period|dates|from)`)
	reKWh         = regexp.MustCompile(`(?i)\b([\d,]+(?:\.\d+)?)\s*kwh\b`)
	reTotalKWh    = regexp.MustCompile(`(?i)(total\s*(usage|kwh|electric(ity)?\s*usage)|kwh\s*used|usage\s*this\s*period)`)
	rePeak        = regexp.MustCompile(`(?i)\b(on[-\s]*peak|peak)\b`)
	reOffPeak     = regexp.MustCompile(`(?i)\b(off[-\s]*peak|offpeak)\b`)
	reMidPeak     = regexp.MustCompile(`(?i)\b(mid[-\s]*peak|shoulder)\b`)
	reSupplier    = regexp.MustCompile(`(?i)(supplier|provider|generation\s+service|supply|plan|tariff|rate)\s*[:\-]?\s*(.+)`)
	reGreen       = regexp.MustCompile(`(?i)(green|renewable|100%\s*(wind|solar|renewable)|recs?\b|class\s*i)`)
	reAddressHint = regexp.MustCompile(`(?i)(svc\s*addr|service\s*(addr|address|location)|service\s*provided\s*to)`)
	reZip         = regexp.MustCompile(`\b\d{5}(?:-\d{4})?\b`)
	reUtilityHint = regexp.MustCompile(`(?i)(electric|power|energy|utilities|utility|company|co-op|cooperative|public service|eversource|pg&e|coned|duke|dominion|aps|sdge|sce)`)
	reExport      = regexp.MustCompile(`(?i)(export(ed)?|delivered\s+to\s+grid|to\s+grid|sent\s+to\s+grid)\D{0,40}([\d,]+(?:\.\d+)?)\s*kwh`)
	reImport      = regexp.MustCompile(`(?i)(import(ed)?|received\s+from\s+grid|from\s+grid|delivered\s+from\s+grid)\D{0,40}([\d,]+(?:\.\d+)?)\s*kwh`)
	reNetMeter    = regexp.MustCompile(`(?i)net\s*meter`)
	reHomeShare   = regexp.MustCompile(`(?i)(your|tenant|apartment|unit)\s*(share|portion|allocation)\D{0,20}(\d{1,2}(?:\.\d+)?)\s*%`)
	reTDLoss      = regexp.MustCompile(`(?i)(t&d|transmission\s+and\s+distribution|loss\s*factor|line\s*loss(?:es)?)\D{0,20}(\d{1,2}(?:\.\d+)?)\s*%`)
)

const (
	utilityScanLines = 15
	addressScanLines = 200
	periodScanLines  = 250
	maxPlausibleKWh  = 100000
	supplierMaxRunes = 120
	greenMaxRunes    = 160
)

// billScan is the shared, read-only view every energy finder works from.
type billScan struct {
	lines []string
}

// fieldFinder recovers one group of bill fields. Finders never read each
// other's output, so the table can be applied in any order.
type fieldFinder struct {
	name string
	find func(bs billScan, rec *EnergyBillRecord)
}

var energyFinders = []fieldFinder{
	{"utility_name", findUtilityName},
	{"service_address", findServiceAddress},
	{"billing_period", findBillingPeriod},
	{"total_kwh", findTotalKWh},
	{"time_of_use", findTimeOfUse},
	{"supplier", findSupplier},
	{"onsite", findOnsite},
	{"home_share_percent", findHomeShare},
	{"td_loss_percent", findTDLoss},
}

// EnergyFields lists the field groups the energy extractor looks for.
func EnergyFields() []string {
	out := make([]string, len(energyFinders))
	for i, f := range energyFinders {
		out[i] = f.name
	}
	return out
}

// ExtractEnergy scans a normalized utility bill for billing-period usage.
// Missing fields stay nil; that is a normal outcome, not an error.
func ExtractEnergy(text string) EnergyBillRecord {
	bs := billScan{lines: Lines(text)}
	var rec EnergyBillRecord
	for _, f := range energyFinders {
		f.find(bs, &rec)
	}
	rec.AccountingMethod = accountingMethod(rec.Supplier)
	return rec
}

func accountingMethod(s *Supplier) constants.AccountingMethod {
	if s == nil {
		return constants.LocationBased
	}
	if s.GreenAttributes != nil {
		return constants.MarketBased
	}
	if s.Name != nil {
		n := strings.ToLower(*s.Name)
		if strings.Contains(n, "green") || strings.Contains(n, "renewable") {
			return constants.MarketBased
		}
	}
	return constants.LocationBased
}

func findUtilityName(bs billScan, rec *EnergyBillRecord) {
	for i, l := range bs.lines {
		if i >= utilityScanLines {
			break
		}
		if reUtilityHint.MatchString(l) && !IsSummaryLine(l) {
			rec.UtilityName = strPtr(l)
			return
		}
	}
	for _, l := range bs.lines {
		if !IsSummaryLine(l) {
			rec.UtilityName = strPtr(l)
			return
		}
	}
}

func findServiceAddress(bs billScan, rec *EnergyBillRecord) {
	lines := bs.lines
	for i, l := range lines {
		if i >= addressScanLines {
			break
		}
		if !reAddressHint.MatchString(l) {
			continue
		}
		addr := l
		if i+1 < len(lines) {
			addr += " " + lines[i+1]
		}
		rec.ServiceAddress = strPtr(addr)
		if z := reZip.FindString(addr); z != "" {
			rec.ZipCode = strPtr(z)
		} else if i+2 < len(lines) {
			if z := reZip.FindString(lines[i+2]); z != "" {
				rec.ZipCode = strPtr(z)
			}
		}
		break
	}
	if rec.ZipCode == nil {
		if z := reZip.FindString(strings.Join(lines, " ")); z != "" {
			rec.ZipCode = strPtr(z)
		}
	}
}

func findBillingPeriod(bs billScan, rec *EnergyBillRecord) {
	for i, l := range bs.lines {
		if i >= periodScanLines {
			break
		}
		m := reDateRange.FindStringSubmatch(l)
		if m == nil {
			// a hint line without a parseable range is skipped
			continue
		}
		start, okStart := parseNumericDate(m[1])
		end, okEnd := parseNumericDate(m[2])
		if okStart {
			rec.BillingPeriodStart = strPtr(start.Format(isoDate))
		}
		if okEnd {
			rec.BillingPeriodEnd = strPtr(end.Format(isoDate))
		}
		if okStart && okEnd {
			if d := daysBetween(start, end); d != 0 {
				rec.Days = &d
			}
		}
		return
	}
}

func findTotalKWh(bs billScan, rec *EnergyBillRecord) {
	for _, l := range bs.lines {
		if !reTotalKWh.MatchString(l) {
			continue
		}
		for _, m := range reKWh.FindAllStringSubmatch(l, -1) {
			if v, ok := parseNumber(m[1]); ok {
				rec.TotalKWh = floatPtr(v)
				return
			}
		}
	}

	// Fallback: the largest plausible kWh figure. A sub-component larger than
	// the real total will win here; kept as-is for compatibility.
	var best *float64
	for _, l := range bs.lines {
		for _, m := range reKWh.FindAllStringSubmatch(l, -1) {
			v, ok := parseNumber(m[1])
			if !ok || v >= maxPlausibleKWh {
				continue
			}
			if best == nil || v > *best {
				best = floatPtr(v)
			}
		}
	}
	rec.TotalKWh = best
}

func findTimeOfUse(bs billScan, rec *EnergyBillRecord) {
	var tou TimeOfUse
	firstKWh := func(l string) *float64 {
		if m := reKWh.FindStringSubmatch(l); m != nil {
			if v, ok := parseNumber(m[1]); ok {
				return floatPtr(v)
			}
		}
		return nil
	}
	for _, l := range bs.lines {
		off, mid := reOffPeak.MatchString(l), reMidPeak.MatchString(l)
		if tou.PeakKWh == nil && rePeak.MatchString(l) && !off && !mid {
			tou.PeakKWh = firstKWh(l)
		}
		if tou.OffPeakKWh == nil && off {
			tou.OffPeakKWh = firstKWh(l)
		}
		if tou.MidPeakKWh == nil && mid {
			tou.MidPeakKWh = firstKWh(l)
		}
	}
	if tou.PeakKWh != nil || tou.OffPeakKWh != nil || tou.MidPeakKWh != nil {
		rec.TimeOfUse = &tou
	}
}

func findSupplier(bs billScan, rec *EnergyBillRecord) {
	var s Supplier
	for _, l := range bs.lines {
		if m := reSupplier.FindStringSubmatch(l); m != nil && !IsSummaryLine(l) {
			val := truncateRunes(strings.TrimSpace(m[2]), supplierMaxRunes)
			switch {
			case val == "":
			case s.Name == nil:
				s.Name = strPtr(val)
			case s.Plan == nil && val != *s.Name:
				s.Plan = strPtr(val)
			}
		}
		if s.GreenAttributes == nil && reGreen.MatchString(l) {
			s.GreenAttributes = strPtr(truncateRunes(l, greenMaxRunes))
		}
	}
	if s.Name != nil || s.Plan != nil || s.GreenAttributes != nil {
		rec.Supplier = &s
	}
}

func findOnsite(bs billScan, rec *EnergyBillRecord) {
	o := Onsite{NetMetering: reNetMeter.MatchString(strings.Join(bs.lines, " "))}
	for _, l := range bs.lines {
		if o.ExportKWh == nil {
			if m := reExport.FindStringSubmatch(l); m != nil {
				if v, ok := parseNumber(m[3]); ok {
					o.ExportKWh = floatPtr(v)
				}
			}
		}
		if o.ImportKWh == nil {
			if m := reImport.FindStringSubmatch(l); m != nil {
				if v, ok := parseNumber(m[3]); ok {
					o.ImportKWh = floatPtr(v)
				}
			}
		}
	}
	if o.ImportKWh != nil || o.ExportKWh != nil || o.NetMetering {
		rec.Onsite = &o
	}
}

func findHomeShare(bs billScan, rec *EnergyBillRecord) {
	rec.HomeSharePercent = firstPercent(bs.lines, reHomeShare, 3)
}

func findTDLoss(bs billScan, rec *EnergyBillRecord) {
	rec.TDLossPercent = firstPercent(bs.lines, reTDLoss, 2)
}

func firstPercent(lines []string, re *regexp.Regexp, group int) *float64 {
	for _, l := range lines {
		m := re.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		if v, ok := parseNumber(m[group]); ok {
			return floatPtr(v)
		}
		return nil
	}
	return nil
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
