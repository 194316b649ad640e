package constants

// DocumentKind selects which extractor handles a document.
type DocumentKind string

const (
	KindReceipt   DocumentKind = "receipt"
	KindEnergy    DocumentKind = "energy"
	KindTransport DocumentKind = "transport"
)

var allKinds = []DocumentKind{KindReceipt, KindEnergy, KindTransport}

// ParseKind accepts the canonical names plus a few aliases used by uploaders.
func ParseKind(s string) (DocumentKind, bool) {
	switch normalizeWord(s) {
	case "receipt", "receipts", "shopping", "grocery":
		return KindReceipt, true
	case "energy", "bill", "utility", "electricity":
		return KindEnergy, true
	case "transport", "trip", "ride", "rides", "rideshare":
		return KindTransport, true
	}
	return "", false
}

// Kinds returns all document kinds as strings.
func Kinds() []string {
	out := make([]string, len(allKinds))
	for i, k := range allKinds {
		out[i] = string(k)
	}
	return out
}

// JobStatus is the outcome of processing one document.
type JobStatus string

// Stable values (stored verbatim and used as metric labels).
const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusOCROK     JobStatus = "OCR_OK"    // text extracted
	JobStatusParsed    JobStatus = "PARSED"    // structured record built
	JobStatusEstimated JobStatus = "ESTIMATED" // emissions attached
	JobStatusFailed    JobStatus = "FAILED"
)
