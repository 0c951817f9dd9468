package routing

import "strings"

// Buckets are the outlet classes counted per route in the master route plan.
var Buckets = []string{"GOV", "NGO", "EMB", "CORP", "EDU", "SMKT", "EXPO", "RETAIL", "DIST", "CAF", "HOTEL", "REST"}

// BucketRetail is the default bucket.
const BucketRetail = "RETAIL"

var genericParty = map[string]bool{
	"COMPANY": true, "INDIVIDUAL": true, "OFFICE": true, "HQ": true, "HEAD OFFICE": true,
}

var bucketPatterns = []struct {
	bucket string
	words  []string
}{
	{"SMKT", []string{"SUPERMARKET", "HYPER"}},
	{"DIST", []string{"WHOLE", "DISTRIB"}},
	{"CAF", []string{"CAFE", "CAFÉ", "COFFEE"}},
	{"REST", []string{"RESTAURANT"}},
	{"GOV", []string{"GOV", "MINISTRY", "MUNIC"}},
	{"NGO", []string{"NGO", "FOUNDATION", "CHARITY"}},
	{"EMB", []string{"EMBASSY", "CONSUL"}},
	{"EDU", []string{"SCHOOL", "UNIVERSITY", "COLLEGE", "ACADEMY", "INSTITUTE"}},
	{"HOTEL", []string{"HOTEL", "RESORT"}},
	{"CORP", []string{"CORPORATE", "CORP"}},
}

// BucketFromText maps a free-text outlet type or channel to a bucket. Exact
// bucket labels win, then keyword patterns in a fixed order. Anything
// unrecognised, including generic words like "Company", is RETAIL.
func BucketFromText(v string) string {
	key := strings.ToUpper(strings.TrimSpace(v))
	if key == "" {
		return BucketRetail
	}
	for _, b := range Buckets {
		if key == b {
			return b
		}
	}
	if genericParty[key] {
		return BucketRetail
	}
	if key == "WS" {
		return "DIST"
	}
	for _, p := range bucketPatterns {
		for _, w := range p.words {
			if strings.Contains(key, w) {
				return p.bucket
			}
		}
	}
	return BucketRetail
}

// FirstNonEmpty returns the first value that is not blank.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
