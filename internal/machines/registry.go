package machines

import (
	"fmt"
	"strings"
)

// HeadSize is the number of leading bytes inspected for format detection.
const HeadSize = 1024

// detectionOrder lists adapters from most to least specific signature. The
// CSV heuristics also check the header delimiter, so a ';' export is only
// ever claimed by Probat whatever the order.
var detectionOrder = []Adapter{Probat, Cropster, Artisan}

// Adapters returns the registered adapters in detection order.
func Adapters() []Adapter {
	return append([]Adapter(nil), detectionOrder...)
}

// Lookup returns the adapter registered under name.
func Lookup(name string) (Adapter, error) {
	for _, a := range detectionOrder {
		if strings.EqualFold(a.Name(), strings.TrimSpace(name)) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("unknown adapter %q", name)
}

// Head returns the detection prefix of content as text.
func Head(content []byte) string {
	if len(content) > HeadSize {
		content = content[:HeadSize]
	}
	return decodeText(content)
}

// Detect picks the adapter for a file. An explicit hint naming a registered
// adapter wins; otherwise the first adapter whose signature matches is used,
// falling back to Artisan.
func Detect(hint, filename string, content []byte) Adapter {
	if hint != "" {
		if a, err := Lookup(hint); err == nil {
			return a
		}
	}
	head := Head(content)
	for _, a := range detectionOrder {
		if a.Detect(filename, head) {
			return a
		}
	}
	return Artisan
}

// headerLine returns the first non-blank line of head.
func headerLine(head string) string {
	for line := range strings.Lines(head) {
		if l := strings.TrimSpace(line); l != "" {
			return l
		}
	}
	return ""
}

// semicolonHeader reports whether the header row splits on ';' rather than ','.
func semicolonHeader(head string) bool {
	line := headerLine(head)
	return strings.Count(line, ";") > strings.Count(line, ",")
}
