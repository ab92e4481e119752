package receipt

import (
	"fmt"
	"sort"
	"strings"
)

// VerdictTag classifies the outcome of validating one uploaded document
type VerdictTag string

const (
	VerdictNotAReceipt VerdictTag = "NOT_A_RECEIPT"
	VerdictUnreadable  VerdictTag = "UNREADABLE"
	VerdictValid       VerdictTag = "VALID"
)

// String returns the string representation of the verdict tag
func (t VerdictTag) String() string {
	return string(t)
}

// Verdict is the result of one validation attempt. Fields is populated only
// when Tag is VerdictValid. Verdicts are transient; they live only as long as
// the transcript entry they produce.
type Verdict struct {
	Tag    VerdictTag
	Fields map[string]string
}

// IsValid reports whether the document was accepted as a legible receipt
func (v *Verdict) IsValid() bool {
	return v.Tag == VerdictValid
}

// Summary renders the extracted fields as the receipt summary fed into the
// agent context. Field order is sorted so the rendering is deterministic.
func (v *Verdict) Summary() string {
	if v.Tag != VerdictValid {
		return ""
	}

	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Receipt details extracted from the uploaded document:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %s\n", k, v.Fields[k])
	}
	return b.String()
}
