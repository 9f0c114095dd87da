package cluster

import (
	"sort"
	"strings"
)

// LabelSelector is an equality-based label selector.
//
// Only equality matching is needed here: every lookup in this control
// plane selects on exact label values.
type LabelSelector map[string]string

// QueryString renders the selector in the orchestrator's query syntax,
// "key1=value1,key2=value2". Keys are sorted so the expression is
// deterministic.
func (ls LabelSelector) QueryString() string {
	if len(ls) == 0 {
		return ""
	}

	keys := make([]string, 0, len(ls))
	for k := range ls {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b := &strings.Builder{}
	for i, k := range keys {
		if 0 < i {
			b.WriteRune(',')
		}
		b.WriteString(k)
		b.WriteRune('=')
		b.WriteString(ls[k])
	}
	return b.String()
}
