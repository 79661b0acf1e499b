package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"bookpipe/internal/pipeline"
)

// Summary renders the counters of a run followed by the defaulted fields.
func Summary(s pipeline.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s finished in %s\n\n", s.RunID, s.Duration.Round(1e6))

	counts := [][]string{
		{"received", strconv.Itoa(s.Received)},
		{"stored", strconv.Itoa(s.Stored)},
		{"dropped", strconv.Itoa(s.Dropped)},
		{"invalid", strconv.Itoa(s.Invalid)},
	}

	b.WriteString(strings.Join(Table([]string{"Items", "Count"}, counts), "\n"))
	b.WriteString("\n")

	if len(s.Defaults) == 0 {
		return b.String()
	}

	keys := make([]pipeline.DefaultKey, 0, len(s.Defaults))
	for k := range s.Defaults {
		keys = append(keys, k)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Field != keys[j].Field {
			return keys[i].Field < keys[j].Field
		}

		return keys[i].Reason < keys[j].Reason
	})

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k.Field, string(k.Reason), strconv.Itoa(s.Defaults[k])})
	}

	b.WriteString("\n")
	b.WriteString(strings.Join(Table([]string{"Field", "Reason", "Defaulted"}, rows), "\n"))
	b.WriteString("\n")

	return b.String()
}
