package enrichment

import (
	"regexp"
	"strings"
)

var bracketID = regexp.MustCompile(`\s*\[([^\]]+)\]`)

// ExtractID splits a decorated term label "<name> [<ID>]" into the cleaned
// name and the identifier inside the last bracket pair. Labels without a
// bracket pair return the trimmed label and an empty ID.
func ExtractID(label string) (name, id string) {
	matches := bracketID.FindAllStringSubmatchIndex(label, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(label), ""
	}
	last := matches[len(matches)-1]
	id = label[last[2]:last[3]]
	name = strings.TrimSpace(label[:last[0]] + label[last[1]:])
	return name, id
}
