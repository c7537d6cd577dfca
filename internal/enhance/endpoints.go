package enhance

import (
	"apiguard/internal/contract"
	"apiguard/internal/diff"
)

// EndpointsInDiff lists the keys of after contracts whose route declaration the diff touches:
// a declaration on a changed line, or the declaration a changed line belongs to. Keys follow
// the order of after.
func EndpointsInDiff(after []contract.Contract, diffText string) []string {
	var touched []contract.Declaration
	for _, l := range annotate(diff.Lines(diffText)) {
		if l.Kind == diff.LineContext {
			continue
		}
		if l.decl != nil {
			touched = append(touched, *l.decl)
		} else if l.owner != nil {
			touched = append(touched, l.owner.decl)
		}
	}

	keys := []string{}
	seen := make(map[contract.Key]bool)
	for _, c := range after {
		k := c.Key()
		if seen[k] {
			continue
		}
		for _, d := range touched {
			if declares(d, k.Method, k.Path) {
				seen[k] = true
				keys = append(keys, k.String())
				break
			}
		}
	}
	return keys
}
