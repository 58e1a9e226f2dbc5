package platform

// DefaultQuerier evaluates By queries with a depth-first walk of the given
// roots. Results are in document order.
type DefaultQuerier struct{}

func (DefaultQuerier) FindMatch(by By, roots []Node) (Node, bool) {
	var found Node
	Walk(roots, func(n Node) bool {
		if by.Matches(n.Info()) {
			found = n
			return false
		}
		return true
	})
	return found, found != nil
}

func (DefaultQuerier) FindMatches(by By, roots []Node) []Node {
	var result []Node
	Walk(roots, func(n Node) bool {
		if by.Matches(n.Info()) {
			result = append(result, n)
		}
		return true
	})
	return result
}

// Walk visits every node under roots depth-first in document order, roots
// included. The walk stops as soon as visit returns false.
func Walk(roots []Node, visit func(Node) bool) bool {
	for _, r := range roots {
		if r == nil {
			continue
		}
		if !visit(r) {
			return false
		}
		if !Walk(r.Children(), visit) {
			return false
		}
	}
	return true
}
