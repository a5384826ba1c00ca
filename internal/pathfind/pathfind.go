// Package pathfind provides unweighted shortest-path search over an
// implicit graph described by a neighbor function.
package pathfind

// Shortest runs a breadth-first search from start and returns the node
// sequence from start to the nearest node satisfying isTarget, both ends
// included. The start node itself is never treated as a target. ok is false
// when no target is reachable.
func Shortest[N comparable](start N, isTarget func(N) bool, neighbors func(N) []N) (path []N, ok bool) {
	parent := map[N]N{}
	visited := map[N]bool{start: true}
	queue := []N{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for _, next := range neighbors(cur) {
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = cur

			if isTarget(next) {
				return buildPath(parent, start, next), true
			}
			queue = append(queue, next)
		}
	}

	return nil, false
}

// Reachable returns every node reachable from start, in BFS order,
// start first.
func Reachable[N comparable](start N, neighbors func(N) []N) []N {
	visited := map[N]bool{start: true}
	order := []N{start}

	for i := 0; i < len(order); i++ {
		for _, next := range neighbors(order[i]) {
			if !visited[next] {
				visited[next] = true
				order = append(order, next)
			}
		}
	}

	return order
}

// buildPath walks parent links back from end and returns start..end.
func buildPath[N comparable](parent map[N]N, start, end N) []N {
	path := []N{end}
	for cur := end; cur != start; {
		cur = parent[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
