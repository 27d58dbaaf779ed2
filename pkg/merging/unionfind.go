package merging

// unionFind is a disjoint-set over record indexes, used to fold pairwise
// automatic merges into connected components
type unionFind struct {
	parent []int
}

func newUnionFind(size int) *unionFind {
	parent := make([]int, size)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]] // path halving
		x = u.parent[x]
	}
	return x
}

// union links two sets; the smaller root index wins so component
// representatives are stable across runs
func (u *unionFind) union(a, b int) {
	rootA := u.find(a)
	rootB := u.find(b)
	if rootA == rootB {
		return
	}
	if rootA < rootB {
		u.parent[rootB] = rootA
	} else {
		u.parent[rootA] = rootB
	}
}
