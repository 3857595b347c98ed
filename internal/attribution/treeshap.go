package attribution

import "github.com/PrasanthKumarS777/loan-default-prediction-xai/internal/model"

// Exact tree attribution (Lundberg et al., polynomial-time Tree SHAP).
// A path element tracks one unique feature encountered on the way down
// a tree: the fraction of background paths that flow through when the
// feature is excluded from the coalition (zeroFraction), the indicator
// of whether the row's value follows this branch (oneFraction), and the
// permutation weight of each subset size (pweight). The invariants the
// recursion maintains give local accuracy and consistency by
// construction.

type pathElem struct {
	featureIndex int
	zeroFraction float64
	oneFraction  float64
	pweight      float64
}

// extendPath grows the path by one feature split, updating the subset
// weights in place. The first element is a dummy root with feature -1.
func extendPath(path []pathElem, zeroFraction, oneFraction float64, featureIndex int) []pathElem {
	path = append(path, pathElem{
		featureIndex: featureIndex,
		zeroFraction: zeroFraction,
		oneFraction:  oneFraction,
		pweight:      0,
	})

	l := len(path)
	if l == 1 {
		path[0].pweight = 1
		return path
	}

	for i := l - 2; i >= 0; i-- {
		path[i+1].pweight += oneFraction * path[i].pweight * float64(i+1) / float64(l)
		path[i].pweight = zeroFraction * path[i].pweight * float64(l-1-i) / float64(l)
	}

	return path
}

// unwindPath removes the path element at idx, reversing the weight
// updates extendPath applied for it.
func unwindPath(path []pathElem, idx int) []pathElem {
	d := len(path) - 1
	one := path[idx].oneFraction
	zero := path[idx].zeroFraction
	next := path[d].pweight

	for i := d - 1; i >= 0; i-- {
		if one != 0 {
			tmp := path[i].pweight
			path[i].pweight = next * float64(d+1) / (float64(i+1) * one)
			next = tmp - path[i].pweight*zero*float64(d-i)/float64(d+1)
		} else {
			path[i].pweight = path[i].pweight * float64(d+1) / (zero * float64(d-i))
		}
	}

	for i := idx; i < d; i++ {
		path[i].featureIndex = path[i+1].featureIndex
		path[i].zeroFraction = path[i+1].zeroFraction
		path[i].oneFraction = path[i+1].oneFraction
	}

	return path[:d]
}

// unwoundPathSum totals the permutation weights of the path as if the
// element at idx had been removed, without mutating the path.
func unwoundPathSum(path []pathElem, idx int) float64 {
	d := len(path) - 1
	one := path[idx].oneFraction
	zero := path[idx].zeroFraction
	next := path[d].pweight
	total := 0.0

	for i := d - 1; i >= 0; i-- {
		if one != 0 {
			tmp := next * float64(d+1) / (float64(i+1) * one)
			total += tmp
			next = path[i].pweight - tmp*zero*float64(d-i)/float64(d+1)
		} else if zero != 0 {
			total += path[i].pweight / zero * float64(d+1) / float64(d-i)
		}
	}

	return total
}

// treeShap accumulates the exact attribution of one tree into phi,
// reading the output slice out of each leaf value vector.
func treeShap(t *model.Tree, x []float64, phi []float64, out int) {
	shapRecurse(t, 0, nil, 1, 1, -1, x, phi, out)
}

// shapRecurse walks the tree keeping the path of unique features seen
// so far. Each call owns a copy of the parent path so sibling branches
// never observe each other's weight updates.
func shapRecurse(t *model.Tree, node int, parent []pathElem, zeroFraction, oneFraction float64, featureIndex int, x []float64, phi []float64, out int) {
	path := make([]pathElem, len(parent), len(parent)+1)
	copy(path, parent)
	path = extendPath(path, zeroFraction, oneFraction, featureIndex)

	if t.IsLeaf(node) {
		leaf := t.Values[node][out]
		for i := 1; i < len(path); i++ {
			w := unwoundPathSum(path, i)
			phi[path[i].featureIndex] += w * (path[i].oneFraction - path[i].zeroFraction) * leaf
		}
		return
	}

	split := t.Features[node]
	hot, cold := t.ChildrenLeft[node], t.ChildrenRight[node]
	if x[split] >= t.Thresholds[node] {
		hot, cold = cold, hot
	}

	// A feature split twice along one path contributes once: undo
	// the earlier occurrence and carry its fractions forward.
	incomingZero, incomingOne := 1.0, 1.0
	for k := 1; k < len(path); k++ {
		if path[k].featureIndex == split {
			incomingZero = path[k].zeroFraction
			incomingOne = path[k].oneFraction
			path = unwindPath(path, k)
			break
		}
	}

	cover := t.Covers[node]
	shapRecurse(t, hot, path, t.Covers[hot]/cover*incomingZero, incomingOne, split, x, phi, out)
	shapRecurse(t, cold, path, t.Covers[cold]/cover*incomingZero, 0, split, x, phi, out)
}

// expectedValue computes the cover-weighted mean leaf output of the
// subtree rooted at node, the model's expectation over the training
// background.
func expectedValue(t *model.Tree, node, out int) float64 {
	if t.IsLeaf(node) {
		return t.Values[node][out]
	}
	left, right := t.ChildrenLeft[node], t.ChildrenRight[node]
	return (t.Covers[left]*expectedValue(t, left, out) +
		t.Covers[right]*expectedValue(t, right, out)) / t.Covers[node]
}
