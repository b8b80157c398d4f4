package brackets

import "slices"

// MinimalGroupSize shrinks groupSize while every one of the
// ceil(numPlayers/groupSize) groups would still have a free slot.
func MinimalGroupSize(numPlayers, groupSize int) int {
	if numPlayers < 1 || groupSize < 1 {
		return groupSize
	}
	numGroups := (numPlayers + groupSize - 1) / groupSize
	for groupSize > 1 && numGroups*groupSize-numPlayers >= numGroups {
		groupSize--
	}
	return groupSize
}

// Group splits seeds 1..numPlayers into ceil(numPlayers/groupSize) groups
// whose sizes differ by at most one. Seeds are dealt in pairs (a, model+1-a)
// so every group gets an even share of strong and weak seeds. Each group is
// returned sorted ascending.
func Group(numPlayers, groupSize int) [][]int {
	if numPlayers < 1 || groupSize < 1 {
		return nil
	}
	numGroups := (numPlayers + groupSize - 1) / groupSize
	groupSize = MinimalGroupSize(numPlayers, groupSize)
	model := numGroups * groupSize

	groups := make([][]int, numGroups)
	for i := range groups {
		groups[i] = make([]int, 0, groupSize)
	}

	for row := 0; row < groupSize/2; row++ {
		for g := 0; g < numGroups; g++ {
			a := 1 + row*numGroups + g
			groups[g] = append(groups[g], a, model+1-a)
		}
	}
	if groupSize%2 == 1 {
		start := (groupSize / 2) * numGroups
		for g := 0; g < numGroups; g++ {
			groups[g] = append(groups[g], start+g+1)
		}
	}

	for i, grp := range groups {
		grp = slices.DeleteFunc(grp, func(s int) bool { return s > numPlayers })
		slices.Sort(grp)
		groups[i] = grp
	}
	return groups
}
