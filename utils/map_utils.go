package utils

func CloneMap[K comparable, V any](m map[K]V) map[K]V {
	cloneM := make(map[K]V, len(m))
	for k, v := range m {
		cloneM[k] = v
	}
	return cloneM
}

// UniqueSlice drops repeated elements in place, keeping the first occurrence.
func UniqueSlice[K comparable](a []K) []K {
	m := make(map[K]bool)
	for i := 0; i < len(a); {
		v := a[i]
		if !m[v] {
			m[v] = true
			i++
			continue
		}
		a = append(a[:i], a[i+1:]...)
	}
	return a
}

// UniqueCopy is UniqueSlice on a copy of a, leaving the caller's slice alone.
func UniqueCopy[K comparable](a []K) []K {
	c := make([]K, len(a))
	copy(c, a)
	return UniqueSlice(c)
}
