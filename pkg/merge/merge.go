// Package merge provides pure list de-duplication helpers shared by every
// list-loading path. Keeping the tie-break behavior in one place avoids
// call sites drifting apart on how duplicate records are collapsed.
package merge

// ByKey collapses items into one record per distinct key.
//
// The output preserves the first-seen relative order of distinct keys, but
// each key's record is taken from its last occurrence in the input. The
// transform is stateless and idempotent: merging twice yields the same
// result as merging once.
func ByKey[T any, K comparable](items []T, key func(T) K) []T {
	if len(items) == 0 {
		return nil
	}

	latest := make(map[K]T, len(items))
	order := make([]K, 0, len(items))

	for _, item := range items {
		k := key(item)
		if _, seen := latest[k]; !seen {
			order = append(order, k)
		}
		latest[k] = item
	}

	out := make([]T, 0, len(order))
	for _, k := range order {
		out = append(out, latest[k])
	}
	return out
}

// Flatten concatenates several slices into one, preserving slice order then
// element order. Typically used to join paged results before ByKey.
func Flatten[T any](pages ...[]T) []T {
	total := 0
	for _, p := range pages {
		total += len(p)
	}
	if total == 0 {
		return nil
	}

	out := make([]T, 0, total)
	for _, p := range pages {
		out = append(out, p...)
	}
	return out
}
