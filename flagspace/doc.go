// Package flagspace defines immutable spaces of named capability flags.
//
// A space assigns one bit to each declared name: the first name gets bit 1,
// the second bit 2, the third bit 4, and so on in declaration order. Two
// synthetic members always exist: NONE (zero) and ALL (the union of every
// declared bit). Combining flags is done with ordinary bitwise operators on
// the returned values:
//
//	space, err := flagspace.New("BASE", "LISTENERS", "RULES")
//	if err != nil {
//		return err
//	}
//	listeners := space.MustValue("LISTENERS")
//	rules := space.MustValue("RULES")
//	wanted := listeners | rules
//
// A Space is immutable after construction and safe to share across any
// number of registries.
package flagspace
