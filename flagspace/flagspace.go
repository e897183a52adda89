package flagspace

import (
	"fmt"
	"strings"
)

// Flag is a combination of capability bits drawn from a single Space.
// Callers combine flags with the ordinary bitwise operators.
type Flag uint64

// None is the empty flag combination. It selects nothing.
const None Flag = 0

// MaxFlags is the number of names a single Space can hold, bounded by the
// width of Flag.
const MaxFlags = 64

// Space is an immutable enumeration of named capability bits. The i-th
// declared name is assigned the bit 2^i, in declaration order. A Space is
// safe to share by reference across any number of registries.
type Space struct {
	names  []string
	byName map[string]Flag
	all    Flag
}

// reserved returns true for names that collide with the synthetic members.
func reserved(name string) bool {
	switch name {
	case "ALL", "NONE", "None":
		return true
	}
	return false
}

// New builds a Space from an ordered list of distinct names.
func New(names ...string) (*Space, error) {
	if len(names) == 0 {
		return nil, &ConfigError{Message: "flag space requires at least one name"}
	}
	if len(names) > MaxFlags {
		return nil, &ConfigError{Message: fmt.Sprintf("flag space holds at most %d names, got %d", MaxFlags, len(names))}
	}

	s := &Space{
		names:  make([]string, 0, len(names)),
		byName: make(map[string]Flag, len(names)),
	}
	for i, name := range names {
		if name == "" {
			return nil, &ConfigError{Message: fmt.Sprintf("flag name at position %d is empty", i)}
		}
		if reserved(name) {
			return nil, &ConfigError{Message: fmt.Sprintf("flag name %q is reserved", name)}
		}
		if _, exists := s.byName[name]; exists {
			return nil, &ConfigError{Message: fmt.Sprintf("duplicate flag name %q", name)}
		}
		bit := Flag(1) << i
		s.names = append(s.names, name)
		s.byName[name] = bit
		s.all |= bit
	}
	return s, nil
}

// Value looks up the bit for a declared name. The aliases "None" and "NONE"
// always resolve to zero, and "ALL" resolves to the union of every declared
// bit. Any other unknown name is an UnknownFlagError.
func (s *Space) Value(name string) (Flag, error) {
	switch name {
	case "None", "NONE":
		return None, nil
	case "ALL":
		return s.all, nil
	}
	bit, ok := s.byName[name]
	if !ok {
		return None, &UnknownFlagError{Name: name}
	}
	return bit, nil
}

// MustValue is Value for names known to be declared. It panics on an
// unknown name and is intended for setup-time registration code.
func (s *Space) MustValue(name string) Flag {
	bit, err := s.Value(name)
	if err != nil {
		panic(err)
	}
	return bit
}

// Union resolves each given name with Value and returns the bitwise OR of
// the results.
func (s *Space) Union(names ...string) (Flag, error) {
	var combined Flag
	for _, name := range names {
		bit, err := s.Value(name)
		if err != nil {
			return None, err
		}
		combined |= bit
	}
	return combined, nil
}

// All returns the union of every declared bit.
func (s *Space) All() Flag {
	return s.all
}

// Len returns the number of declared names.
func (s *Space) Len() int {
	return len(s.names)
}

// Names returns the declared names in declaration order.
func (s *Space) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Contains reports whether every bit of f belongs to this space.
func (s *Space) Contains(f Flag) bool {
	return f&^s.all == 0
}

// Name returns the declared name for a single bit.
func (s *Space) Name(bit Flag) (string, bool) {
	if bit == 0 || bit&(bit-1) != 0 {
		return "", false
	}
	for i, name := range s.names {
		if Flag(1)<<i == bit {
			return name, true
		}
	}
	return "", false
}

// Describe renders the set bits of f as declared names, in declaration
// order. Bits outside the space are rendered in hex.
func (s *Space) Describe(f Flag) []string {
	var out []string
	for i, name := range s.names {
		if f&(Flag(1)<<i) != 0 {
			out = append(out, name)
		}
	}
	if rest := f &^ s.all; rest != 0 {
		out = append(out, fmt.Sprintf("0x%x", uint64(rest)))
	}
	return out
}

// String renders the space as "name=bit" pairs in declaration order.
func (s *Space) String() string {
	var b strings.Builder
	b.WriteString("flagspace[")
	for i, name := range s.names {
		if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "%s=%d", name, uint64(Flag(1)<<i))
	}
	b.WriteString("]")
	return b.String()
}
