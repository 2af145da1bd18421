package migrate

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// BaselineVersion is the schema every fresh database starts at.
const BaselineVersion = 1

// Converter upgrades the persisted schema to TargetVersion. Convert is called
// at most once per database, after every lower version has been applied.
type Converter interface {
	TargetVersion() int
	Convert(ctx context.Context) error
}

type funcConverter struct {
	version int
	name    string
	fn      func(ctx context.Context) error
}

func (c funcConverter) TargetVersion() int                { return c.version }
func (c funcConverter) Convert(ctx context.Context) error { return c.fn(ctx) }
func (c funcConverter) String() string                    { return c.name }

// ConverterFunc adapts fn into a Converter targeting version.
func ConverterFunc(version int, name string, fn func(ctx context.Context) error) Converter {
	return funcConverter{version: version, name: name, fn: fn}
}

// converterName returns a printable name for c.
func converterName(c Converter) string {
	if s, ok := c.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", c)
}

// Registry holds the converters known to the binary. Converters are added
// explicitly at startup; the set is only checked by Validate so that a bad
// registration surfaces as a single startup failure.
type Registry struct {
	converters []Converter
}

// NewRegistry returns a registry containing converters.
func NewRegistry(converters ...Converter) *Registry {
	r := &Registry{}
	r.Register(converters...)
	return r
}

// Register adds converters. Nil entries are ignored.
func (r *Registry) Register(converters ...Converter) {
	for _, c := range converters {
		if c != nil {
			r.converters = append(r.converters, c)
		}
	}
}

// MustRegister adds converters and panics if the resulting set fails
// Validate. The registry is left unchanged when it panics. Use it for
// converter sets compiled into the binary.
func (r *Registry) MustRegister(converters ...Converter) {
	prev := len(r.converters)
	r.Register(converters...)
	if err := r.Validate(); err != nil {
		r.converters = r.converters[:prev]
		panic(fmt.Sprintf("migrate: %v", err))
	}
}

// Len returns the number of registered converters.
func (r *Registry) Len() int {
	return len(r.converters)
}

// Validate checks that versions are unique, positive and contiguous. The
// chain may begin at the baseline itself or directly after it.
func (r *Registry) Validate() error {
	var errs []error
	seen := make(map[int]Converter, len(r.converters))

	for _, c := range r.converters {
		v := c.TargetVersion()
		if v < 1 {
			errs = append(errs, fmt.Errorf("%s: version %d: %w", converterName(c), v, ErrInvalidVersion))
			continue
		}
		if prev, ok := seen[v]; ok {
			errs = append(errs, fmt.Errorf("%s and %s both target version %d: %w",
				converterName(prev), converterName(c), v, ErrDuplicateVersion))
			continue
		}
		seen[v] = c
	}

	versions := sortedKeys(seen)
	if len(versions) > 0 && versions[0] > BaselineVersion+1 {
		errs = append(errs, fmt.Errorf("first converter targets version %d, expected %d or %d: %w",
			versions[0], BaselineVersion, BaselineVersion+1, ErrVersionGap))
	}
	for i := 1; i < len(versions); i++ {
		if versions[i] != versions[i-1]+1 {
			errs = append(errs, fmt.Errorf("%s: prev converter version = %d, current converter version = %d: %w",
				converterName(seen[versions[i]]), versions[i-1], versions[i], ErrVersionGap))
		}
	}

	return errors.Join(errs...)
}

// Latest returns the highest target version, or BaselineVersion when no
// converter is registered.
func (r *Registry) Latest() int {
	latest := BaselineVersion
	for _, c := range r.converters {
		if v := c.TargetVersion(); v > latest {
			latest = v
		}
	}
	return latest
}

// Pending returns the versions that would be applied to a database at
// current, in application order.
func (r *Registry) Pending(current int) []int {
	byVersion := r.byVersion()
	var pending []int
	for v := current + 1; ; v++ {
		if _, ok := byVersion[v]; !ok {
			break
		}
		pending = append(pending, v)
	}
	return pending
}

// Get returns the converter for version.
func (r *Registry) Get(version int) (Converter, bool) {
	for _, c := range r.converters {
		if c.TargetVersion() == version {
			return c, true
		}
	}
	return nil, false
}

func (r *Registry) byVersion() map[int]Converter {
	m := make(map[int]Converter, len(r.converters))
	for _, c := range r.converters {
		if _, ok := m[c.TargetVersion()]; !ok {
			m[c.TargetVersion()] = c
		}
	}
	return m
}

func sortedKeys(m map[int]Converter) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
