package style

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrInvalidFilter is returned for a malformed filter expression.
var ErrInvalidFilter = errors.New("style: invalid filter")

// Filter reports whether a feature passes a layer filter.
type Filter func(f *geojson.Feature) bool

// acceptAll is the filter of a layer without one.
func acceptAll(*geojson.Feature) bool { return true }

// CompileFilter compiles a legacy filter expression such as
// ["all", ["==", "$type", "Point"], [">=", "rank", 3]]. A nil expression
// accepts every feature.
func CompileFilter(expr []any) (Filter, error) {
	if expr == nil {
		return acceptAll, nil
	}
	if len(expr) == 0 {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidFilter)
	}
	op, ok := expr[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: operator %v is not a string", ErrInvalidFilter, expr[0])
	}

	switch op {
	case "all", "any", "none":
		subs := make([]Filter, 0, len(expr)-1)
		for _, e := range expr[1:] {
			sub, ok := e.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s operand %v", ErrInvalidFilter, op, e)
			}
			f, err := CompileFilter(sub)
			if err != nil {
				return nil, err
			}
			subs = append(subs, f)
		}
		return combine(op, subs), nil

	case "has", "!has":
		key, err := filterKey(op, expr, 2)
		if err != nil {
			return nil, err
		}
		want := op == "has"
		return func(f *geojson.Feature) bool {
			_, ok := featureValue(f, key)
			return ok == want
		}, nil

	case "in", "!in":
		key, err := filterKey(op, expr, 1)
		if err != nil {
			return nil, err
		}
		values := expr[2:]
		want := op == "in"
		return func(f *geojson.Feature) bool {
			v, ok := featureValue(f, key)
			if !ok {
				return !want
			}
			for _, c := range values {
				if equalInputs(c, v) {
					return want
				}
			}
			return !want
		}, nil

	case "==", "!=", "<", "<=", ">", ">=":
		key, err := filterKey(op, expr, 3)
		if err != nil {
			return nil, err
		}
		return compare(op, key, expr[2]), nil

	default:
		return nil, fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, op)
	}
}

// filterKey validates the operand count (exact when n > 1, minimum
// otherwise) and returns the key operand.
func filterKey(op string, expr []any, n int) (string, error) {
	if len(expr) < 2 || (n > 1 && len(expr) != n) {
		return "", fmt.Errorf("%w: %s has %d operands", ErrInvalidFilter, op, len(expr)-1)
	}
	key, ok := expr[1].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s key %v is not a string", ErrInvalidFilter, op, expr[1])
	}
	return key, nil
}

func combine(op string, subs []Filter) Filter {
	switch op {
	case "all":
		return func(f *geojson.Feature) bool {
			for _, s := range subs {
				if !s(f) {
					return false
				}
			}
			return true
		}
	case "any":
		return func(f *geojson.Feature) bool {
			for _, s := range subs {
				if s(f) {
					return true
				}
			}
			return false
		}
	default:
		return func(f *geojson.Feature) bool {
			for _, s := range subs {
				if s(f) {
					return false
				}
			}
			return true
		}
	}
}

// compare matches only values of the same kind; a number never equals a
// string.
func compare(op, key string, want any) Filter {
	return func(f *geojson.Feature) bool {
		v, ok := featureValue(f, key)
		if !ok {
			return op == "!="
		}
		switch op {
		case "==":
			return equalInputs(v, want)
		case "!=":
			return !equalInputs(v, want)
		}

		if x, ok := toFloat(v); ok {
			y, ok := toFloat(want)
			if !ok {
				return false
			}
			return ordered(op, x < y, x == y)
		}
		x, ok1 := v.(string)
		y, ok2 := want.(string)
		if !ok1 || !ok2 {
			return false
		}
		return ordered(op, x < y, x == y)
	}
}

func ordered(op string, less, equal bool) bool {
	switch op {
	case "<":
		return less
	case "<=":
		return less || equal
	case ">":
		return !less && !equal
	default:
		return !less
	}
}

// featureValue resolves a filter key. "$type" is the geometry class and
// "$id" the feature identifier.
func featureValue(f *geojson.Feature, key string) (any, bool) {
	switch key {
	case "$type":
		return geometryClass(f.Geometry), true
	case "$id":
		return f.ID, f.ID != nil
	}
	v, ok := f.Properties[key]
	return v, ok
}

func geometryClass(g orb.Geometry) string {
	switch g.(type) {
	case orb.Point, orb.MultiPoint:
		return "Point"
	case orb.LineString, orb.MultiLineString:
		return "LineString"
	case orb.Polygon, orb.MultiPolygon, orb.Ring:
		return "Polygon"
	default:
		return "Unknown"
	}
}
