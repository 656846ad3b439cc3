// Package middleware groups huma middlewares shared by several routes.
package middleware

import "github.com/danielgtaylor/huma/v2"

// Func is a single huma middleware.
type Func = func(ctx huma.Context, next func(huma.Context))

// Set is an ordered, immutable list of middlewares.
type Set struct {
	list huma.Middlewares
}

func NewSet(mws ...Func) *Set {
	return (&Set{}).With(mws...)
}

// With returns a new set running the receiver's middlewares first.
func (s *Set) With(mws ...Func) *Set {
	list := make(huma.Middlewares, 0, len(s.list)+len(mws))
	list = append(list, s.list...)
	for _, mw := range mws {
		if mw != nil {
			list = append(list, mw)
		}
	}
	return &Set{list: list}
}

// Middlewares returns a copy safe to hand to a huma.Operation.
func (s *Set) Middlewares() huma.Middlewares {
	out := make(huma.Middlewares, len(s.list))
	copy(out, s.list)
	return out
}

func (s *Set) Len() int {
	return len(s.list)
}
