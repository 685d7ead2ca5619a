package thumboption

import (
	"github.com/disintegration/gift"
)

// a recognized option flag. flags that transform pixels contribute a gift filter
// (applied after resize, in alphabetical flag order); geometry-only flags like crop
// are acted on by the resize box math and carry no filter.
type Flag struct {
	Name   string
	Filter func() gift.Filter
}

// static registry: unknown flag names are a parse-time error, not a runtime
// lookup failure
var registry = map[string]Flag{
	"crop": {
		Name: "crop",
	},
	"grayscale": {
		Name:   "grayscale",
		Filter: func() gift.Filter { return gift.Grayscale() },
	},
	"sharpen": {
		Name:   "sharpen",
		Filter: func() gift.Filter { return gift.UnsharpMask(1.0, 1.0, 0.05) },
	},
}

func IsRegisteredFlag(name string) bool {
	_, known := registry[name]
	return known
}

// the pixel-transform steps for this option set, in deterministic (alphabetical) order
func (o *Options) Filters() []gift.Filter {
	filters := []gift.Filter{}

	for _, name := range o.flags {
		if flag := registry[name]; flag.Filter != nil {
			filters = append(filters, flag.Filter())
		}
	}

	return filters
}
