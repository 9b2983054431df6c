// Package medical provides medical record capabilities: mrn and icd9.
package medical

import (
	"fmt"
	"iter"
	"math/rand/v2"

	"github.com/vk/fakegridgo/internal/registry"
	"github.com/vk/fakegridgo/internal/sampling"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

const (
	mrnDigits = 7
	mrnSpace  = 10_000_000

	icd9Categories = 1000
	icd9Subcodes   = 200
	// icd9MaxSubcode bounds single draws; the distinct stream stops at 199.
	icd9MaxSubcode = 200
)

// MRN returns a medical record number: options.prefix followed by seven
// zero-padded digits.
func MRN(r *rand.Rand, args registry.Args) (any, error) {
	prefix, err := args.String("prefix", "")
	if err != nil {
		return nil, err
	}
	return formatMRN(prefix, r.IntN(mrnSpace)), nil
}

// MRNUnique returns n distinct medical record numbers.
func MRNUnique(r *rand.Rand, n int, args registry.Args) ([]any, error) {
	prefix, err := args.String("prefix", "")
	if err != nil {
		return nil, err
	}
	nums, err := sampling.DistinctInts(r, 0, mrnSpace-1, n)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(nums))
	for i, v := range nums {
		out[i] = formatMRN(prefix, v)
	}
	return out, nil
}

func formatMRN(prefix string, v int) string {
	return fmt.Sprintf("%s%0*d", prefix, mrnDigits, v)
}

// ICD9 returns a diagnosis code of the form "ddd.s".
func ICD9(r *rand.Rand, _ registry.Args) (any, error) {
	return formatICD9(r.IntN(icd9Categories), r.IntN(icd9MaxSubcode+1)), nil
}

// ICD9Unique returns n distinct diagnosis codes, sampled from the stream of
// every code.
func ICD9Unique(r *rand.Rand, n int, _ registry.Args) ([]any, error) {
	return sampling.Reservoir(r, icd9Codes(), n)
}

// icd9Codes yields every code from "000.0" to "999.199" in order.
func icd9Codes() iter.Seq[any] {
	return func(yield func(any) bool) {
		for c := range icd9Categories {
			for s := range icd9Subcodes {
				if !yield(formatICD9(c, s)) {
					return
				}
			}
		}
	}
}

func formatICD9(category, sub int) string {
	return fmt.Sprintf("%03d.%d", category, sub)
}

// Register registers the capabilities with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register("mrn", "medical record number: options.prefix and 7 digits", MRN)
	r.RegisterUnique("mrn", MRNUnique)

	r.Register("icd9", "ICD-9 style diagnosis code", ICD9)
	r.RegisterUnique("icd9", ICD9Unique)
}
