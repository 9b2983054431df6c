// Package person provides personal identity capabilities: gender,
// first_name, last_name, name and age.
package person

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/vk/fakegridgo/internal/registry"
	"github.com/vk/fakegridgo/internal/sampling"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

var (
	genders = []string{"F", "M"}

	femaleFirstNames = []string{
		"Mary", "Patricia", "Jennifer", "Linda", "Elizabeth", "Barbara", "Susan",
		"Jessica", "Sarah", "Karen", "Nancy", "Lisa", "Margaret", "Betty", "Sandra",
		"Ashley", "Dorothy", "Kimberly", "Emily", "Donna",
	}
	maleFirstNames = []string{
		"James", "John", "Robert", "Michael", "William", "David", "Richard",
		"Joseph", "Thomas", "Charles", "Christopher", "Daniel", "Matthew", "Anthony",
		"Donald", "Mark", "Paul", "Steven", "Andrew", "Kenneth",
	}
	lastNames = []string{
		"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
		"Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez", "Wilson",
		"Anderson", "Thomas", "Taylor", "Moore", "Jackson", "Martin", "Lee", "Perez",
		"Thompson", "White", "Harris",
	}
)

// ageBracket is an inclusive age range and its share of the US population,
// in percent.
type ageBracket struct {
	min, max int
	weight   float64
}

var usAgeBrackets = []ageBracket{
	{0, 4, 6.5}, {5, 9, 6.6}, {10, 14, 6.7}, {15, 19, 6.9}, {20, 24, 7.1},
	{25, 29, 6.8}, {30, 34, 6.6}, {35, 39, 6.2}, {40, 44, 6.7}, {45, 49, 7.0},
	{50, 54, 7.2}, {55, 59, 6.6}, {60, 64, 5.7}, {65, 69, 4.4}, {70, 74, 3.2},
	{75, 79, 2.4}, {80, 84, 1.9}, {85, 94, 1.5}, {95, 99, 0.1},
}

// Gender returns "F" or "M".
func Gender(r *rand.Rand, _ registry.Args) (any, error) {
	return genders[r.IntN(len(genders))], nil
}

// firstNames returns the name pool for the gender argument. Without one,
// both pools are used.
func firstNames(args registry.Args) ([]string, error) {
	v, _ := args.Get("gender")
	switch v {
	case nil, "":
		return slices.Concat(femaleFirstNames, maleFirstNames), nil
	case "F":
		return femaleFirstNames, nil
	case "M":
		return maleFirstNames, nil
	default:
		return nil, fmt.Errorf("unknown gender %v: must be \"F\" or \"M\"", v)
	}
}

// FirstName returns a first name matching the optional gender argument,
// usually fed from a gender field through context.
func FirstName(r *rand.Rand, args registry.Args) (any, error) {
	pool, err := firstNames(args)
	if err != nil {
		return nil, err
	}
	return pool[r.IntN(len(pool))], nil
}

// FirstNameUnique returns n distinct first names.
func FirstNameUnique(r *rand.Rand, n int, args registry.Args) ([]any, error) {
	pool, err := firstNames(args)
	if err != nil {
		return nil, err
	}
	return distinct(r, pool, n)
}

// LastName returns a last name.
func LastName(r *rand.Rand, _ registry.Args) (any, error) {
	return lastNames[r.IntN(len(lastNames))], nil
}

// LastNameUnique returns n distinct last names.
func LastNameUnique(r *rand.Rand, n int, _ registry.Args) ([]any, error) {
	return distinct(r, lastNames, n)
}

// Name returns "<first> <last>".
func Name(r *rand.Rand, args registry.Args) (any, error) {
	first, err := FirstName(r, args)
	if err != nil {
		return nil, err
	}
	last, _ := LastName(r, args)
	return fmt.Sprintf("%s %s", first, last), nil
}

// Age returns an age following the US age distribution, or a uniform age
// in [0, 20] when options.minor is true.
func Age(r *rand.Rand, args registry.Args) (any, error) {
	minor, _ := args.Get("minor")
	if b, ok := minor.(bool); ok && b {
		return r.IntN(21), nil
	}

	total := 0.0
	for _, b := range usAgeBrackets {
		total += b.weight
	}
	x := r.Float64() * total
	for _, b := range usAgeBrackets {
		if x < b.weight {
			return b.min + r.IntN(b.max-b.min+1), nil
		}
		x -= b.weight
	}
	last := usAgeBrackets[len(usAgeBrackets)-1]
	return last.min + r.IntN(last.max-last.min+1), nil
}

func distinct(r *rand.Rand, pool []string, n int) ([]any, error) {
	vals, err := sampling.Reservoir(r, slices.Values(pool), n)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out, nil
}

// Register registers the capabilities with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.Register("gender", `"F" or "M"`, Gender)

	r.Register("first_name", "first name, matching the gender argument when given", FirstName)
	r.RegisterUnique("first_name", FirstNameUnique)

	r.Register("last_name", "last name", LastName)
	r.RegisterUnique("last_name", LastNameUnique)

	r.Register("name", "first and last name, matching the gender argument when given", Name)

	r.Register("age", "age in years, US distribution; options.minor for [0, 20]", Age)
}
