package protection

import (
	"sort"

	"github.com/google/uuid"
)

// Container is a collection of protective elements keyed by UUID.
type Container map[string]Function

// Add function to container with a UUID and returns the UUID.
func (c *Container) AddFunction(function Function) uuid.UUID {
	if *c == nil {
		*c = make(Container)
	}
	id := uuid.New()
	(*c)[id.String()] = function
	return id
}

// Evaluates every element with the same current and timestamp and returns the
// results keyed like the container.
func (c Container) ProcessAll(current float64, timestampUs uint64) map[string]Result {
	results := make(map[string]Result, len(c))
	for key := range c {
		results[key] = c[key].Process(current, timestampUs)
	}
	return results
}

// Resets every element.
func (c Container) ResetAll() {
	for key := range c {
		c[key].Reset()
	}
}

// Returns the first element with the given name, or nil.
func (c Container) FindByName(name string) Function {
	for _, key := range c.Keys() {
		if c[key].Name() == name {
			return c[key]
		}
	}
	return nil
}

// Returns the container keys in a stable order.
func (c Container) Keys() []string {
	keys := make([]string, 0, len(c))
	for key := range c {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Returns true if any result is a trip.
func Tripped(results map[string]Result) bool {
	for _, r := range results {
		if r.IsTrip() {
			return true
		}
	}
	return false
}
