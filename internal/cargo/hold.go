package cargo

import (
	"fmt"
	"sort"
)

// Capacity describes one container of a cargo hold: what it carries, how
// fast it loads, and how much fits.
type Capacity struct {
	CargoType   string
	LoadingRate float64 // units per hour, applies to loading and unloading
	Capacity    float64
}

// Container is a capacity-limited store for one cargo type.
type Container struct {
	capacity    float64
	loadingRate float64
	amount      float64
}

func (c *Container) Capacity() float64    { return c.capacity }
func (c *Container) LoadingRate() float64 { return c.loadingRate }
func (c *Container) Amount() float64      { return c.amount }

// Hold is a set of cargo containers keyed by cargo type. Loading and
// unloading validate against capacity and current load; the schedule's
// cargo verification replays tasks against a snapshot of the hold.
type Hold struct {
	containers map[string]*Container
}

// NewHold builds a hold with one container per capacity entry.
func NewHold(capacities []Capacity) *Hold {
	h := &Hold{containers: make(map[string]*Container, len(capacities))}
	for _, c := range capacities {
		h.containers[c.CargoType] = &Container{capacity: c.Capacity, loadingRate: c.LoadingRate}
	}
	return h
}

// Capacities lists the hold's containers as capacity entries, sorted by
// cargo type.
func (h *Hold) Capacities() []Capacity {
	out := make([]Capacity, 0, len(h.containers))
	for _, t := range h.CargoTypes() {
		c := h.containers[t]
		out = append(out, Capacity{CargoType: t, LoadingRate: c.loadingRate, Capacity: c.capacity})
	}
	return out
}

// CargoTypes lists the cargo types this hold can carry, sorted.
func (h *Hold) CargoTypes() []string {
	types := make([]string, 0, len(h.containers))
	for t := range h.containers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Load adds amount to the container for cargoType.
func (h *Hold) Load(cargoType string, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("loading amount must be positive, got %v", amount)
	}
	return h.change(cargoType, amount)
}

// Unload removes amount from the container for cargoType.
func (h *Hold) Unload(cargoType string, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("unloading amount must be positive, got %v", amount)
	}
	return h.change(cargoType, -amount)
}

func (h *Hold) change(cargoType string, delta float64) error {
	c, ok := h.containers[cargoType]
	if !ok {
		return fmt.Errorf("hold has no container for cargo type %q", cargoType)
	}
	next := c.amount + delta
	if next < 0 {
		return fmt.Errorf("not enough %q in hold (have %v, unloading %v)", cargoType, c.amount, -delta)
	}
	if next > c.capacity {
		return fmt.Errorf("not enough %q capacity in hold (capacity %v, loading to %v)", cargoType, c.capacity, next)
	}
	c.amount = next
	return nil
}

// Current returns the current load of the container for cargoType, 0 if the
// hold has no such container.
func (h *Hold) Current(cargoType string) float64 {
	if c, ok := h.containers[cargoType]; ok {
		return c.amount
	}
	return 0
}

// Capacity returns the capacity of the container for cargoType, 0 if the
// hold has no such container.
func (h *Hold) Capacity(cargoType string) float64 {
	if c, ok := h.containers[cargoType]; ok {
		return c.capacity
	}
	return 0
}

// LoadingRate returns the loading rate of the container for cargoType, 0 if
// the hold has no such container.
func (h *Hold) LoadingRate(cargoType string) float64 {
	if c, ok := h.containers[cargoType]; ok {
		return c.loadingRate
	}
	return 0
}

// Empty reports whether no container holds any cargo.
func (h *Hold) Empty() bool {
	for _, c := range h.containers {
		if c.amount > 0 {
			return false
		}
	}
	return true
}

// HasAnyLoad reports whether at least one container holds cargo.
func (h *Hold) HasAnyLoad() bool { return !h.Empty() }

// Clone deep-copies the hold including current loads. Used as the scratch
// copy for cargo verification so replays never touch the live hold.
func (h *Hold) Clone() *Hold {
	c := &Hold{containers: make(map[string]*Container, len(h.containers))}
	for t, v := range h.containers {
		cc := *v
		c.containers[t] = &cc
	}
	return c
}
