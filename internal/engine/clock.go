package engine

// Clock is the simulation clock. The current time is the time of the last
// event taken off the queue and never moves backwards.
//
// The engine loop is single-threaded; the clock is not safe for concurrent
// writes. Reads from company plugin goroutines go through the headquarters,
// which only runs them between events.
type Clock struct {
	now float64
}

// NewClock creates a clock at time zero.
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current simulation time.
func (c *Clock) Now() float64 { return c.now }

// advance moves the clock to t. A t in the past is ignored; queue ordering
// makes that impossible in the main loop, but event retraction may re-queue
// work at the current time.
func (c *Clock) advance(t float64) {
	if t > c.now {
		c.now = t
	}
}
