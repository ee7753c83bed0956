package game

// MultiplierClock is the local crash ramp: it starts at 1.00x and rises by
// step each tick until it reaches the crash point, where it stops exactly.
// It is advisory; the authority validates any value proposed from it.
type MultiplierClock struct {
	value      uint64
	crashPoint uint64
	step       uint64
	crashed    bool
}

func NewMultiplierClock(crashPoint uint64) *MultiplierClock {
	return &MultiplierClock{value: BaseMultiplier, crashPoint: crashPoint, step: 1}
}

func (c *MultiplierClock) Value() uint64 {
	return c.value
}

func (c *MultiplierClock) Crashed() bool {
	return c.crashed
}

// Tick advances one step. The value never exceeds the crash point.
func (c *MultiplierClock) Tick() (uint64, bool) {
	if c.crashed {
		return c.value, true
	}
	next := c.value + c.step
	if next >= c.crashPoint {
		c.value = c.crashPoint
		c.crashed = true
		return c.value, true
	}
	c.value = next
	return c.value, false
}
