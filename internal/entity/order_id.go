package entity

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"sync"
	"time"
)

// orderIDSuffixes is the size of the random suffix space per millisecond.
const orderIDSuffixes = 10000

var orderIDPattern = regexp.MustCompile(`^ORD-(\d{13,})-(\d{1,4})$`)

// FormatOrderID renders an order id as ORD-<unix ms>-<suffix>.
func FormatOrderID(millis int64, suffix int) string {
	return fmt.Sprintf("ORD-%d-%d", millis, suffix)
}

// ParseOrderID splits an order id into its timestamp and suffix.
func ParseOrderID(id string) (time.Time, int, error) {
	m := orderIDPattern.FindStringSubmatch(id)
	if m == nil {
		return time.Time{}, 0, fmt.Errorf("malformed order id %q", id)
	}
	millis, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("malformed order id %q: %w", id, err)
	}
	suffix, _ := strconv.Atoi(m[2])
	return time.UnixMilli(millis), suffix, nil
}

// OrderIDGenerator issues order ids from a millisecond clock reading and a
// random suffix in [0, 10000).
//
// Within one generator ids never repeat: suffixes already handed out in the
// current millisecond are redrawn, and the millisecond is advanced once all of
// them are used. Across processes uniqueness is only probabilistic.
type OrderIDGenerator struct {
	mu     sync.Mutex
	intN   func(int) int
	millis int64
	used   map[int]struct{}
}

// NewOrderIDGenerator returns a generator drawing suffixes from src, or from
// the runtime's random source when src is nil.
func NewOrderIDGenerator(src rand.Source) *OrderIDGenerator {
	intN := rand.IntN
	if src != nil {
		intN = rand.New(src).IntN
	}
	return &OrderIDGenerator{intN: intN, used: make(map[int]struct{})}
}

// NewID returns the next order id for the given instant.
func (g *OrderIDGenerator) NewID(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	millis := now.UnixMilli()
	if millis < g.millis {
		// clock went backwards, stay on the last millisecond
		millis = g.millis
	}
	if millis != g.millis {
		g.millis = millis
		clear(g.used)
	}
	if len(g.used) == orderIDSuffixes {
		g.millis++
		clear(g.used)
	}

	suffix := g.intN(orderIDSuffixes)
	for {
		if _, taken := g.used[suffix]; !taken {
			break
		}
		suffix = g.intN(orderIDSuffixes)
	}
	g.used[suffix] = struct{}{}
	return FormatOrderID(g.millis, suffix)
}
