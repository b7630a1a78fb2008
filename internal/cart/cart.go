package cart

import "github.com/joao-fontenele/gamestore-otel-demo/internal/domain"

// Line is one distinct snapshot in the cart together with its quantity.
type Line struct {
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
	Cover     string `json:"cover"`
}

// Cart maps snapshots to positive quantities. Lines come back in the order
// their snapshot was first added.
type Cart struct {
	qty     map[domain.Snapshot]int
	order   []domain.Snapshot
	version uint64
}

func NewCart() *Cart {
	return &Cart{qty: make(map[domain.Snapshot]int)}
}

func (c *Cart) Add(s domain.Snapshot) {
	if _, ok := c.qty[s]; !ok {
		c.order = append(c.order, s)
	}
	c.qty[s]++
	c.version++
}

// RemoveOne decrements the quantity of s and drops the entry at zero.
// Removing an absent snapshot does nothing.
func (c *Cart) RemoveOne(s domain.Snapshot) {
	n, ok := c.qty[s]
	if !ok {
		return
	}
	c.version++
	if n > 1 {
		c.qty[s] = n - 1
		return
	}
	delete(c.qty, s)
	for i, o := range c.order {
		if o == s {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

func (c *Cart) Clear() {
	if len(c.order) == 0 {
		return
	}
	clear(c.qty)
	c.order = nil
	c.version++
}

func (c *Cart) Quantity(s domain.Snapshot) int {
	return c.qty[s]
}

func (c *Cart) QuantityByTitle(title string) int {
	var n int
	for s, q := range c.qty {
		if s.Title == title {
			n += q
		}
	}
	return n
}

func (c *Cart) UniqueCount() int {
	return len(c.order)
}

func (c *Cart) TotalUnits() int {
	var n int
	for _, q := range c.qty {
		n += q
	}
	return n
}

func (c *Cart) Subtotal() int64 {
	var sum int64
	for s, q := range c.qty {
		sum += s.Price * int64(q)
	}
	return sum
}

// Total is the subtotal after the tier discount.
func (c *Cart) Total() int64 {
	return tierTotal(c.Subtotal(), c.UniqueCount())
}

func (c *Cart) Lines() []Line {
	lines := make([]Line, 0, len(c.order))
	for _, s := range c.order {
		q := c.qty[s]
		lines = append(lines, Line{
			Title:     s.Title,
			Quantity:  q,
			UnitPrice: s.Price,
			Subtotal:  s.Price * int64(q),
			Cover:     s.Cover,
		})
	}
	return lines
}

func (c *Cart) Snapshots() []domain.Snapshot {
	out := make([]domain.Snapshot, len(c.order))
	copy(out, c.order)
	return out
}

// Version changes on every mutation; quotes use it to detect a moved cart.
func (c *Cart) Version() uint64 {
	return c.version
}
