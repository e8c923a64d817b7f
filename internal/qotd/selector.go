package qotd

import "math/rand"

// Next returns the question the guild's cursor points at and advances the
// cursor, wrapping at the end of the effective order.
func Next(g *GuildSchedule, pool *Pool) string {
	if g.Order != nil && len(g.Order) == pool.Size() {
		cur := wrap(g.CurrentIndex, len(g.Order))
		g.CurrentIndex = (cur + 1) % len(g.Order)
		return pool.Get(g.Order[cur])
	}
	cur := wrap(g.CurrentIndex, pool.Size())
	g.CurrentIndex = (cur + 1) % pool.Size()
	return pool.Get(cur)
}

// Peek returns what Next would return without advancing the cursor.
func Peek(g *GuildSchedule, pool *Pool) string {
	if g.Order != nil && len(g.Order) == pool.Size() {
		return pool.Get(g.Order[wrap(g.CurrentIndex, len(g.Order))])
	}
	return pool.Get(wrap(g.CurrentIndex, pool.Size()))
}

// Select resolves an explicit question index, clamped to the pool range.
// The guild's cursor is not involved.
func Select(pool *Pool, idx int) string {
	return pool.Get(clamp(idx, 0, pool.Size()-1))
}

// ShuffledOrder returns a uniformly random permutation of [0, n).
func ShuffledOrder(n int) []int {
	return rand.Perm(n)
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
