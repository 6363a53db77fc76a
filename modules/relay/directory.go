package relay

import "sort"

// directory maps room names to their live member sets. It has no locks on
// purpose: the engine goroutine is its single owner, so every mutation is
// a plain synchronous map operation. Live entries are created on first
// reference and, like their durable counterparts, never removed.
type directory struct {
	rooms map[string]map[*Conn]struct{}
}

func newDirectory() *directory {
	return &directory{rooms: make(map[string]map[*Conn]struct{})}
}

// ensure creates an empty live member set for name if none exists.
// Idempotent, and independent of durable registration.
func (d *directory) ensure(name string) {
	if _, ok := d.rooms[name]; !ok {
		d.rooms[name] = make(map[*Conn]struct{})
	}
}

// join moves c into name, removing it from its previous room first. The
// previous room's name is returned so the caller can fan out a membership
// change there; "" means c was not in a room.
func (d *directory) join(c *Conn, name string) string {
	prev, _ := d.leave(c)
	d.ensure(name)
	d.rooms[name][c] = struct{}{}
	c.room = name
	return prev
}

// leave removes c from its current room and clears the reference. No-op
// when c is not in a room.
func (d *directory) leave(c *Conn) (string, bool) {
	if c.room == "" {
		return "", false
	}
	room := c.room
	if members, ok := d.rooms[room]; ok {
		delete(members, c)
	}
	c.room = ""
	return room, true
}

// members returns the live member set of a room.
func (d *directory) members(name string) []*Conn {
	set, ok := d.rooms[name]
	if !ok {
		return nil
	}
	out := make([]*Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// roster returns the display names of a room's live members, sorted for a
// stable client-facing order.
func (d *directory) roster(name string) []string {
	set := d.rooms[name]
	names := make([]string, 0, len(set))
	for c := range set {
		names = append(names, c.name)
	}
	sort.Strings(names)
	return names
}
