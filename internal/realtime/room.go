package realtime

import "sort"

// Room 是同一项目下的一组连接，只支持加入、离开和广播。
// Room 本身不加锁，由 Hub 的互斥锁保护。
type Room struct {
	key     string
	members map[string]Conn
}

func newRoom(key string) *Room {
	return &Room{key: key, members: make(map[string]Conn)}
}

// Key 返回房间标识（项目 ID）。
func (r *Room) Key() string { return r.key }

// Join 把连接加入房间，同一连接重复加入不产生副作用。
func (r *Room) Join(c Conn) {
	r.members[c.ID()] = c
}

// Leave 移除连接，返回房间是否已空。
func (r *Room) Leave(connID string) bool {
	delete(r.members, connID)
	return len(r.members) == 0
}

// Len 返回成员数。
func (r *Room) Len() int { return len(r.members) }

// Broadcast 把 payload 原样发给除 from 之外的所有打开的连接。
// from 为空时发给全部成员。返回成功投递与跳过的连接数。
func (r *Room) Broadcast(from string, payload []byte) (delivered, skipped int) {
	for _, id := range r.memberIDs() {
		if id == from {
			continue
		}
		c := r.members[id]
		if !c.Open() {
			skipped++
			continue
		}
		if err := c.Send(payload); err != nil {
			skipped++
			continue
		}
		delivered++
	}
	return delivered, skipped
}

// memberIDs 按 ID 排序，保证投递顺序稳定。
func (r *Room) memberIDs() []string {
	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
