package sim

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"sort"
)

// HashState digests the semantically meaningful parts of a state into a
// short hex string. Server and client hash independently and compare to
// detect divergence, so the input is fully sorted before hashing and
// transient events are excluded. FNV is collision-unlikely for realistic
// game states, which is all the comparison needs.
func HashState(st *State) string {
	h := fnv.New64a()
	var scratch [8]byte

	writeInt := func(v int) {
		binary.LittleEndian.PutUint64(scratch[:], uint64(int64(v)))
		h.Write(scratch[:])
	}
	writeString := func(s string) {
		writeInt(len(s))
		h.Write([]byte(s))
	}

	for _, id := range st.SortedSnakeIDs() {
		snake := st.Snakes[id]
		writeString(id)
		if snake.Alive {
			writeInt(1)
		} else {
			writeInt(0)
		}
		writeInt(snake.Score)
		writeString(string(snake.Direction))
		writeInt(len(snake.Body))
		for _, seg := range snake.Body {
			writeInt(seg.X)
			writeInt(seg.Y)
		}
	}

	foods := append([]Food(nil), st.Foods...)
	sort.Slice(foods, func(i, j int) bool {
		if foods[i].Position.Y != foods[j].Position.Y {
			return foods[i].Position.Y < foods[j].Position.Y
		}
		return foods[i].Position.X < foods[j].Position.X
	})
	writeInt(len(foods))
	for _, food := range foods {
		writeInt(food.Position.X)
		writeInt(food.Position.Y)
		writeString(string(food.Kind))
		writeInt(food.Value)
	}

	projectiles := append([]Projectile(nil), st.Projectiles...)
	sort.Slice(projectiles, func(i, j int) bool {
		if projectiles[i].OwnerID != projectiles[j].OwnerID {
			return projectiles[i].OwnerID < projectiles[j].OwnerID
		}
		if projectiles[i].Position.Y != projectiles[j].Position.Y {
			return projectiles[i].Position.Y < projectiles[j].Position.Y
		}
		return projectiles[i].Position.X < projectiles[j].Position.X
	})
	writeInt(len(projectiles))
	for _, projectile := range projectiles {
		writeString(projectile.OwnerID)
		writeInt(projectile.Position.X)
		writeInt(projectile.Position.Y)
		writeString(string(projectile.Direction))
		writeInt(projectile.Lifetime)
	}

	return fmt.Sprintf("%016x", h.Sum64())
}
