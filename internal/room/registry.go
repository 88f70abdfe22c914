package room

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Kurubik/snake/internal/sim"
	"github.com/Kurubik/snake/logging"
	lifecyclelog "github.com/Kurubik/snake/logging/lifecycle"
)

// ErrNotFound is returned when a room code does not resolve.
var ErrNotFound = errors.New("room not found")

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

// Registry owns every live room, keyed by join code. It also runs the
// empty-room reaper.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room

	cfg    Config
	sender Sender
}

// NewRegistry constructs an empty registry. Rooms created through it share
// the given lifecycle config and sender.
func NewRegistry(cfg Config, sender Sender) *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		cfg:    cfg.normalized(),
		sender: sender,
	}
}

// Create opens a new room with a fresh code and seed. Nil settings means
// defaults; explicit settings are clamped to sane ranges.
func (reg *Registry) Create(settings *sim.Settings) *Room {
	resolved := sim.DefaultSettings()
	if settings != nil {
		resolved = settings.Normalized()
	}

	reg.mu.Lock()
	code := reg.uniqueCodeLocked()
	rm := New(code, randomSeed(), resolved, reg.cfg, reg.sender)
	reg.rooms[code] = rm
	reg.mu.Unlock()

	lifecyclelog.RoomCreated(context.Background(), reg.cfg.Publisher,
		logging.EntityRef{ID: code, Kind: logging.EntityKindRoom},
		lifecyclelog.RoomPayload{RoomCode: code})

	return rm
}

// Lookup resolves a room code. Codes are case-insensitive.
func (reg *Registry) Lookup(code string) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	rm, ok := reg.rooms[normalizeCode(code)]
	if !ok {
		return nil, ErrNotFound
	}
	return rm, nil
}

// FindOpen returns a joinable room for quick play, or nil when every room
// is in progress or full. Candidates are scanned in code order so repeated
// quick-play joins cluster into the same room.
func (reg *Registry) FindOpen() *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	codes := make([]string, 0, len(reg.rooms))
	for code := range reg.rooms {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	for _, code := range codes {
		rm := reg.rooms[code]
		if rm.Status() != StatusWaiting {
			continue
		}
		if rm.PlayerCount() >= rm.Settings().MaxPlayers {
			continue
		}
		return rm
	}
	return nil
}

// Remove shuts a room down and forgets it.
func (reg *Registry) Remove(code string) {
	reg.mu.Lock()
	rm, ok := reg.rooms[normalizeCode(code)]
	if ok {
		delete(reg.rooms, normalizeCode(code))
	}
	reg.mu.Unlock()
	if !ok {
		return
	}

	rm.Shutdown()
	lifecyclelog.RoomRemoved(context.Background(), reg.cfg.Publisher,
		logging.EntityRef{ID: rm.Code(), Kind: logging.EntityKindRoom},
		lifecyclelog.RoomPayload{RoomCode: rm.Code()})
}

// Count reports the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

// PlayerCount reports the number of players across all rooms.
func (reg *Registry) PlayerCount() int {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, rm := range reg.rooms {
		rooms = append(rooms, rm)
	}
	reg.mu.Unlock()

	total := 0
	for _, rm := range rooms {
		total += rm.PlayerCount()
	}
	return total
}

// Run sweeps for rooms that have sat empty past the timeout. It blocks
// until the stop channel closes.
func (reg *Registry) Run(stop <-chan struct{}) {
	interval := reg.cfg.EmptyTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			reg.sweep(now)
		}
	}
}

func (reg *Registry) sweep(now time.Time) {
	reg.mu.Lock()
	rooms := make([]*Room, 0, len(reg.rooms))
	for _, rm := range reg.rooms {
		rooms = append(rooms, rm)
	}
	reg.mu.Unlock()

	for _, rm := range rooms {
		emptySince, empty := rm.EmptySince()
		if empty && now.Sub(emptySince) >= reg.cfg.EmptyTimeout {
			reg.Remove(rm.Code())
		}
	}
}

// uniqueCodeLocked draws codes until one misses the live set. Collisions
// are vanishingly rare at realistic room counts.
func (reg *Registry) uniqueCodeLocked() string {
	for {
		code := randomCode()
		if _, taken := reg.rooms[code]; !taken {
			return code
		}
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func randomCode() string {
	var buf [codeLength]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	out := make([]byte, codeLength)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out)
}

func randomSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic(err)
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return seed
}
