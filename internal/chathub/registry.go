package chathub

import (
	"sort"
	"sync"

	"interviewhub/backend/internal/metrics"
	"interviewhub/backend/internal/models"

	"go.uber.org/zap"
)

// Registry is the single writer of room membership. Rooms are keyed by
// interview id; a connection is in at most one room and a room with no
// connections is removed.
//
// The lock covers only map mutation and copying members out. Sends happen
// after it is released.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]map[string]Client // interviewID -> connID -> client
	connRoom map[string]string            // connID -> interviewID
	log      *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		rooms:    make(map[string]map[string]Client),
		connRoom: make(map[string]string),
		log:      log,
	}
}

// JoinResult describes the membership change made by Join.
type JoinResult struct {
	// PrevRoom is the room the connection was moved out of, if any.
	PrevRoom string
	// LeftPrev is true when the connection was the user's last one in PrevRoom.
	LeftPrev bool
	// FirstInRoom is true when the user had no other connection in the room.
	FirstInRoom bool
	// AlreadyJoined is true when the connection was already in the room.
	AlreadyJoined bool
	// Others lists the other users present, excluding the joining user.
	Others []models.Participant
}

// LeaveResult describes the membership change made by Leave.
type LeaveResult struct {
	Room       string
	LastOfUser bool
	RoomClosed bool
}

// Join moves c into interviewID, removing it from its previous room in the
// same critical section.
func (r *Registry) Join(interviewID string, c Client) JoinResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	connID, userID := c.GetConnID(), c.GetUserID()
	var res JoinResult

	if prev, ok := r.connRoom[connID]; ok {
		if prev == interviewID {
			res.AlreadyJoined = true
			res.Others = r.participantsLocked(interviewID, userID)
			return res
		}
		res.PrevRoom = prev
		res.LeftPrev, _ = r.removeLocked(prev, connID, userID)
	}

	res.Others = r.participantsLocked(interviewID, userID)
	res.FirstInRoom = !r.userInRoomLocked(interviewID, userID)

	members, ok := r.rooms[interviewID]
	if !ok {
		members = make(map[string]Client)
		r.rooms[interviewID] = members
	}
	members[connID] = c
	r.connRoom[connID] = interviewID
	metrics.ActiveRooms.Set(float64(len(r.rooms)))
	return res
}

// Leave removes the connection from its room. ok is false when it was not
// in any room.
func (r *Registry) Leave(connID, userID string) (res LeaveResult, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.connRoom[connID]
	if !ok {
		return LeaveResult{}, false
	}
	last, closed := r.removeLocked(room, connID, userID)
	metrics.ActiveRooms.Set(float64(len(r.rooms)))
	return LeaveResult{Room: room, LastOfUser: last, RoomClosed: closed}, true
}

func (r *Registry) removeLocked(room, connID, userID string) (lastOfUser, roomClosed bool) {
	delete(r.connRoom, connID)
	members := r.rooms[room]
	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, room)
		return true, true
	}
	return !r.userInRoomLocked(room, userID), false
}

func (r *Registry) userInRoomLocked(room, userID string) bool {
	for _, c := range r.rooms[room] {
		if c.GetUserID() == userID {
			return true
		}
	}
	return false
}

func (r *Registry) participantsLocked(room, excludeUser string) []models.Participant {
	seen := make(map[string]bool)
	out := make([]models.Participant, 0, len(r.rooms[room]))
	for _, c := range r.rooms[room] {
		uid := c.GetUserID()
		if uid == excludeUser || seen[uid] {
			continue
		}
		seen[uid] = true
		out = append(out, models.Participant{UserID: uid, Role: c.GetRole()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// RoomOf returns the room the connection is in.
func (r *Registry) RoomOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.connRoom[connID]
	return room, ok
}

// Members returns a copy of the room's connections.
func (r *Registry) Members(interviewID string) []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Client, 0, len(r.rooms[interviewID]))
	for _, c := range r.rooms[interviewID] {
		out = append(out, c)
	}
	return out
}

// Participants returns the distinct users in a room.
func (r *Registry) Participants(interviewID string) []models.Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.participantsLocked(interviewID, "")
}

func (r *Registry) HasRoom(interviewID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[interviewID]
	return ok
}

func (r *Registry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Broadcast delivers ev to every connection in the room except excludeConnID.
// A connection whose buffer is full is closed; its read pump then performs
// the leave.
func (r *Registry) Broadcast(interviewID string, ev models.Event, excludeConnID string) {
	targets := r.Members(interviewID)
	for _, c := range targets {
		if c.GetConnID() == excludeConnID {
			continue
		}
		if !c.Send(ev) {
			r.log.Warn("dropping slow connection",
				zap.String("interview_id", interviewID),
				zap.String("conn_id", c.GetConnID()),
				zap.String("event", string(ev.Type)),
			)
			c.Close(CloseSlowConsumer, "slow consumer")
		}
	}
}
