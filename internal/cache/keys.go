package cache

import "fmt"

// Key layout of the admission and reservation core. Everything under
// queue:* belongs to the admission queue; lock:* keys are mutual-exclusion
// points and carry a TTL as the deadlock safety net.
const (
	userTokenPrefix    = "queue:user:token:"
	queueTokenPrefix   = "queue:token:"
	queueLockKey       = "lock:queue"
	activeUsersKey     = "queue:active"
	activeMarkerPrefix = "queue:active:"
	waitingQueueKey    = "queue:waiting"
)

// UserTokenKey maps a user to their current token id.
func UserTokenKey(userID string) string {
	return userTokenPrefix + userID
}

// QueueTokenKey stores the serialized token itself.
func QueueTokenKey(token string) string {
	return queueTokenPrefix + token
}

// QueueLockKey guards mutation of admission capacity and membership state.
func QueueLockKey() string {
	return queueLockKey
}

// ActiveUsersKey is the membership set of currently admitted users.
func ActiveUsersKey() string {
	return activeUsersKey
}

// ActiveUserMarkerKey is the individually-TTLed marker for one admitted
// user. When it lapses the membership entry is reclaimed by the sweep.
func ActiveUserMarkerKey(userID string) string {
	return activeMarkerPrefix + userID
}

// WaitingQueueKey is the score-ordered waiting line.
func WaitingQueueKey() string {
	return waitingQueueKey
}

// SeatLockKey serializes claims on one seat of one event.
func SeatLockKey(eventID int64, seatNumber int) string {
	return fmt.Sprintf("lock:seat:%d:%d", eventID, seatNumber)
}
