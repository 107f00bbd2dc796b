package models

import "hash/fnv"

// Session identifies the signed-in user for the duration of a request.
// It is passed explicitly; nothing in the process tracks a "current user".
type Session struct {
	ID       string `json:"id"`
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
}

// UserIDFor derives the stable list-store key for a username.
func UserIDFor(username string) int {
	h := fnv.New32a()
	h.Write([]byte(username))
	return int(int32(h.Sum32()))
}
