// Package model defines the data structures shared by the storage, service and HTTP layers.
package model

import "time"

// User is a participant in the social graph.
//
// FollowerCount is denormalized: it is rewritten only by follow/unfollow transactions
// and always equals the number of edges pointing at the user.
type User struct {
	ID            string    `json:"id"             db:"id"`
	Username      string    `json:"username"       db:"username"`
	IsOnline      bool      `json:"is_online"      db:"is_online"`
	FollowerCount int       `json:"follower_count" db:"follower_count"`
	CreatedAt     time.Time `json:"-"              db:"created_at"`
}
