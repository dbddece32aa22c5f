/*
Package randx provides functions for generating unique identifiers and random avatar colors.

Identifiers are standard UUID v4 strings; avatar colors are drawn from a fixed palette
using a cryptographically secure random number generator.
*/
package randx

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

// AvatarPalette is the fixed set of RGB values an avatar color is drawn from at
// user creation. The chosen color is immutable for the lifetime of the user.
var AvatarPalette = []int{0x6C63FF, 0x00D9FF, 0xFF5252, 0x00E676, 0xFFAB40}

// UserID generates a UUID v4 string to serve as an opaque user identifier.
func UserID() string {
	return uuid.New().String()
}

// LobbyID generates a UUID v4 string to serve as a lobby identifier.
func LobbyID() string {
	return uuid.New().String()
}

// MessageID generates a UUID v4 string to serve as a unique identifier for a message.
func MessageID() string {
	return uuid.New().String()
}

// InviteID generates a UUID v4 string to serve as an invite identifier.
func InviteID() string {
	return uuid.New().String()
}

// AvatarColor picks a color uniformly at random from AvatarPalette.
// On the (practically impossible) failure of the system randomness source,
// it falls back to the first palette entry.
func AvatarColor() int {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(AvatarPalette))))
	if err != nil {
		return AvatarPalette[0]
	}
	return AvatarPalette[n.Int64()]
}
