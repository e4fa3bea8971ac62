package roulette

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

var DefaultAnnouncements = []string{
	"🎰 La roulette a tourné... {member} est timeout pour {minutes} minutes !",
	"💀 {member} n'a pas eu de chance : {minutes} minutes de silence.",
	"🔇 Chut {member}, la roulette t'offre {minutes} minutes de pause.",
	"🎲 Les dés sont jetés : {member} part méditer {minutes} minutes.",
}

// RenderAnnouncement fills {member} and {minutes} in template.
func RenderAnnouncement(template string, m Member, d time.Duration) string {
	minutes := strconv.FormatFloat(d.Minutes(), 'f', -1, 64)
	return strings.NewReplacer(
		"{member}", m.Mention(),
		"{name}", m.DisplayName,
		"{minutes}", minutes,
	).Replace(template)
}

// Picker returns a uniform index in [0, n).
type Picker func(n int) (int, error)

// CryptoPicker draws from crypto/rand so outcomes cannot be predicted.
func CryptoPicker(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("cannot pick from %d items", n)
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("failed to read random source: %w", err)
	}
	return int(v.Int64()), nil
}
