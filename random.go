package magnetar

import (
	"math/rand"
	"strings"
)

const codeCharacters = "abcdefghijkmnpqrstuvwxyz23456789"

// RandomAccessCode builds a join code of the given length. The alphabet
// skips the lookalike characters (l/1, o/0) since these codes get read out
// loud in classrooms.
func RandomAccessCode(size int) string {
	sb := strings.Builder{}
	sb.Grow(size)
	for ; size > 0; size-- {
		sb.WriteByte(codeCharacters[rand.Intn(len(codeCharacters))])
	}
	return sb.String()
}
