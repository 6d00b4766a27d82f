package telegram

import (
	"regexp"
	"strconv"
)

var tokenRe = regexp.MustCompile(`#(\d+)`)

// ExtractToken finds the transaction token in a notification message.
func ExtractToken(text string) (int64, bool) {
	m := tokenRe.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
