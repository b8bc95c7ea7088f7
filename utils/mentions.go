package utils

import (
	"strings"
)

// ParseUserMention extracts a user ID from <@id>, <@!id> or a bare snowflake.
func ParseUserMention(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<@") && strings.HasSuffix(s, ">") {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "<@"), ">")
		s = strings.TrimPrefix(s, "!")
	}
	if !isSnowflake(s) {
		return "", false
	}
	return s, true
}

// ParseChannelMention extracts a channel ID from <#id> or a bare snowflake.
func ParseChannelMention(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<#") && strings.HasSuffix(s, ">") {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "<#"), ">")
	}
	if !isSnowflake(s) {
		return "", false
	}
	return s, true
}

func isSnowflake(s string) bool {
	if s == "" || len(s) > 20 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ChunkString splits a string into chunks of at most chunkSize runes.
func ChunkString(s string, chunkSize int) []string {
	if len(s) == 0 {
		return []string{""}
	}
	runes := []rune(s)
	if chunkSize <= 0 || len(runes) <= chunkSize {
		return []string{s}
	}
	var chunks []string
	for i := 0; i < len(runes); i += chunkSize {
		end := min(i+chunkSize, len(runes))
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
