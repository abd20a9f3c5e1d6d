package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatementsCoverEveryTable(t *testing.T) {
	stmts := Statements()
	assert.Len(t, stmts, 14)

	for _, table := range []string{
		"clients", "users", "user_privates", "access_tokens", "refresh_tokens",
		"notification_targets", "notifications", "moments", "deleted_moments",
		"moment_references", "comments", "comment_references", "likes", "followings",
	} {
		found := false
		for _, s := range stmts {
			if strings.Contains(s, "CREATE TABLE IF NOT EXISTS "+table+" (") {
				found = true
			}
		}
		assert.True(t, found, table)
	}

	for _, s := range stmts {
		assert.False(t, strings.HasSuffix(s, ";"))
		assert.NotContains(t, s, "--")
	}
}
