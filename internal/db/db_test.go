package db

import (
	"strings"
	"testing"

	"gorm.io/gorm/logger"
)

func TestGormLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  logger.LogLevel
	}{
		{"DEBUG", logger.Info},
		{"info", logger.Warn},
		{"WARNING", logger.Error},
		{"error", logger.Silent},
		{"", logger.Warn},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := gormLogLevel(tt.level); got != tt.want {
				t.Errorf("gormLogLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestRecountStatementsOnlyTouchDriftedRows(t *testing.T) {
	for name, stmt := range map[string]string{
		"groups":   recountGroupsSQL,
		"posts":    recountPostsSQL,
		"comments": recountCommentsSQL,
	} {
		if !strings.Contains(stmt, "<> c.n") {
			t.Errorf("%s recount rewrites rows that are already correct", name)
		}
		if !strings.Contains(stmt, "LEFT JOIN") {
			t.Errorf("%s recount must zero counters of rows without children", name)
		}
	}
	if strings.Count(deleteCommentTreeSQL, "?") != 3 {
		t.Errorf("comment tree delete expects three bind parameters")
	}
}
