package report

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReportStatus(t *testing.T) {
	errDisk := errors.New("disk full")

	tests := []struct {
		name      string
		succeeded int
		failed    int
		want      Status
	}{
		{name: "all succeeded", succeeded: 3, want: StatusSucceeded},
		{name: "some failed", succeeded: 2, failed: 1, want: StatusPartial},
		{name: "all failed", failed: 2, want: StatusFailed},
		{name: "empty batch", want: StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Report
			for i := 0; i < tt.succeeded; i++ {
				r.Succeed()
			}
			for i := 0; i < tt.failed; i++ {
				r.Fail("page", errDisk)
			}

			assert.Equal(t, tt.want, r.Status())
			assert.Equal(t, tt.succeeded+tt.failed, r.Total)
			if tt.failed > 0 {
				assert.ErrorIs(t, r.Failures[0], errDisk)
				assert.Error(t, r.Err())
			} else {
				assert.NoError(t, r.Err())
			}
		})
	}
}

func TestReportWarnAndVoid(t *testing.T) {
	errText := errors.New("no text")

	var r Report
	r.Warn("page 1", errText)
	r.Warn("page 2", errText)
	assert.Equal(t, StatusPartial, r.Status())
	assert.Equal(t, 2, r.Total)
	assert.Equal(t, 2, r.Succeeded)
	assert.Len(t, r.Messages(), 2)

	r.Void("document", errors.New("database is locked"))
	assert.Equal(t, StatusFailed, r.Status())
	assert.Equal(t, 3, r.Total)
	assert.Zero(t, r.Succeeded)
	assert.Equal(t, "document", r.Failures[2].Item)
}
