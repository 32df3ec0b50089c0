package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatDurationHuman(t *testing.T) {
	tests := map[time.Duration]string{
		0:                                 "expired",
		-time.Hour:                        "expired",
		45*time.Second + time.Millisecond: "45s",
		12 * time.Minute:                  "12m",
		2*time.Hour + 5*time.Minute:       "2h5m",
		76 * time.Hour:                    "3d4h",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatDurationHuman(in), in.String())
	}
}
