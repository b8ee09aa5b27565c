package progress

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/dhcgn/msg-file-renamer/stats"
)

func TestShortName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "short", in: "a.msg", want: "a.msg"},
		{name: "exact", in: strings.Repeat("x", 40), want: strings.Repeat("x", 40)},
		{name: "ascii", in: strings.Repeat("x", 45), want: strings.Repeat("x", 37) + "..."},
		{name: "umlauts", in: strings.Repeat("ü", 45), want: strings.Repeat("ü", 37) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := shortName(tt.in, 40)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
			assert.LessOrEqual(t, utf8.RuneCountInString(got), 40)
		})
	}
}

func TestBar_Disabled(t *testing.T) {
	bar := New(3, "debug", true)
	bar.Update(stats.Event{Type: stats.EventTypeScanned, Path: "/mail/" + strings.Repeat("ä", 50) + ".msg"})
	bar.Stop()
	assert.Nil(t, bar.pb)
}
