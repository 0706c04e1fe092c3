package connector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveFolders(t *testing.T) {
	cases := []struct {
		name       string
		server     []string
		configured []string
		excluded   []string
		want       []string
	}{
		{
			name:       "intersection preserves configured order",
			server:     []string{"INBOX", "Sent", "Archive"},
			configured: []string{"Archive", "INBOX", "Missing"},
			want:       []string{"Archive", "INBOX"},
		},
		{
			name:       "exclusion wins over explicit inclusion",
			server:     []string{"INBOX", "Junk"},
			configured: []string{"INBOX", "Junk"},
			excluded:   []string{"Junk"},
			want:       []string{"INBOX"},
		},
		{
			name:       "inbox sentinel uses inbox when available",
			server:     []string{"Sent", "INBOX"},
			configured: []string{"INBOX"},
			want:       []string{"INBOX"},
		},
		{
			name:       "inbox sentinel falls back to first available folder",
			server:     []string{"Mail", "Sent"},
			configured: []string{"INBOX"},
			want:       []string{"Mail"},
		},
		{
			name:       "inbox sentinel fallback skips excluded folders",
			server:     []string{"Trash", "Mail"},
			configured: []string{"INBOX"},
			excluded:   []string{"Trash"},
			want:       []string{"Mail"},
		},
		{
			name:       "empty result when nothing matches",
			server:     []string{"Sent"},
			configured: []string{"Archive"},
			want:       nil,
		},
		{
			name:       "inbox sentinel with no server folders",
			server:     nil,
			configured: []string{"INBOX"},
			want:       nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveFolders(tc.server, tc.configured, tc.excluded)
			assert.Equal(t, tc.want, got)
		})
	}
}
