package notify

import (
	"testing"

	"qotdbot/internal/kit"
)

func TestParseChannel(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in      string
		want    kit.ChatTarget
		wantErr bool
	}{
		{"-1001234567890", kit.ChatTarget{ChatID: -1001234567890}, false},
		{"42", kit.ChatTarget{ChatID: 42}, false},
		{" 42 ", kit.ChatTarget{ChatID: 42}, false},
		{"-100987:7", kit.ChatTarget{ChatID: -100987, ThreadID: 7}, false},
		{"", kit.ChatTarget{}, true},
		{"abc", kit.ChatTarget{}, true},
		{"42:", kit.ChatTarget{ChatID: 42}, false},
		{"42:xyz", kit.ChatTarget{}, true},
	}
	for _, tc := range cases {
		got, err := ParseChannel(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseChannel(%q) accepted", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseChannel(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseChannel(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}
