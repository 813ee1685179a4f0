package authcore

import "testing"

func TestMaskMobile(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"13812345678", "138****5678"},
		{"+8613812345678", "+86*******5678"},
		{"1234567", "*******"},
		{"123", "***"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := maskMobile(tc.in); got != tc.want {
			t.Errorf("maskMobile(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
