package phone

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0555 123 45 67", "905551234567"},
		{"05551234567", "905551234567"},
		{"5551234567", "905551234567"},
		{"905551234567", "905551234567"},
		{"+90 555 123 45 67", "905551234567"},
		{"(0555) 123-45-67", "905551234567"},
		{"90", "90"},
		{"", ""},
		{"abc", ""},
	}
	for _, c := range cases {
		if got := Normalize(c.in); got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
