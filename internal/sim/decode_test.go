package sim

import "testing"

func TestDecodeBytes(t *testing.T) {
	cases := []struct {
		name string
		in   []byte
		want string
	}{
		{"plain ascii", []byte("Simulation finished\n"), "Simulation finished\n"},
		{"valid multibyte", []byte("héllo"), "héllo"},
		{"lone invalid byte", []byte{0xff}, `\xff`},
		{"invalid run", []byte{0xff, 0xfe}, `\xff\xfe`},
		{"mixed", append([]byte("ok "), 0xc3, '('), `ok \xc3(`},
		{"empty", nil, ""},
	}
	for _, tc := range cases {
		if got := DecodeBytes(tc.in); got != tc.want {
			t.Errorf("%s: DecodeBytes(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}
