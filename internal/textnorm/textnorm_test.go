package textnorm

import "testing"

func TestName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"José", "jose"},
		{"JOSE", "jose"},
		{"  Ana Conceição  ", "ana conceicao"},
		{"ÉLODIE", "elodie"},
		{"Müller", "muller"},
		{"already normal", "already normal"},
	}
	for _, tt := range tests {
		if got := Name(tt.in); got != tt.want {
			t.Errorf("Name(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestName_AccentAndCaseInsensitive(t *testing.T) {
	a, b, c := Name("José"), Name("JOSE"), Name("jose")
	if a != b || b != c {
		t.Errorf("expected equal keys, got %q %q %q", a, b, c)
	}
}

func TestName_Idempotent(t *testing.T) {
	for _, s := range []string{"José", " Ñandú ", "FRANÇOIS", "", "Zoë  Saldaña"} {
		once := Name(s)
		if twice := Name(once); twice != once {
			t.Errorf("Name not idempotent for %q: %q then %q", s, once, twice)
		}
	}
}

func TestPhone(t *testing.T) {
	tests := map[string]string{
		"+55 (11) 99999-9999": "5511999999999",
		"5511888888888":       "5511888888888",
		"abc":                 "",
		"":                    "",
		" 44 20 7946 0958 ":   "442079460958",
	}
	for in, want := range tests {
		if got := Phone(in); got != want {
			t.Errorf("Phone(%q) = %q, want %q", in, got, want)
		}
	}
}
