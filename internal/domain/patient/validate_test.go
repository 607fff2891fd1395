package patient

import "testing"

func TestValidateSnils(t *testing.T) {
	tests := []struct {
		name  string
		snils string
		ok    bool
	}{
		{"valid formatted", "112-233-445 95", true},
		{"valid bare", "11223344595", true},
		{"wrong checksum", "11223344596", false},
		{"too short", "1122334459", false},
		{"too long", "112233445956", false},
		{"letters", "112233445aa", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSnils(tt.snils)
			if tt.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNormalizeSnils(t *testing.T) {
	if got := NormalizeSnils("112-233-445 95"); got != "11223344595" {
		t.Fatalf("got %q", got)
	}
}

func TestValidateEye(t *testing.T) {
	for _, eye := range []string{"OD", "OS", "OU"} {
		if err := ValidateEye(eye); err != nil {
			t.Fatalf("%s should be valid: %v", eye, err)
		}
	}
	if err := ValidateEye("left"); err == nil {
		t.Fatal("expected error for lowercase laterality")
	}
}
