package patient

import (
	"errors"
	"strings"
)

var (
	ErrBadSnils = errors.New("invalid snils")
	ErrBadEye   = errors.New("eye must be OD, OS or OU")
)

// NormalizeSnils strips the conventional separators ("112-233-445 95") and
// returns the bare 11 digits.
func NormalizeSnils(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateSnils checks the 11-digit insurance number checksum. The last two
// digits are a control value over the first nine, weighted 9 down to 1, with
// sums of 100 and 101 collapsing to zero.
func ValidateSnils(s string) error {
	digits := NormalizeSnils(s)
	if len(digits) != 11 {
		return ErrBadSnils
	}
	sum := 0
	for i := 0; i < 9; i++ {
		sum += int(digits[i]-'0') * (9 - i)
	}
	check := sum
	switch {
	case sum == 100 || sum == 101:
		check = 0
	case sum > 101:
		check = sum % 101
		if check == 100 {
			check = 0
		}
	}
	got := int(digits[9]-'0')*10 + int(digits[10]-'0')
	if check != got {
		return ErrBadSnils
	}
	return nil
}

// ValidateEye accepts the standard laterality codes: right, left, both.
func ValidateEye(eye string) error {
	switch eye {
	case "OD", "OS", "OU":
		return nil
	}
	return ErrBadEye
}
