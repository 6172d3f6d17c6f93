package identity

import (
	"regexp"
	"strings"
)

var (
	nonDigitRe        = regexp.MustCompile(`\D`)
	councilNumberRe   = regexp.MustCompile(`^\d{4,6}-[A-Z]{2}$`)
	// RE2 has no backreferences, so "same digit repeated 11 times" is
	// spelled out as an alternation instead of `^(\d)\1{10}$`.
	allSameDigitCPFRe = regexp.MustCompile(`^(0{11}|1{11}|2{11}|3{11}|4{11}|5{11}|6{11}|7{11}|8{11}|9{11})$`)
)

// NormalizeCPF strips formatting ("529.982.247-25" becomes
// "52998224725").
func NormalizeCPF(cpf string) string {
	return nonDigitRe.ReplaceAllString(strings.TrimSpace(cpf), "")
}

// ValidCPF runs the CPF check-digit algorithm on a normalized value.
// Sequences of a single repeated digit pass the arithmetic but are
// not real CPFs and are rejected.
func ValidCPF(cpf string) bool {
	if len(cpf) != 11 || nonDigitRe.MatchString(cpf) {
		return false
	}
	if allSameDigitCPFRe.MatchString(cpf) {
		return false
	}

	digit := func(count int) int {
		sum := 0
		for i := 0; i < count; i++ {
			sum += int(cpf[i]-'0') * (count + 1 - i)
		}
		d := sum * 10 % 11
		if d == 10 {
			d = 0
		}
		return d
	}

	return digit(9) == int(cpf[9]-'0') && digit(10) == int(cpf[10]-'0')
}

// ValidCouncilNumber checks a CRM or CRF registration in the
// "123456-UF" form.
func ValidCouncilNumber(n string) bool {
	return councilNumberRe.MatchString(n)
}
