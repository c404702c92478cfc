package usecase

import "strings"

// validIBAN runs the ISO 13616 mod-97 check on an IBAN in any common
// formatting (spaces and dots are ignored).
func validIBAN(iban string) bool {
	s := normalizeIdentifier(iban)
	if len(s) < 15 || len(s) > 34 {
		return false
	}
	rearranged := s[4:] + s[:4]

	remainder := 0
	for _, r := range rearranged {
		var v int
		switch {
		case r >= '0' && r <= '9':
			v = int(r - '0')
		case r >= 'A' && r <= 'Z':
			v = int(r-'A') + 10
		default:
			return false
		}
		if v < 10 {
			remainder = (remainder*10 + v) % 97
		} else {
			remainder = (remainder*100 + v) % 97
		}
	}
	return remainder == 1
}

// validOGM checks a Belgian structured payment reference
// (+++090/9337/55493+++): twelve digits where the last two equal the
// first ten mod 97, with 97 standing in for a zero remainder.
func validOGM(ref string) bool {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, ref)
	if len(digits) != 12 {
		return false
	}

	body := 0
	for _, r := range digits[:10] {
		body = (body*10 + int(r-'0')) % 97
	}
	check := int(digits[10]-'0')*10 + int(digits[11]-'0')
	if body == 0 {
		body = 97
	}
	return body == check
}
