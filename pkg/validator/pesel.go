package validator

import (
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

var ErrInvalidPESEL = errors.New("invalid PESEL number")

var peselWeights = [10]int{1, 3, 7, 9, 1, 3, 7, 9, 1, 3}

// NormalizePESEL drops any whitespace.
func NormalizePESEL(pesel string) string {
	return strings.Join(strings.Fields(pesel), "")
}

// ValidPESEL checks length, digits and the check digit of a Polish national id.
// Whitespace is ignored.
func ValidPESEL(pesel string) bool {
	pesel = NormalizePESEL(pesel)
	if len(pesel) != 11 {
		return false
	}
	sum := 0
	for i := 0; i < 11; i++ {
		c := pesel[i]
		if c < '0' || c > '9' {
			return false
		}
		if i < 10 {
			sum += int(c-'0') * peselWeights[i]
		}
	}
	check := (10 - sum%10) % 10
	return check == int(pesel[10]-'0')
}

// PESELBirthDate decodes the birth date. The month field carries the century:
// +80 for the 1800s, +20 for the 2000s, +40 for the 2100s, +60 for the 2200s.
func PESELBirthDate(pesel string) (civil.Date, error) {
	if !ValidPESEL(pesel) {
		return civil.Date{}, ErrInvalidPESEL
	}
	pesel = NormalizePESEL(pesel)
	yy := digits2(pesel[0:2])
	month := digits2(pesel[2:4])
	day := digits2(pesel[4:6])

	century := 1900
	switch {
	case month > 80:
		century, month = 1800, month-80
	case month > 60:
		century, month = 2200, month-60
	case month > 40:
		century, month = 2100, month-40
	case month > 20:
		century, month = 2000, month-20
	}

	d := civil.Date{Year: century + yy, Month: time.Month(month), Day: day}
	if !d.IsValid() {
		return civil.Date{}, ErrInvalidPESEL
	}
	return d, nil
}

func digits2(s string) int {
	return int(s[0]-'0')*10 + int(s[1]-'0')
}
