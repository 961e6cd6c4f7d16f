package students

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var (
	errCPFLength  = validation.NewError("validation_cpf_length", MsgCPFLength)
	errCPFInvalid = validation.NewError("validation_cpf_invalid", MsgCPFInvalid)
)

// Validate checks the form rules. The returned error is a validation.Errors
// keyed by the JSON field name.
func (s Student) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required.Error(MsgRequired)),
		validation.Field(&s.Email,
			validation.Required.Error(MsgRequired),
			is.EmailFormat.Error(MsgEmail),
		),
		validation.Field(&s.RA, validation.Required.Error(MsgRequired)),
		validation.Field(&s.CPF,
			validation.Required.Error(MsgRequired),
			validation.By(checkCPF),
		),
	)
}

func checkCPF(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	digits := NormalizeCPF(s)
	if len(digits) != 11 || strings.Trim(digits, "0123456789") != "" {
		return errCPFLength
	}
	if !ValidCPF(digits) {
		return errCPFInvalid
	}
	return nil
}

// NormalizeCPF strips the formatting dots and dash.
func NormalizeCPF(cpf string) string {
	return strings.NewReplacer(".", "", "-", "").Replace(strings.TrimSpace(cpf))
}

// ValidCPF reports whether cpf, formatted or not, has valid check digits.
// Sequences of a single repeated digit are rejected.
func ValidCPF(cpf string) bool {
	digits := NormalizeCPF(cpf)
	if len(digits) != 11 {
		return false
	}

	var d [11]int
	same := true
	for i, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
		d[i] = int(r - '0')
		if d[i] != d[0] {
			same = false
		}
	}
	if same {
		return false
	}

	return checkDigit(d[:9]) == d[9] && checkDigit(d[:10]) == d[10]
}

// checkDigit computes the mod 11 digit over digits, weighted from len+1 down to 2.
func checkDigit(digits []int) int {
	sum := 0
	weight := len(digits) + 1
	for _, v := range digits {
		sum += v * weight
		weight--
	}
	r := sum * 10 % 11
	if r == 10 {
		return 0
	}
	return r
}
