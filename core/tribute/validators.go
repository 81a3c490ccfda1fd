package tribute

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/tributes/core"
)

// clean trims the submission. Anonymous submissions drop whatever name was supplied.
func (nt *NewTribute) clean() {
	nt.Name = core.CleanString(nt.Name)
	if nt.Anonymous {
		nt.Name = AnonymousName
	}
	nt.Message = core.CleanString(nt.Message)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.Phone = core.CleanString(nt.Phone)
}

// check enforces the intake rules every submission path has to obey.
func (nt *NewTribute) check() error {
	if nt.Message == "" {
		return core.NewValidationMessage(errMessageRequired)
	}
	if !nt.Anonymous && nt.Name == "" {
		return core.NewValidationMessage(errNameRequired)
	}
	if nt.Email != "" {
		if _, ok := core.ParseEmail(nt.Email); !ok {
			return core.NewValidationMessage(errInvalidEmail)
		}
	}
	return nil
}

// Validate cleans the submission and applies both the intake rules and the field constraints.
// Length limits only apply to the notification email, which truncates instead.
func (nt *NewTribute) Validate(validate *validator.Validate) error {
	nt.clean()
	if err := nt.check(); err != nil {
		return err
	}
	return validate.Struct(nt)
}
