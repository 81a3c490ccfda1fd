package session

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/tributes/core"
)

func TestPasswordPolicyViolation(t *testing.T) {
	attrs := []string{"Peter Frederick Rhodes", "Tributes"}
	tests := []struct {
		name string
		pwd  string
		want string
	}{
		{name: "too short", pwd: "Ab1!", want: pwdMinLenTag},
		{name: "whitespace", pwd: "Abcd 123!", want: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", want: pwdNotAllNumTag},
		{name: "no upper", pwd: "abcd123!x", want: pwdComplexityTag},
		{name: "no special", pwd: "Abcd1234x", want: pwdComplexityTag},
		{name: "similar to site", pwd: "Tributes1!", want: pwdAttrSimTag},
		{name: "common", pwd: "P@ssw0rd1", want: pwdNoCommonTag},
		{name: "valid", pwd: "Kx7#mVq2!pL", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := passwordPolicyViolation(tt.pwd, attrs...); got != tt.want {
				t.Errorf("passwordPolicyViolation() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckPasswordPolicy(t *testing.T) {
	err := CheckPasswordPolicy("short")
	vErr, ok := core.AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, pwdMinLenText, vErr.Error())

	_, ok = core.AsValidationError(CheckPasswordPolicy(""))
	assert.True(t, ok)

	assert.NoError(t, CheckPasswordPolicy("Kx7#mVq2!pL", "Tributes"))
}

func TestAdminPassword_Validate(t *testing.T) {
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	tests := []struct {
		name    string
		ap      AdminPassword
		wantErr bool
	}{
		{name: "mismatch", ap: AdminPassword{Password: "Kx7#mVq2!pL", PasswordConfirm: "Kx7#mVq2!pM"}, wantErr: true},
		{name: "policy", ap: AdminPassword{Password: "password", PasswordConfirm: "password"}, wantErr: true},
		{name: "valid", ap: AdminPassword{Password: "Kx7#mVq2!pL", PasswordConfirm: "Kx7#mVq2!pL"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.ap.Validate(validate); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("Kx7#mVq2!pL")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("Kx7#mVq2!pL")))
}
