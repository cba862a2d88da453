package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/teamboard/internal/apperror"
)

func TestCheckForm_Messages(t *testing.T) {
	tests := []struct {
		name  string
		form  any
		field string
		want  []string
	}{
		{
			name:  "required uses form tag name",
			form:  teamForm{},
			field: "name",
			want:  []string{apperror.MsgRequired},
		},
		{
			name:  "max counts characters",
			form:  teamForm{Name: strings.Repeat("é", 101)},
			field: "name",
			want:  []string{"Ensure this value has at most 100 characters (it has 101)."},
		},
		{
			name:  "username charset",
			form:  superuserForm{Username: "no spaces", Password: "pw"},
			field: "username",
			want:  []string{MsgInvalidUsername},
		},
		{
			name:  "email",
			form:  superuserForm{Username: "admin", Email: "admin@", Password: "pw"},
			field: "email",
			want:  []string{MsgInvalidEmail},
		},
		{
			name:  "gender choice",
			form:  profileFields{Job: "dev", Gender: "X", Country: "1"},
			field: "gender",
			want:  []string{apperror.MsgInvalidChoice},
		},
		{
			name:  "password mismatch",
			form:  setPasswordForm{Password1: "one", Password2: "two"},
			field: "password2",
			want:  []string{MsgPasswordMismatch},
		},
		{
			name:  "password over 72 bytes",
			form:  setPasswordForm{Password1: strings.Repeat("p", 73), Password2: strings.Repeat("p", 73)},
			field: "password2",
			want:  []string{MsgPasswordTooLong},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := apperror.FieldErrors{}
			require.NoError(t, checkForm(fe, tt.form))
			assert.Equal(t, tt.want, fe.For(tt.field))
		})
	}
}

func TestCheckForm_Valid(t *testing.T) {
	fe := apperror.FieldErrors{}
	require.NoError(t, checkForm(fe, superuserForm{Username: "a.b@c+d-e_f", Password: "pw"}))
	assert.True(t, fe.Empty(), "empty email is allowed: %v", fe)
}

func TestCheckForm_MismatchNeedsBothPasswords(t *testing.T) {
	fe := apperror.FieldErrors{}
	require.NoError(t, checkForm(fe, setPasswordForm{Password2: "only-the-second"}))

	assert.Equal(t, []string{apperror.MsgRequired}, fe.For("password1"))
	assert.False(t, fe.Has("password2"))
}

func TestProfileFields_Country(t *testing.T) {
	store := newFakeStore()

	tests := []struct {
		country string
		wantID  int64
		wantErr []string
	}{
		{country: "2", wantID: 2},
		{country: "", wantErr: []string{apperror.MsgRequired}},
		{country: "99", wantErr: []string{apperror.MsgInvalidChoice}},
		{country: "France", wantErr: []string{apperror.MsgInvalidChoice}},
	}

	for _, tt := range tests {
		t.Run(tt.country, func(t *testing.T) {
			fe := apperror.FieldErrors{}
			id, err := profileFields{Job: "dev", Gender: "F", Country: tt.country}.validate(context.Background(), store, fe)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantErr, fe.For("country"))
		})
	}
}
