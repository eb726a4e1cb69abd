package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type videoRequest struct {
	Name      string `json:"name" validate:"required,max=50"`
	VideoFile string `json:"video_file" validate:"required,videoext"`
}

type userRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"omitempty,email"`
	Ignored  string `json:"-" validate:"required"`
}

func TestValidateStruct_VideoExtension(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		file  string
		valid bool
	}{
		{"lesson.mp4", true},
		{"lesson.avi", true},
		{"LESSON.MP4", true},
		{"archive.tar.mp4", true},
		{"lesson.mkv", false},
		{"lesson.mov", false},
		{"lesson", false},
		{"mp4", false},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			errs := v.ValidateStruct(videoRequest{Name: "Intro", VideoFile: tt.file})
			if tt.valid {
				assert.Nil(t, errs)
				return
			}
			require.NotNil(t, errs)
			assert.Equal(t, "video_file must be an mp4 or avi file", errs["video_file"])
		})
	}
}

func TestValidateStruct_UsesJSONFieldNames(t *testing.T) {
	v := NewValidator()

	errs := v.ValidateStruct(videoRequest{})
	require.NotNil(t, errs)
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "video_file")
	assert.Equal(t, "name is a required field", errs["name"])
}

func TestValidateStruct_Username(t *testing.T) {
	v := NewValidator()

	assert.Nil(t, v.ValidateStruct(userRequest{Username: "jane.doe+1@x", Ignored: "x"}))

	errs := v.ValidateStruct(userRequest{Username: "jane doe", Ignored: "x"})
	require.NotNil(t, errs)
	assert.Contains(t, errs["username"], "may contain only letters")

	errs = v.ValidateStruct(userRequest{Username: "jane", Email: "not-an-email", Ignored: "x"})
	require.NotNil(t, errs)
	assert.Equal(t, "email must be a valid email address", errs["email"])
}

type headerRequest struct {
	Name    string  `json:"name" validate:"required,singleline"`
	Subject *string `json:"subject" validate:"omitnil,singleline"`
}

func TestValidateStruct_SingleLine(t *testing.T) {
	v := NewValidator()

	subject := "Weekly update"
	assert.Nil(t, v.ValidateStruct(headerRequest{Name: "Aziz Karimov 0xDA", Subject: &subject}))
	assert.Nil(t, v.ValidateStruct(headerRequest{Name: "Aziz"}))

	for _, name := range []string{"Aziz\r\nBcc: evil@x.com", "Aziz\nBcc", "Aziz\r"} {
		errs := v.ValidateStruct(headerRequest{Name: name})
		require.NotNil(t, errs, "%q", name)
		assert.Equal(t, "name must not contain line breaks", errs["name"])
	}

	broken := "Hi\nBcc: evil@x.com"
	errs := v.ValidateStruct(headerRequest{Name: "Aziz", Subject: &broken})
	require.NotNil(t, errs)
	assert.Contains(t, errs, "subject")
}

func TestErrors_ErrorIsSorted(t *testing.T) {
	errs := Errors{"title": "required", "description": "too long"}
	assert.Equal(t, "description: too long; title: required", errs.Error())
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("  hel\x00lo \n"))
	assert.Equal(t, "", SanitizeString("   "))
}
