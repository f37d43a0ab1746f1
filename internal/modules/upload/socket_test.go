package upload

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/07Akashh/DriveBackend/internal/pkg/validator"
)

func TestStartPayloadAcceptsEmptyFile(t *testing.T) {
	payload := startPayload{Filename: "empty.txt", Size: 0, UserID: 1}
	assert.Nil(t, validator.Validate(payload))
}

func TestStartPayloadRejectsInvalidFields(t *testing.T) {
	tests := []struct {
		name    string
		payload startPayload
	}{
		{"missing filename", startPayload{Size: 10, UserID: 1}},
		{"negative size", startPayload{Filename: "a.txt", Size: -1, UserID: 1}},
		{"missing user", startPayload{Filename: "a.txt", Size: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, validator.Validate(tt.payload))
		})
	}
}
