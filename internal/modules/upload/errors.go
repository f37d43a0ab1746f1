package upload

import "errors"

// ErrSessionFinishing rejects chunk writes that arrive after end-of-input.
var ErrSessionFinishing = errors.New("upload session is already finishing")
