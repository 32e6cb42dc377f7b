package openai

import "errors"

// ErrAPIKeyRequired indicates a remote provider was requested without a credential.
var ErrAPIKeyRequired = errors.New("openai: API key is required")
