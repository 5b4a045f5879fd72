package audio

import "fmt"

// DecodeError reports input that is not a well-formed PCM WAV container.
type DecodeError struct {
	Source string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// AssetNotFoundError reports a background asset missing from disk.
type AssetNotFoundError struct {
	Path string
	Err  error
}

func (e *AssetNotFoundError) Error() string {
	return fmt.Sprintf("background asset not found: %s", e.Path)
}

func (e *AssetNotFoundError) Unwrap() error { return e.Err }
