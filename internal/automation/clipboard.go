package automation

import "github.com/atotto/clipboard"

// SystemClipboard writes to the OS clipboard. Every write replaces the
// previous content; nothing reads it back between a copy and its paste.
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}
