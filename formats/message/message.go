// Package message decodes length-prefixed text frames:
//
//	version (1 byte, 0x01) | length (1 byte) | body (length bytes of UTF-8)
package message

import (
	"github.com/pior/untrusted"
)

// Version is the only supported frame version.
const Version = 0x01

// MaxBody is the largest body a frame can carry.
const MaxBody = 0xff

// Message is a decoded frame. Body references the decoded input.
type Message struct {
	Version byte
	Body    untrusted.Text
}

// Decode reads one frame.
func Decode(r *untrusted.Reader) (Message, error) {
	var m Message
	err := r.Context("message", func(r *untrusted.Reader) error {
		if err := r.Context("version", func(r *untrusted.Reader) error {
			return r.ConsumeByte(Version)
		}); err != nil {
			return err
		}
		m.Version = Version

		var n uint8
		if err := r.Context("length", func(r *untrusted.Reader) error {
			var err error
			n, err = r.ReadU8()
			return err
		}); err != nil {
			return err
		}

		return r.Context("body", func(r *untrusted.Reader) error {
			return r.Context("text", func(r *untrusted.Reader) error {
				var err error
				m.Body, err = r.TakeText(int(n))
				return err
			})
		})
	})
	return m, err
}

// Parse decodes a single frame occupying all of in.
func Parse(in untrusted.Input) (Message, error) {
	return untrusted.Parse(in, Decode)
}

// Append encodes a frame with body onto dst.
func Append(dst []byte, body string) []byte {
	if len(body) > MaxBody {
		body = body[:MaxBody]
	}
	dst = append(dst, Version, byte(len(body)))
	return append(dst, body...)
}

// Resync skips to the next byte that could start a frame. It always
// consumes at least one byte.
func Resync(r *untrusted.Reader) {
	if _, err := r.ReadByte(); err != nil {
		return
	}
	r.SkipWhile(notVersion)
}

func notVersion(c byte) bool {
	return c != Version
}
