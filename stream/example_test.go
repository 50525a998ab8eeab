package stream_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pior/untrusted/formats/message"
	"github.com/pior/untrusted/stream"
)

func ExampleDecoder() {
	var data []byte
	data = message.Append(data, "hello")
	data = message.Append(data, "world")

	dec := stream.NewDecoder(bytes.NewReader(data), message.Decode, stream.Options{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	defer dec.Close()

	for m, err := range dec.All(context.Background()) {
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Println(m.Body.String())
	}
	fmt.Println("frames:", dec.Stats().Frames)

	// Output:
	// hello
	// world
	// frames: 2
}

func ExampleDecoder_resync() {
	var data []byte
	data = message.Append(data, "one")
	data = append(data, 0x7f)
	data = message.Append(data, "two")

	dec := stream.NewDecoder(bytes.NewReader(data), message.Decode, stream.Options{
		Resync: message.Resync,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	defer dec.Close()

	for m, err := range dec.All(context.Background()) {
		if err != nil {
			fmt.Println("skipped:", err)
			continue
		}
		fmt.Println(m.Body.String())
	}

	// Output:
	// one
	// skipped: invalid input at offset 0: expected literal sequence
	// two
}
