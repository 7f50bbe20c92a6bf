// Copyright © 2018 One Concern

package eris_test

import (
	"context"
	"fmt"
	"log"

	"github.com/oneconcern/eris/pkg/eris"
)

func Example() {
	ctx := context.Background()
	store := make(eris.BlockMap)

	c, err := eris.Encode(ctx, eris.Text("Hello world!"), store, eris.WithBlockSize(eris.BlockSize1KiB))
	if err != nil {
		log.Fatal(err)
	}

	text, err := eris.DecodeToString(ctx, c.String(), store)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(text)
	fmt.Println(len(store), c.Level)
	// Output:
	// Hello world!
	// 1 0
}

func ExampleEncoder() {
	ctx := context.Background()
	enc, err := eris.NewEncoder(eris.Bytes(make([]byte, 2000)), eris.WithBlockSize(eris.BlockSize1KiB))
	if err != nil {
		log.Fatal(err)
	}
	defer enc.Close()

	for enc.Next(ctx) {
		b := enc.Block()
		fmt.Println(b.Level, len(b.Data))
	}
	if err := enc.Err(); err != nil {
		log.Fatal(err)
	}
	fmt.Println("level:", enc.Capability().Level)
	// Output:
	// 0 1024
	// 0 1024
	// 1 1024
	// level: 1
}
