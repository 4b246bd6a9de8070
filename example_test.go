package contentkit_test

import (
	"context"
	"fmt"
	"net/url"

	"github.com/gobeaver/contentkit"
	"github.com/gobeaver/contentkit/driver/memory"
	"github.com/gobeaver/contentkit/rpc"
)

func ExampleResolver_Resolve() {
	ctx := context.Background()

	// Local storage backs the reserved file scheme
	resolver := contentkit.NewResolver(memory.New())

	uri, _ := url.Parse("file:///notes/todo.txt")
	res, _ := resolver.Resolve(uri)

	if saver, ok := res.(contentkit.CanSave); ok {
		_ = saver.SaveContents(ctx, "buy milk", nil)
	}

	content, _ := res.ReadContents(ctx, nil)
	fmt.Println(content)
	// Output: buy milk
}

func ExampleResolver_RegisterBackend() {
	ctx := context.Background()
	resolver := contentkit.NewResolver(memory.New())

	// Serve the "mem" scheme from a provider running in-process
	channel := rpc.NewLoopback(rpc.NewStorageProvider(memory.New()))
	defer channel.Close()

	teardown, err := resolver.RegisterBackend(1, "mem", channel)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	uri, _ := url.Parse("mem://scratch/greeting.txt")
	res, _ := resolver.Resolve(uri)
	_ = res.(contentkit.CanSave).SaveContents(ctx, "hello from a provider", nil)

	content, _ := res.ReadContents(ctx, nil)
	fmt.Println(content)

	// Same URI, same instance, while the backend is registered
	again, _ := resolver.Resolve(uri)
	fmt.Println(again == res)

	teardown()

	_, err = resolver.Resolve(uri)
	fmt.Println(contentkit.IsProviderNotFound(err))
	// Output:
	// hello from a provider
	// true
	// true
}

func ExampleEncodeContent() {
	raw, _ := contentkit.EncodeContent("café", "latin1")
	fmt.Printf("%x\n", raw)

	b64, _ := contentkit.DecodeContent(raw, contentkit.EncodingBase64)
	fmt.Println(b64)
	// Output:
	// 636166e9
	// Y2Fm6Q==
}

func ExampleNewReadOnlyStorage() {
	ctx := context.Background()

	storage := contentkit.NewReadOnlyStorage(memory.New())
	resolver := contentkit.NewResolver(storage)

	uri, _ := url.Parse("file:///locked.txt")
	res, _ := resolver.Resolve(uri)

	err := res.(contentkit.CanSave).SaveContents(ctx, "nope", nil)
	fmt.Println(contentkit.IsReadOnlyError(err))
	// Output: true
}
