//go:build js && wasm

package main

import (
	"context"
	"fmt"
	"syscall/js"

	"github.com/MeKo-Tech/retouch/internal/codec"
	"github.com/MeKo-Tech/retouch/internal/retouch"
)

var svc = retouch.New(retouch.Config{Compression: "speed"})

// bytesArg accepts a data URL / base64 string or a Uint8Array of encoded image bytes.
func bytesArg(v js.Value, name string) ([]byte, error) {
	switch v.Type() {
	case js.TypeString:
		data, err := codec.Payload(v.String())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return data, nil
	case js.TypeObject:
		if !v.InstanceOf(js.Global().Get("Uint8Array")) {
			return nil, fmt.Errorf("%s: expected string or Uint8Array", name)
		}
		data := make([]byte, v.Get("length").Int())
		js.CopyBytesToGo(data, v)
		return data, nil
	default:
		return nil, fmt.Errorf("%s: expected string or Uint8Array", name)
	}
}

// requestArgs reads passes (args[2]) and an optional {seed, maskChannel} object (args[3]).
func requestArgs(args []js.Value) (retouch.Request, error) {
	var req retouch.Request
	if len(args) > 2 && args[2].Type() == js.TypeNumber {
		req.Passes = args[2].Int()
	}
	if len(args) > 3 && args[3].Type() == js.TypeObject {
		opts := args[3]
		if seed := opts.Get("seed"); seed.Type() == js.TypeNumber {
			req.Seed = retouch.Seed(int64(seed.Int()))
		}
		if ch := opts.Get("maskChannel"); ch.Type() == js.TypeString {
			channel, err := retouch.ParseMaskChannel(ch.String())
			if err != nil {
				return req, err
			}
			req.MaskChannel = channel
		}
	}
	return req, nil
}

// inpaint is exposed as retouchInpaint(image, mask, passes, options?).
// It returns a Promise resolving to a PNG data URL.
func inpaint(this js.Value, args []js.Value) any {
	var executor js.Func
	executor = js.FuncOf(func(this js.Value, p []js.Value) any {
		resolve, reject := p[0], p[1]
		go func() {
			defer executor.Release()

			url, err := run(args)
			if err != nil {
				reject.Invoke(js.Global().Get("Error").New(err.Error()))
				return
			}
			resolve.Invoke(url)
		}()
		return nil
	})
	return js.Global().Get("Promise").New(executor)
}

func run(args []js.Value) (string, error) {
	if len(args) < 2 {
		return "", fmt.Errorf("retouchInpaint(image, mask, passes) needs at least image and mask")
	}
	source, err := bytesArg(args[0], "image")
	if err != nil {
		return "", err
	}
	maskData, err := bytesArg(args[1], "mask")
	if err != nil {
		return "", err
	}
	req, err := requestArgs(args)
	if err != nil {
		return "", err
	}

	resp, err := svc.Inpaint(context.Background(), source, maskData, req)
	if err != nil {
		return "", err
	}
	return codec.DataURL(resp.PNG), nil
}

func main() {
	js.Global().Set("retouchInpaint", js.FuncOf(inpaint))
	fmt.Println("retouch wasm module loaded")
	select {}
}
