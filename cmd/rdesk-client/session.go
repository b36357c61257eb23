package main

import (
	"context"
	"image"
	"sync/atomic"
	"time"

	"github.com/remotedesk/core/internal/coordmap"
	"github.com/remotedesk/core/internal/inputclient"
	"github.com/remotedesk/core/internal/screenclient"
)

// startScreenClient connects the screen channel and runs its decode
// loop in the background, counting delivered frames. The decoded-frame
// renderer itself is the GUI shell's job and is out of this
// repository's scope (spec §1); frameCount stands in for "deliver to
// the renderer callback".
func startScreenClient(token string) (*screenclient.Client, *atomic.Int64, error) {
	client, err := screenclient.Connect(screenAddr, token, 10*time.Second)
	if err != nil {
		return nil, nil, err
	}

	var frameCount atomic.Int64
	go func() {
		client.Run(context.Background(), func(img image.Image) {
			frameCount.Add(1)
		})
	}()

	return client, &frameCount, nil
}

// startInputClient connects the input channel and seeds the coordinate
// mapper with the server's monitor info, using a same-sized viewport
// until a real window reports its geometry. No PointerSource or
// KeySource is wired in here (OS input capture is a capability-boundary
// seam); a platform build plugs a real source into
// client.HandlePointer/HandleKey.
func startInputClient(token string, screen *screenclient.Client) (*inputclient.Client, error) {
	client, err := inputclient.Connect(inputAddr, token, 10*time.Second)
	if err != nil {
		return nil, err
	}
	client.SetGeometry(
		coordmap.Viewport{X: 0, Y: 0, Width: screen.Server.Width, Height: screen.Server.Height},
		coordmap.Display{Width: screen.Server.Width, Height: screen.Server.Height},
	)
	return client, nil
}
