// Package bimlink embeds the bimlink command core in a Go program.
//
// A Client runs an in-process host over a building model loaded from YAML
// and exposes the same commands the HTTP server does. Every command runs on
// the host UI goroutine and reports its outcome as an envelope: a failed
// command is an error wrapping ErrCommandFailed that carries the host's
// message.
//
// # Generic commands
//
//	client, _ := bimlink.New(ctx, bimlink.WithModelFile("config/models/sample.yaml"))
//	defer client.Close()
//
//	var view struct{ Name string `json:"name"` }
//	_, err := client.Call(ctx, "get_current_view_info", nil, &view)
//
// # Filter queries
//
//	res, _ := client.Query().
//	    Category("OST_Walls").
//	    Instances().
//	    Within(bimlink.Point{X: 0, Y: 0, Z: 0}, bimlink.Point{X: 5000, Y: 6000, Z: 3000}).
//	    Limit(10).
//	    Do(ctx)
//
// Connecting a Redis server with WithRedis enables the filter result cache.
package bimlink
