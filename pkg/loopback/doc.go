// ABOUTME: Loopback capture session package
// ABOUTME: Drives an endpoint and buffers its audio as 16 kHz mono s16le
// Package loopback captures what the default output device is playing and
// hands it to callers as fixed-format PCM chunks.
//
// A Session owns one endpoint and one background capture goroutine. The
// goroutine waits on the endpoint, converts every packet to mono 16 kHz
// s16le and appends it to a bounded drop-oldest buffer. Callers pull
// chunks at their own cadence.
//
// Example:
//
//	ep, _ := endpoint.New(endpoint.Config{Backend: "auto"}, log)
//	s := loopback.New(ep, loopback.WithLogger(log))
//	if err := s.Start(); err != nil {
//		return err
//	}
//	defer s.Close()
//	chunk := s.PullChunk(loopback.DefaultChunkBytes)
package loopback
