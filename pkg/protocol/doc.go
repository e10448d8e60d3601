// ABOUTME: Loopcap wire protocol package
// ABOUTME: Defines protocol messages, chunk framing and the WebSocket client
// Package protocol implements the loopcap wire protocol.
//
// Control messages are JSON envelopes; audio travels in binary chunks
// carrying a sequence number and an encoded payload.
//
// Example:
//
//	client := protocol.NewClient(protocol.Config{ServerAddr: "localhost:8927", ClientID: id})
//	err := client.Connect(ctx)
//	err = client.Pull(0)
//	chunk := <-client.AudioChunks
package protocol
