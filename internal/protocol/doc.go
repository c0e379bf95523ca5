// Package protocol implements the client side of the line-framed MCP
// handshake spoken over a server's standard streams.
//
// A Session writes one JSON-RPC message per line and treats the first line
// carrying a jsonrpc member as the response to the outstanding request.
// Anything else a server prints on stdout (banners, progress output, JSON log
// records) is skipped, bounded by an attempt budget and a per-phase deadline:
//
//	s := protocol.NewSession(id, stdin, stdout, protocol.DefaultOptions(), meter)
//	defer s.Close()
//	if err := s.Initialize(ctx); err != nil {
//	    return err
//	}
//	tools, err := s.ListTools(ctx)
//
// Failures are classified with the error types of the api package: running
// out of budget or time gives *api.TimeoutError, a closed stream gives
// *api.StreamError wrapping api.ErrStreamClosed, a peer error object gives
// *api.ProtocolError and an undecodable result gives *api.ParseError. Any of
// them closes the session.
package protocol
