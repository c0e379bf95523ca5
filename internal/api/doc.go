// Package api holds the types shared by every relay package: server
// definitions, profiles, usage snapshots, log events and the error taxonomy.
//
// It imports no other internal package, so the store, supervisor, protocol
// and reconciler layers can all depend on it without creating cycles.
//
// # Errors
//
// Callers classify failures with the predicates rather than string matching:
//
//	tools, err := inspector.ListTools(ctx, def)
//	switch {
//	case api.IsTimeout(err):
//	    // the server never produced a protocol response
//	case api.IsProtocolError(err):
//	    // the server answered with a JSON-RPC error object
//	case api.IsNotFound(err):
//	    // unknown server id
//	}
package api
