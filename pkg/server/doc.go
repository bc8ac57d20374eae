// Package server serves bound templates as live pages.
//
// A page request renders the template against its model and registers a
// session holding the bound document. The page loads the client script,
// which opens a WebSocket to LivePath and attaches to that session. From
// then on:
//
//	client event   -> Event frame -> element state applied, listeners run
//	model change   -> bindings update the document -> Patches frame
//
// Changes made during one event, or one function passed to
// Session.Dispatch, are coalesced into a single batch of patches.
//
// Sessions that never attach, or whose client goes idle, are closed by the
// SessionManager. Closing a session tears down every binding of its document.
package server
