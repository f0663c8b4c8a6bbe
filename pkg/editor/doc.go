// Package editor is a small in-memory code editor: a line-based text model,
// a set of cursor selections and the commands that edit them.
//
// All mutating calls run inside an update scope. Events raised while the
// scope is open are queued and delivered in order when it closes, bracketed
// by OnBeginUpdate and OnEndUpdate:
//
//	OnBeginUpdate
//	  OnDidChangeModelContent / OnDidChangeCursorSelection / OnDidType ...
//	OnEndUpdate
//
// A queued cursor event absorbs any later cursor event with the same source,
// keeping its place in the queue. Content events never merge, so typing
// "abc" delivers three content events around two cursor events: the
// unsourced recovery of the cursors after the first edit (which absorbs the
// recoveries after the other two) and the final keyboard cursor state.
package editor
