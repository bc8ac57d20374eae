// Package dom is the rendering surface the binding engine drives: a mutable
// HTML node tree with insertion and removal primitives, element properties,
// event listeners, per-node teardown lists and mutation observers.
//
// Markup is parsed with golang.org/x/net/html and serialized by pkg/render.
//
// # Teardown
//
// Every subscription made on behalf of a node is registered with OnTeardown.
// Teardown(n) runs the functions of n and all its descendants before
// detaching n, so no listener can act on a removed subtree.
//
// # Mutations
//
// Observe on the root of a tree (normally the document) reports attribute,
// property, text and child-list changes. The live server turns them into
// client patches.
//
// A tree is not safe for concurrent use.
package dom
