// Package tal binds HTML templates to observable models.
//
// Templates carry statements in prefixed attributes. Render evaluates each
// statement against an observe.Wrapper context, applies its side effect and
// re-applies it whenever one of the properties it read changes. There is no
// tree diffing: every binding owns exactly the nodes it changes.
//
// # Statements
//
// Statements of one element run in this order:
//
//	tal:define      "name expr; global name expr"   bind names into the scope
//	tal:with        "expr"                          render against another context
//	tal:condition   "expr"                          render while truthy
//	tal:repeat      "item expr"                     render once per list element
//	tal:content     "[text|structure] expr"         replace the children
//	tal:replace     "[text|structure] expr"         replace the element
//	tal:attributes  "name expr; name expr"          set or remove attributes
//	tal:omit-tag    "[expr]"                        keep only the children
//	tal:listen      "value expr; click expr"        write element state back
//
// with, condition, repeat and replace detach the element and leave a pair of
// marker comments in its place; with, condition and repeat then render fresh
// clones of the pristine element between the markers. Expressions are resolved by package tales.
//
// # Repeat
//
// A repeat follows the structural events of its list (push, unshift, pop,
// shift, splice, set, clear, length) and inserts or removes only the affected
// items. Each item gets its own scope with the loop variable bound to the
// element; with the variable name "$data" a record or list element becomes
// the scope itself. Reassigning the list rebuilds all items.
//
// # Teardown
//
// Subscriptions are registered as teardown functions of the node they update.
// Removing nodes through dom.Teardown, or through any binding, releases them.
//
//	doc, _ := dom.ParseString(`<ul><li tal:repeat="todo todos" tal:content="todo/title"></li></ul>`)
//	ctx := observe.NewRecord(map[string]any{"todos": []any{}})
//	tal.Render(doc, ctx)
package tal
