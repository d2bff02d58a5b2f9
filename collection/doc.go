// Package collection adapts a list into a source of change notifications.
//
// Every mutation of a List is announced on its Changes point as a Change
// with a kind (add, remove, move, replace or reset), the affected items and
// their indexes. Observers can build observe chains on the point like on any
// other source:
//
//	todos := collection.NewList[string]("todos")
//	root, _ := observe.Observe(todos.Changes())
//	root.Where(func(c collection.Change[string]) bool {
//	    return c.Kind == collection.KindAdd
//	}).Subscribe(render)
package collection
